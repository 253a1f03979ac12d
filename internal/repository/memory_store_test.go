package repository

import (
	"context"
	"testing"
	"time"

	"TickAttrib/internal/domain/models"
)

func seedNews(t *testing.T, s *MemoryStore, stamps ...string) {
	t.Helper()
	items := make([]models.NewsItem, 0, len(stamps))
	for _, ts := range stamps {
		items = append(items, models.NewsItem{
			Symbol:    "600519",
			Timestamp: ts,
			Source:    "wire",
			Content:   "news at " + ts,
		})
	}
	if _, err := s.InsertNews(context.Background(), items); err != nil {
		t.Fatalf("insert news: %v", err)
	}
}

func TestAlignedNewsWindowInclusive(t *testing.T) {
	s := NewMemoryStore()
	seedNews(t, s,
		"10:14:59", // one second before the window opens
		"10:15:00", // exactly T-120s
		"10:15:01",
		"10:16:30",
		"10:17:30", // exactly T+30s
		"10:17:31", // one second past
	)

	got, err := s.AlignedNews(context.Background(), "600519", "10:17:00", 120*time.Second, 30*time.Second)
	if err != nil {
		t.Fatalf("aligned news: %v", err)
	}

	want := []string{"10:15:00", "10:15:01", "10:16:30", "10:17:30"}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Timestamp != w {
			t.Fatalf("item %d: timestamp %q, want %q", i, got[i].Timestamp, w)
		}
	}
}

func TestAlignedNewsFiltersSymbol(t *testing.T) {
	s := NewMemoryStore()
	seedNews(t, s, "10:16:00")
	if _, err := s.InsertNews(context.Background(), []models.NewsItem{
		{Symbol: "000001", Timestamp: "10:16:00", Content: "other symbol"},
	}); err != nil {
		t.Fatalf("insert news: %v", err)
	}

	got, err := s.AlignedNews(context.Background(), "600519", "10:17:00", 120*time.Second, 30*time.Second)
	if err != nil {
		t.Fatalf("aligned news: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "600519" {
		t.Fatalf("symbol filter leaked: %+v", got)
	}
}

func TestTicksAscendingWithLimit(t *testing.T) {
	s := NewMemoryStore()
	// inserted out of order on purpose
	_, err := s.InsertTicks(context.Background(), []models.Tick{
		{Symbol: "600519", Timestamp: "10:00:02", Price: 3},
		{Symbol: "600519", Timestamp: "10:00:00", Price: 1},
		{Symbol: "600519", Timestamp: "10:00:01", Price: 2},
	})
	if err != nil {
		t.Fatalf("insert ticks: %v", err)
	}

	got, err := s.Ticks(context.Background(), "600519", 2)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if len(got) != 2 || got[0].Price != 1 || got[1].Price != 2 {
		t.Fatalf("unexpected order/limit: %+v", got)
	}
}

func TestInsertRejectsBadTimestamp(t *testing.T) {
	s := NewMemoryStore()
	n, err := s.InsertTicks(context.Background(), []models.Tick{
		{Symbol: "600519", Timestamp: "not a time"},
	})
	if err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
	if n != 0 {
		t.Fatalf("inserted %d ticks from invalid batch", n)
	}
}

func TestCaseMetaCountsRecomputed(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.InsertTicks(ctx, []models.Tick{
		{Symbol: "600519", Timestamp: "10:00:00"},
		{Symbol: "600519", Timestamp: "10:00:01"},
	}); err != nil {
		t.Fatalf("insert ticks: %v", err)
	}
	seedNews(t, s, "10:00:00")

	// caller-supplied counts are ignored
	if err := s.SetCaseMeta(ctx, models.CaseMeta{CaseID: "c1", TickCount: 99, NewsCount: 99}); err != nil {
		t.Fatalf("set case meta: %v", err)
	}
	meta, err := s.CaseMeta(ctx)
	if err != nil {
		t.Fatalf("case meta: %v", err)
	}
	if meta == nil || meta.TickCount != 2 || meta.NewsCount != 1 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestCaseMetaEmptyStore(t *testing.T) {
	s := NewMemoryStore()
	meta, err := s.CaseMeta(context.Background())
	if err != nil {
		t.Fatalf("case meta: %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil meta, got %+v", meta)
	}
}
