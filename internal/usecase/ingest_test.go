package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/repository"
)

func memoryOpener(store domrepo.AlignmentStore) StoreOpener {
	return func(string) domrepo.AlignmentStore { return store }
}

func TestTickIngestHandlerStoresBatch(t *testing.T) {
	store := repository.NewMemoryStore()
	h := NewTickIngestHandler(memoryOpener(store), fakeMetrics{}, testLogger(t))

	if h.Topic() != TopicTicks {
		t.Fatalf("topic = %q", h.Topic())
	}

	data, _ := json.Marshal(TickBatch{CaseID: "case_a", Ticks: flatTicks("600519", 4)})
	if err := h.Handle(context.Background(), data); err != nil {
		t.Fatalf("handle: %v", err)
	}

	ticks, err := store.Ticks(context.Background(), "600519", 0)
	if err != nil || len(ticks) != 4 {
		t.Fatalf("stored ticks = %d, err %v", len(ticks), err)
	}
}

func TestNewsIngestHandlerStoresBatch(t *testing.T) {
	store := repository.NewMemoryStore()
	h := NewNewsIngestHandler(memoryOpener(store), fakeMetrics{}, testLogger(t))

	batch := NewsBatch{CaseID: "case_a", News: []models.NewsItem{
		{Symbol: "600519", Timestamp: "09:31:00", Source: "wire", Content: "headline"},
	}}
	data, _ := json.Marshal(batch)
	if err := h.Handle(context.Background(), data); err != nil {
		t.Fatalf("handle: %v", err)
	}

	news, err := store.AlignedNews(context.Background(), "600519", "09:31:00", 0, 0)
	if err != nil || len(news) != 1 {
		t.Fatalf("stored news = %d, err %v", len(news), err)
	}
}

func TestIngestRejectsMissingCaseID(t *testing.T) {
	h := NewTickIngestHandler(memoryOpener(repository.NewMemoryStore()), fakeMetrics{}, testLogger(t))

	data, _ := json.Marshal(TickBatch{Ticks: flatTicks("600519", 1)})
	if err := h.Handle(context.Background(), data); err == nil {
		t.Fatalf("expected missing case_id error")
	}
}

func TestIngestRejectsMalformedMessage(t *testing.T) {
	h := NewNewsIngestHandler(memoryOpener(repository.NewMemoryStore()), fakeMetrics{}, testLogger(t))

	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
