package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"TickAttrib/internal/domain/models"
)

func writeCaseFixtures(t *testing.T, dir string, meta models.CaseMeta, ticks []models.Tick, news []models.NewsItem, kg *models.KnowledgeGraph) {
	t.Helper()

	indexPath := filepath.Join(dir, indexFile)
	var index []models.CaseMeta
	if data, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(data, &index); err != nil {
			t.Fatalf("parse existing index: %v", err)
		}
	}
	index = append(index, meta)
	mustWriteJSON(t, indexPath, index)

	caseDir := filepath.Join(dir, meta.CaseID)
	if err := os.MkdirAll(caseDir, 0o755); err != nil {
		t.Fatalf("mkdir case dir: %v", err)
	}
	mustWriteJSON(t, filepath.Join(caseDir, ticksFile), ticks)
	if news != nil {
		mustWriteJSON(t, filepath.Join(caseDir, newsFile), news)
	}
	if kg != nil {
		mustWriteJSON(t, filepath.Join(caseDir, precomputedFile), kg)
	}
}

func mustWriteJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func flatTicks(symbol string, n int) []models.Tick {
	ticks := make([]models.Tick, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, models.Tick{
			Symbol:    symbol,
			Timestamp: stampAt(i),
			Price:     100,
			Open:      100,
			High:      100.5,
			Low:       99.5,
			Close:     100,
			Volume:    1e6,
		})
	}
	return ticks
}

func stampAt(i int) string {
	return fmt.Sprintf("09:%02d:%02d", 30+i/60, i%60)
}

func TestLookupByIDAndSymbol(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_600519", Symbol: "600519", SymbolName: "MoTai"}
	writeCaseFixtures(t, dir, meta, flatTicks("600519", 4), nil, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}

	if got, ok := lib.Lookup("case_600519"); !ok || got.Symbol != "600519" {
		t.Fatalf("lookup by id: %+v ok=%v", got, ok)
	}
	if got, ok := lib.Lookup("600519"); !ok || got.CaseID != "case_600519" {
		t.Fatalf("lookup by symbol: %+v ok=%v", got, ok)
	}
	if _, ok := lib.Lookup("nope"); ok {
		t.Fatalf("unknown case resolved")
	}
}

func TestOpenLoadsFixtures(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_a", Symbol: "000001", SymbolName: "PingAn"}
	news := []models.NewsItem{{Symbol: "000001", Timestamp: "09:30:02", Source: "wire", Content: "headline"}}
	kg := &models.KnowledgeGraph{Summary: "offline"}
	writeCaseFixtures(t, dir, meta, flatTicks("000001", 5), news, kg)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	handle, err := lib.Open(context.Background(), "case_a")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = handle.Store.Close() }()

	ticks, err := handle.Store.Ticks(context.Background(), "000001", 0)
	if err != nil || len(ticks) != 5 {
		t.Fatalf("ticks = %d, err %v", len(ticks), err)
	}
	stored, err := handle.Store.CaseMeta(context.Background())
	if err != nil || stored == nil {
		t.Fatalf("case meta: %+v, %v", stored, err)
	}
	if stored.TickCount != 5 || stored.NewsCount != 1 {
		t.Fatalf("counts = %d/%d", stored.TickCount, stored.NewsCount)
	}
	if handle.Precomputed == nil || handle.Precomputed.Summary != "offline" {
		t.Fatalf("precomputed = %+v", handle.Precomputed)
	}
}

func TestOpenToleratesMissingNews(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_b", Symbol: "600000"}
	writeCaseFixtures(t, dir, meta, flatTicks("600000", 4), nil, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	handle, err := lib.Open(context.Background(), "case_b")
	if err != nil {
		t.Fatalf("open without news: %v", err)
	}
	if handle.Precomputed != nil {
		t.Fatalf("unexpected precomputed graph")
	}
}

func TestOpenUnknownCase(t *testing.T) {
	lib, err := NewCaseLibrary(t.TempDir(), testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if _, err := lib.Open(context.Background(), "ghost"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("got %v, want ErrCaseNotFound", err)
	}
}

func TestMissingIndexYieldsEmptyLibrary(t *testing.T) {
	lib, err := NewCaseLibrary(filepath.Join(t.TempDir(), "nowhere"), testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if len(lib.Cases()) != 0 {
		t.Fatalf("cases = %d, want 0", len(lib.Cases()))
	}
}

func TestSavePrecomputedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_c", Symbol: "300750"}
	writeCaseFixtures(t, dir, meta, flatTicks("300750", 4), nil, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if lib.HasPrecomputed("case_c") {
		t.Fatalf("precomputed exists before save")
	}

	if err := lib.SavePrecomputed("case_c", &models.KnowledgeGraph{Summary: "computed"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !lib.HasPrecomputed("case_c") {
		t.Fatalf("precomputed missing after save")
	}

	handle, err := lib.Open(context.Background(), "case_c")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if handle.Precomputed == nil || handle.Precomputed.Summary != "computed" {
		t.Fatalf("round trip: %+v", handle.Precomputed)
	}
}

func TestSavePrecomputedRejectsInvalidGraph(t *testing.T) {
	lib, err := NewCaseLibrary(t.TempDir(), testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	if err := lib.SavePrecomputed("any", &models.KnowledgeGraph{}); err == nil {
		t.Fatalf("expected invalid graph error")
	}
}
