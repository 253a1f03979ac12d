package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"TickAttrib/internal/domain/models"
	"TickAttrib/internal/services/attribution"
	applogger "TickAttrib/pkg/logger"
)

type fakeCache struct {
	m    map[string]*models.KnowledgeGraph
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: make(map[string]*models.KnowledgeGraph)}
}

func (c *fakeCache) Get(_ context.Context, text string) (*models.KnowledgeGraph, bool) {
	kg, ok := c.m[text]
	return kg, ok
}

func (c *fakeCache) Set(_ context.Context, text string, kg *models.KnowledgeGraph) {
	c.m[text] = kg
	c.sets++
}

type fakeAttributor struct {
	kg    *models.KnowledgeGraph
	err   error
	calls int
}

func (a *fakeAttributor) ExtractKnowledgeGraph(context.Context, string) (*models.KnowledgeGraph, error) {
	a.calls++
	return a.kg, a.err
}

type fakeCounters struct {
	ticks     atomic.Int64
	anomalies atomic.Int64
	llmCalls  atomic.Int64
}

func (c *fakeCounters) WSConnected() {}

func (c *fakeCounters) WSDisconnected() {}

func (c *fakeCounters) TickPushed() {
	c.ticks.Add(1)
}

func (c *fakeCounters) AnomalyDetected() {
	c.anomalies.Add(1)
}

func (c *fakeCounters) LLMCallFinished(time.Duration) {
	c.llmCalls.Add(1)
}

type fakeMetrics struct{}

func (fakeMetrics) RecordTickPushed(string) {}

func (fakeMetrics) RecordAnomaly(string) {}

func (fakeMetrics) RecordError(string) {}

func (fakeMetrics) RecordLatency(string, float64) {}

func (fakeMetrics) SetWSConnections(int) {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func liveGraph() *models.KnowledgeGraph {
	return &models.KnowledgeGraph{Summary: "fresh explanation"}
}

func precomputedGraph() *models.KnowledgeGraph {
	return &models.KnowledgeGraph{Summary: "offline explanation"}
}

func TestResolveCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.m["joined text"] = &models.KnowledgeGraph{Summary: "from cache"}
	att := &fakeAttributor{kg: liveGraph()}
	r := NewAttributionResolver(cache, att, &fakeCounters{}, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "joined text", nil)
	if kg == nil || kg.Source != models.SourceCached {
		t.Fatalf("got %+v, want cached source", kg)
	}
	if att.calls != 0 {
		t.Fatalf("attributor called on cache hit")
	}
}

func TestResolveLiveLLMStoresInCache(t *testing.T) {
	cache := newFakeCache()
	att := &fakeAttributor{kg: liveGraph()}
	counters := &fakeCounters{}
	r := NewAttributionResolver(cache, att, counters, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "joined text", nil)
	if kg == nil || kg.Source != models.SourceLiveLLM {
		t.Fatalf("got %+v, want live_llm source", kg)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}
	if counters.llmCalls.Load() != 1 {
		t.Fatalf("llm calls = %d, want 1", counters.llmCalls.Load())
	}
}

func TestResolveFallsBackToPrecomputed(t *testing.T) {
	r := NewAttributionResolver(newFakeCache(), &fakeAttributor{err: errors.New("upstream down")},
		&fakeCounters{}, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "joined text", precomputedGraph())
	if kg == nil || kg.Source != models.SourcePrecomputed {
		t.Fatalf("got %+v, want precomputed source", kg)
	}
}

func TestResolveUnconfiguredSkipsToPrecomputed(t *testing.T) {
	att := &fakeAttributor{err: attribution.ErrNotConfigured}
	r := NewAttributionResolver(newFakeCache(), att, &fakeCounters{}, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "joined text", precomputedGraph())
	if kg == nil || kg.Source != models.SourcePrecomputed {
		t.Fatalf("got %+v, want precomputed source", kg)
	}
}

func TestResolveEmptyTextSkipsLLM(t *testing.T) {
	att := &fakeAttributor{kg: liveGraph()}
	r := NewAttributionResolver(newFakeCache(), att, &fakeCounters{}, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "", precomputedGraph())
	if kg == nil || kg.Source != models.SourcePrecomputed {
		t.Fatalf("got %+v, want precomputed source", kg)
	}
	if att.calls != 0 {
		t.Fatalf("attributor called with empty text")
	}
}

func TestResolveNilWhenNothingAvailable(t *testing.T) {
	r := NewAttributionResolver(newFakeCache(), &fakeAttributor{err: errors.New("down")},
		&fakeCounters{}, fakeMetrics{}, testLogger(t))

	if kg := r.Resolve(context.Background(), "joined text", nil); kg != nil {
		t.Fatalf("got %+v, want nil", kg)
	}
}

func TestResolveDoesNotMutateSourceGraphs(t *testing.T) {
	pre := precomputedGraph()
	r := NewAttributionResolver(newFakeCache(), &fakeAttributor{err: errors.New("down")},
		&fakeCounters{}, fakeMetrics{}, testLogger(t))

	kg := r.Resolve(context.Background(), "joined text", pre)
	if kg.Source != models.SourcePrecomputed {
		t.Fatalf("copy source = %q", kg.Source)
	}
	if pre.Source != "" {
		t.Fatalf("original mutated: %q", pre.Source)
	}
}
