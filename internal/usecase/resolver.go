package usecase

import (
	"context"
	"errors"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/services/attribution"
	applogger "TickAttrib/pkg/logger"
)

// StreamCounters is the slice of process counters the replay path touches.
type StreamCounters interface {
	WSConnected()
	WSDisconnected()
	TickPushed()
	AnomalyDetected()
	LLMCallFinished(latency time.Duration)
}

// AttributionResolver resolves the causal explanation for one anomaly through
// a fixed fallback chain: cache, then live LLM, then the precomputed graph.
// Every returned graph is a copy with its provenance tag set; nil means no
// explanation is available.
type AttributionResolver struct {
	cache      domrepo.AttributionCache
	attributor domrepo.Attributor
	counters   StreamCounters
	metrics    domrepo.Metrics
	l          *applogger.Logger
}

func NewAttributionResolver(
	cache domrepo.AttributionCache,
	attributor domrepo.Attributor,
	counters StreamCounters,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *AttributionResolver {
	return &AttributionResolver{
		cache:      cache,
		attributor: attributor,
		counters:   counters,
		metrics:    metrics,
		l:          l,
	}
}

// Resolve walks the fallback chain for the joined news text. An empty text
// skips straight to the precomputed graph: there is nothing to cache or send.
func (r *AttributionResolver) Resolve(ctx context.Context, text string, precomputed *models.KnowledgeGraph) *models.KnowledgeGraph {
	if text != "" {
		if kg, ok := r.cache.Get(ctx, text); ok {
			return tagged(kg, models.SourceCached)
		}

		start := time.Now()
		kg, err := r.attributor.ExtractKnowledgeGraph(ctx, text)
		switch {
		case err == nil && kg.Valid():
			r.counters.LLMCallFinished(time.Since(start))
			r.metrics.RecordLatency("llm_attribution", time.Since(start).Seconds())
			r.cache.Set(ctx, text, kg)
			return tagged(kg, models.SourceLiveLLM)
		case err != nil && !errors.Is(err, attribution.ErrNotConfigured):
			r.metrics.RecordError("llm_attribution")
			if r.l != nil {
				r.l.Warn("live attribution failed, falling back", applogger.Error(err))
			}
		}
	}

	if precomputed.Valid() {
		return tagged(precomputed, models.SourcePrecomputed)
	}
	return nil
}

// tagged returns a copy with the provenance tag set, leaving the cached or
// precomputed original untouched.
func tagged(kg *models.KnowledgeGraph, source string) *models.KnowledgeGraph {
	out := *kg
	out.Source = source
	return &out
}
