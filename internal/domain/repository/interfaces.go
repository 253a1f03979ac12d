package repository

import (
	"context"
	"time"

	"TickAttrib/internal/domain/models"
)

// AlignmentStore is append-only, symbol-partitioned storage for ticks and
// news. Timestamps within one symbol partition are non-decreasing as stored
// and every query preserves that order. There is no update or delete path.
type AlignmentStore interface {
	InsertTicks(ctx context.Context, ticks []models.Tick) (int, error)
	InsertNews(ctx context.Context, items []models.NewsItem) (int, error)
	// Ticks returns up to limit ticks for symbol in ascending timestamp order.
	Ticks(ctx context.Context, symbol string, limit int) ([]models.Tick, error)
	// AlignedNews performs the time-window join: all news for symbol with
	// timestamp in [anomalyTS-before, anomalyTS+after], bounds inclusive,
	// ascending.
	AlignedNews(ctx context.Context, symbol, anomalyTS string, before, after time.Duration) ([]models.NewsItem, error)
	// SetCaseMeta records case metadata, recomputing tick/news counts from
	// the stored data.
	SetCaseMeta(ctx context.Context, meta models.CaseMeta) error
	CaseMeta(ctx context.Context) (*models.CaseMeta, error)
	Close() error
}

// Attributor resolves a causal explanation for the joined news text around a
// detected anomaly. Implementations must bound the call with the context
// deadline; a malformed response is an error, never a panic.
type Attributor interface {
	ExtractKnowledgeGraph(ctx context.Context, text string) (*models.KnowledgeGraph, error)
}

// AttributionCache stores previously computed explanations keyed by the
// exact joined news text.
type AttributionCache interface {
	Get(ctx context.Context, text string) (*models.KnowledgeGraph, bool)
	Set(ctx context.Context, text string, kg *models.KnowledgeGraph)
}

// Metrics records process-wide operational metrics.
type Metrics interface {
	RecordTickPushed(symbol string)
	RecordAnomaly(symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetWSConnections(n int)
}
