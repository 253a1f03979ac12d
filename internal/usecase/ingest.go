package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	pkgkafka "TickAttrib/pkg/kafka"
	applogger "TickAttrib/pkg/logger"
)

// Kafka topics for historical case ingestion.
const (
	TopicTicks = "tickattrib.ticks"
	TopicNews  = "tickattrib.news"
)

// StoreOpener yields the alignment store scoped to one case.
type StoreOpener func(caseID string) domrepo.AlignmentStore

// TickBatch is one inbound tick ingestion message.
type TickBatch struct {
	CaseID string        `json:"case_id"`
	Ticks  []models.Tick `json:"ticks"`
}

// NewsBatch is one inbound news ingestion message.
type NewsBatch struct {
	CaseID string            `json:"case_id"`
	News   []models.NewsItem `json:"news"`
}

// TickIngestHandler consumes tick batches off Kafka into case-scoped storage.
type TickIngestHandler struct {
	open    StoreOpener
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*TickIngestHandler)(nil)

func NewTickIngestHandler(open StoreOpener, metrics domrepo.Metrics, l *applogger.Logger) *TickIngestHandler {
	return &TickIngestHandler{open: open, metrics: metrics, l: l}
}

func (h *TickIngestHandler) Topic() string {
	return TopicTicks
}

func (h *TickIngestHandler) Handle(ctx context.Context, data []byte) error {
	start := time.Now()

	var batch TickBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		h.metrics.RecordError("tick_unmarshal")
		return fmt.Errorf("decode tick batch: %w", err)
	}
	if batch.CaseID == "" {
		h.metrics.RecordError("tick_unmarshal")
		return fmt.Errorf("decode tick batch: missing case_id")
	}
	if len(batch.Ticks) == 0 {
		return nil
	}

	n, err := h.open(batch.CaseID).InsertTicks(ctx, batch.Ticks)
	if err != nil {
		h.metrics.RecordError("tick_insert")
		return fmt.Errorf("insert ticks for %q: %w", batch.CaseID, err)
	}

	h.metrics.RecordLatency("tick_ingest", time.Since(start).Seconds())
	h.l.Debug("ticks ingested",
		applogger.String("case_id", batch.CaseID),
		applogger.Int("count", n),
	)
	return nil
}

// NewsIngestHandler consumes news batches off Kafka into case-scoped storage.
type NewsIngestHandler struct {
	open    StoreOpener
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*NewsIngestHandler)(nil)

func NewNewsIngestHandler(open StoreOpener, metrics domrepo.Metrics, l *applogger.Logger) *NewsIngestHandler {
	return &NewsIngestHandler{open: open, metrics: metrics, l: l}
}

func (h *NewsIngestHandler) Topic() string {
	return TopicNews
}

func (h *NewsIngestHandler) Handle(ctx context.Context, data []byte) error {
	start := time.Now()

	var batch NewsBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		h.metrics.RecordError("news_unmarshal")
		return fmt.Errorf("decode news batch: %w", err)
	}
	if batch.CaseID == "" {
		h.metrics.RecordError("news_unmarshal")
		return fmt.Errorf("decode news batch: missing case_id")
	}
	if len(batch.News) == 0 {
		return nil
	}

	n, err := h.open(batch.CaseID).InsertNews(ctx, batch.News)
	if err != nil {
		h.metrics.RecordError("news_insert")
		return fmt.Errorf("insert news for %q: %w", batch.CaseID, err)
	}

	h.metrics.RecordLatency("news_ingest", time.Since(start).Seconds())
	h.l.Debug("news ingested",
		applogger.String("case_id", batch.CaseID),
		applogger.Int("count", n),
	)
	return nil
}
