package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/services/attribution"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/queue"
)

// JobTypePrecompute is the queue message type for offline attribution.
const JobTypePrecompute = "precompute_attribution"

// PrecomputePayload identifies one case to precompute.
type PrecomputePayload struct {
	CaseID string `json:"case_id"`
}

// PrecomputeJob builds the offline attribution graph for a case so replay
// anomalies still resolve when the live LLM is unreachable or unconfigured.
// The whole news window of the case feeds one extraction.
type PrecomputeJob struct {
	lib        *CaseLibrary
	attributor domrepo.Attributor
	l          *applogger.Logger
}

var _ queue.Job = (*PrecomputeJob)(nil)

func NewPrecomputeJob(lib *CaseLibrary, attributor domrepo.Attributor, l *applogger.Logger) *PrecomputeJob {
	return &PrecomputeJob{lib: lib, attributor: attributor, l: l}
}

func (j *PrecomputeJob) Name() string { return "precompute-attribution" }
func (j *PrecomputeJob) Type() string { return JobTypePrecompute }

func (j *PrecomputeJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[PrecomputePayload](payload)
	if err != nil {
		return fmt.Errorf("precompute payload: %w", err)
	}

	handle, err := j.lib.Open(ctx, p.CaseID)
	if err != nil {
		return fmt.Errorf("precompute %q: %w", p.CaseID, err)
	}
	defer func() { _ = handle.Store.Close() }()

	ticks, err := handle.Store.Ticks(ctx, handle.Meta.Symbol, 1)
	if err != nil {
		return fmt.Errorf("precompute %q: %w", p.CaseID, err)
	}
	if len(ticks) == 0 {
		j.l.Warn("precompute skipped, case has no ticks", applogger.String("case_id", p.CaseID))
		return nil
	}

	// anchor on the first tick with a window wide enough to cover the whole
	// trading session in both directions
	news, err := handle.Store.AlignedNews(ctx, handle.Meta.Symbol, ticks[0].Timestamp, 24*time.Hour, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("precompute %q: %w", p.CaseID, err)
	}
	text := joinNewsText(news)
	if text == "" {
		j.l.Warn("precompute skipped, case has no news", applogger.String("case_id", p.CaseID))
		return nil
	}

	kg, err := j.attributor.ExtractKnowledgeGraph(ctx, text)
	if err != nil {
		return fmt.Errorf("precompute %q: %w", p.CaseID, err)
	}
	if err := j.lib.SavePrecomputed(handle.Meta.CaseID, kg); err != nil {
		return err
	}

	j.l.Info("precomputed attribution saved",
		applogger.String("case_id", handle.Meta.CaseID),
		applogger.Float64("overall_quality", kg.QualityScores[attribution.ScoreOverallQuality]),
	)
	return nil
}

// EnqueueMissingPrecomputes schedules a precompute for every case that does
// not yet carry an offline graph. Called once at startup.
func EnqueueMissingPrecomputes(ctx context.Context, lib *CaseLibrary, q queue.Service, l *applogger.Logger) {
	for _, meta := range lib.Cases() {
		if lib.HasPrecomputed(meta.CaseID) {
			continue
		}
		if err := q.PublishMessage(ctx, JobTypePrecompute, PrecomputePayload{CaseID: meta.CaseID}); err != nil {
			l.Warn("precompute enqueue failed",
				applogger.String("case_id", meta.CaseID),
				applogger.Error(err),
			)
			continue
		}
		l.Info("precompute enqueued", applogger.String("case_id", meta.CaseID))
	}
}
