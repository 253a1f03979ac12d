package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/services/detector"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/util"
)

// ReplayConfig tunes one replay stream. The detector parameters are pinned
// tighter than the library defaults: replay cases are short, so the stream
// has to reach sensitivity within a handful of ticks.
type ReplayConfig struct {
	Detector     detector.Config `yaml:"detector"`
	TickLimit    int             `yaml:"tick_limit"`
	WarmupTicks  int             `yaml:"warmup_ticks"`
	WarmupDelay  time.Duration   `yaml:"warmup_delay"`
	PausePoll    time.Duration   `yaml:"pause_poll"`
	WindowBefore time.Duration   `yaml:"window_before"`
	WindowAfter  time.Duration   `yaml:"window_after"`
	BufferSize   int             `yaml:"buffer_size"`
}

func (c ReplayConfig) withDefaults() ReplayConfig {
	if c.Detector.WindowSize == 0 {
		c.Detector = detector.Config{
			WindowSize:         5,
			ZThreshold:         1.5,
			VolumeSurgeRatio:   2.0,
			CUSUMDrift:         0.003,
			CUSUMThreshold:     0.01,
			AmihudSurgeRatio:   2.0,
			PosteriorThreshold: 0.35,
		}
	}
	if c.TickLimit <= 0 {
		c.TickLimit = 500
	}
	if c.WarmupTicks <= 0 {
		c.WarmupTicks = 3
	}
	if c.WarmupDelay <= 0 {
		c.WarmupDelay = 150 * time.Millisecond
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 100 * time.Millisecond
	}
	if c.WindowBefore <= 0 {
		c.WindowBefore = 2 * time.Minute
	}
	if c.WindowAfter <= 0 {
		c.WindowAfter = 30 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 16
	}
	return c
}

// ReplayOrchestrator turns a stored case into a paced stream of enriched
// replay points: per-tick detection, news window joins, and attribution
// resolution on every detected anomaly.
type ReplayOrchestrator struct {
	lib      *CaseLibrary
	resolver *AttributionResolver
	counters StreamCounters
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cfg      ReplayConfig
}

func NewReplayOrchestrator(
	lib *CaseLibrary,
	resolver *AttributionResolver,
	counters StreamCounters,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg ReplayConfig,
) *ReplayOrchestrator {
	return &ReplayOrchestrator{
		lib:      lib,
		resolver: resolver,
		counters: counters,
		metrics:  metrics,
		l:        l,
		cfg:      cfg.withDefaults(),
	}
}

// HistoricalAlignment builds the initial chart snapshot: the first warmup
// ticks of the case stamped a few seconds into the past, never anomalous.
// An unknown case yields an empty snapshot rather than an error so the UI
// can render a blank chart.
func (o *ReplayOrchestrator) HistoricalAlignment(ctx context.Context, caseID string) (*models.AlignmentSnapshot, error) {
	handle, err := o.lib.Open(ctx, caseID)
	if err != nil {
		return &models.AlignmentSnapshot{SymbolName: "Unknown", Data: []models.ReplayPoint{}}, nil
	}
	defer func() { _ = handle.Store.Close() }()

	ticks, err := handle.Store.Ticks(ctx, handle.Meta.Symbol, o.cfg.WarmupTicks)
	if err != nil {
		return nil, fmt.Errorf("historical alignment for %q: %w", caseID, err)
	}

	now := time.Now()
	data := make([]models.ReplayPoint, 0, len(ticks))
	for i, t := range ticks {
		stamp := now.Add(-time.Duration(len(ticks)-i) * 2 * time.Second)
		p := pointFromTick(t)
		p.Timestamp = stamp.Format("15:04:05") + ".000"
		data = append(data, p)
	}
	return &models.AlignmentSnapshot{
		Symbol:     handle.Meta.Symbol,
		SymbolName: handle.Meta.SymbolName,
		Data:       data,
	}, nil
}

// Stream opens the case and starts the producer goroutine. The returned
// channel closes when the case is exhausted or ctx is cancelled; the caller
// consumes at its own pace within the channel buffer.
func (o *ReplayOrchestrator) Stream(ctx context.Context, caseID string, ctrl *ControlState) (<-chan models.ReplayPoint, error) {
	handle, err := o.lib.Open(ctx, caseID)
	if err != nil {
		return nil, err
	}

	ticks, err := handle.Store.Ticks(ctx, handle.Meta.Symbol, o.cfg.TickLimit)
	if err != nil {
		_ = handle.Store.Close()
		return nil, fmt.Errorf("stream %q: %w", caseID, err)
	}
	if len(ticks) <= o.cfg.WarmupTicks {
		_ = handle.Store.Close()
		return nil, fmt.Errorf("stream %q: only %d ticks, need more than %d", caseID, len(ticks), o.cfg.WarmupTicks)
	}

	out := make(chan models.ReplayPoint, o.cfg.BufferSize)
	go o.produce(ctx, handle, ticks, ctrl, out)
	return out, nil
}

func (o *ReplayOrchestrator) produce(ctx context.Context, handle *CaseHandle, ticks []models.Tick, ctrl *ControlState, out chan<- models.ReplayPoint) {
	defer close(out)
	defer func() { _ = handle.Store.Close() }()

	det := detector.New(o.cfg.Detector)
	warmup := ticks[:o.cfg.WarmupTicks]

	// warmup primes the detector windows and paints the chart baseline; those
	// points are never flagged
	for _, t := range warmup {
		det.Feed(t.Price, t.Volume)
		if !o.emit(ctx, out, o.restamp(pointFromTick(t)), t.Symbol) {
			return
		}
		if !sleepCtx(ctx, o.cfg.WarmupDelay) {
			return
		}
	}

	o.l.Info("replay stream started",
		applogger.String("case_id", handle.Meta.CaseID),
		applogger.String("symbol", handle.Meta.Symbol),
		applogger.Int("ticks", len(ticks)),
	)

	for _, t := range ticks[o.cfg.WarmupTicks:] {
		if !o.waitWhilePaused(ctx, ctrl) {
			return
		}

		result := det.Feed(t.Price, t.Volume)
		point := o.restamp(pointFromTick(t))
		point.DetectionStats = &result

		if result.IsAnomaly {
			point.HasAnomaly = true
			o.counters.AnomalyDetected()
			o.metrics.RecordAnomaly(t.Symbol)
			o.l.Warn("anomaly detected",
				applogger.String("symbol", t.Symbol),
				applogger.String("at", t.Timestamp),
				applogger.Float64("posterior", result.AnomalyProbability),
				applogger.String("method", result.DetectionMethod),
			)
			point.AnomalyDetails = o.attribute(ctx, handle, t)
		}

		if !o.emit(ctx, out, point, t.Symbol) {
			return
		}

		speed := ctrl.Speed()
		if !sleepCtx(ctx, time.Duration(float64(time.Second)/speed)) {
			return
		}
	}

	o.l.Info("replay stream finished", applogger.String("case_id", handle.Meta.CaseID))
}

// attribute joins the news window around the anomalous tick and resolves an
// explanation for it. Join failures degrade to the precomputed graph.
func (o *ReplayOrchestrator) attribute(ctx context.Context, handle *CaseHandle, t models.Tick) *models.KnowledgeGraph {
	news, err := handle.Store.AlignedNews(ctx, t.Symbol, t.Timestamp, o.cfg.WindowBefore, o.cfg.WindowAfter)
	if err != nil {
		o.metrics.RecordError("news_join")
		o.l.Warn("news window join failed", applogger.Error(err))
	}
	return o.resolver.Resolve(ctx, joinNewsText(news), handle.Precomputed)
}

func (o *ReplayOrchestrator) emit(ctx context.Context, out chan<- models.ReplayPoint, p models.ReplayPoint, symbol string) bool {
	select {
	case out <- p:
		o.counters.TickPushed()
		o.metrics.RecordTickPushed(symbol)
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *ReplayOrchestrator) waitWhilePaused(ctx context.Context, ctrl *ControlState) bool {
	for ctrl.Paused() {
		if !sleepCtx(ctx, o.cfg.PausePoll) {
			return false
		}
	}
	return true
}

// restamp rewrites the point timestamp to the current wall clock so the
// consumer chart scrolls in real time regardless of the case's trading day.
func (o *ReplayOrchestrator) restamp(p models.ReplayPoint) models.ReplayPoint {
	p.Timestamp = util.ClockStamp(time.Now())
	return p
}

// pointFromTick maps a stored tick to an outbound point with display rounding:
// prices to cents, volume to whole units.
func pointFromTick(t models.Tick) models.ReplayPoint {
	return models.ReplayPoint{
		Timestamp: t.Timestamp,
		Open:      util.Round(t.Open, 2),
		High:      util.Round(t.High, 2),
		Low:       util.Round(t.Low, 2),
		Close:     util.Round(t.Close, 2),
		Volume:    util.Round(t.Volume, 0),
	}
}

// joinNewsText renders the aligned news window as the canonical attribution
// input, one "[ts][source] content" line per item. This exact text is also
// the cache key, so formatting changes invalidate the cache.
func joinNewsText(news []models.NewsItem) string {
	if len(news) == 0 {
		return ""
	}
	lines := make([]string, 0, len(news))
	for _, n := range news {
		lines = append(lines, fmt.Sprintf("[%s][%s] %s", n.Timestamp, n.Source, n.Content))
	}
	return strings.Join(lines, "\n")
}

// sleepCtx sleeps for d unless ctx ends first; returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
