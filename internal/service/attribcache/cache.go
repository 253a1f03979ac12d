package attribcache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync/atomic"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	pkgcache "TickAttrib/pkg/cache"
	applogger "TickAttrib/pkg/logger"
)

const (
	keyPrefix  = "attrib_kg:"
	defaultTTL = time.Hour
)

// Service stores attribution results keyed by the md5 of the exact joined
// news text, and keeps the process-wide counters the metrics endpoint
// reports. Redis backs it when reachable; otherwise it degrades to the
// in-process fallback transparently.
type Service struct {
	backend *pkgcache.FailoverCache
	ttl     time.Duration
	l       *applogger.Logger

	startedAt time.Time

	wsConnections  atomic.Int64
	ticksPushed    atomic.Int64
	anomalies      atomic.Int64
	llmCalls       atomic.Int64
	llmCacheHits   atomic.Int64
	llmLatencyMS   atomic.Int64 // running sum, averaged at snapshot time
	entriesWritten atomic.Int64
}

var _ domrepo.AttributionCache = (*Service)(nil)

func New(backend *pkgcache.FailoverCache, ttl time.Duration, l *applogger.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		backend:   backend,
		ttl:       ttl,
		l:         l,
		startedAt: time.Now(),
	}
}

// Key derives the cache key for a joined news text.
func Key(text string) string {
	return fmt.Sprintf("%s%x", keyPrefix, md5.Sum([]byte(text)))
}

func (s *Service) Get(ctx context.Context, text string) (*models.KnowledgeGraph, bool) {
	var kg models.KnowledgeGraph
	if err := s.backend.Get(ctx, Key(text), &kg); err != nil {
		return nil, false
	}
	if !kg.Valid() {
		return nil, false
	}
	s.llmCacheHits.Add(1)
	return &kg, true
}

// Set stores a graph, last write wins. Invalid graphs are dropped so a
// malformed upstream response can never poison the cache.
func (s *Service) Set(ctx context.Context, text string, kg *models.KnowledgeGraph) {
	if !kg.Valid() {
		return
	}
	if err := s.backend.Set(ctx, Key(text), kg, s.ttl); err != nil {
		if s.l != nil {
			s.l.Warn("attribution cache write failed", applogger.Error(err))
		}
		return
	}
	s.entriesWritten.Add(1)
}

// --- counters ---

func (s *Service) WSConnected()     { s.wsConnections.Add(1) }
func (s *Service) WSDisconnected()  { s.wsConnections.Add(-1) }
func (s *Service) TickPushed()      { s.ticksPushed.Add(1) }
func (s *Service) AnomalyDetected() { s.anomalies.Add(1) }

// LLMCallFinished records one live attribution round trip.
func (s *Service) LLMCallFinished(latency time.Duration) {
	s.llmCalls.Add(1)
	s.llmLatencyMS.Add(latency.Milliseconds())
}

// Snapshot returns the current counter values.
func (s *Service) Snapshot() models.SystemMetrics {
	calls := s.llmCalls.Load()
	avg := int64(0)
	if calls > 0 {
		avg = s.llmLatencyMS.Load() / calls
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	entries, err := s.backend.Entries(ctx, keyPrefix+"*")
	if err != nil {
		// keyspace scan failed, fall back to the write counter
		entries = s.entriesWritten.Load()
	}

	return models.SystemMetrics{
		WSConnections:     s.wsConnections.Load(),
		TotalTicksPushed:  s.ticksPushed.Load(),
		AnomaliesDetected: s.anomalies.Load(),
		LLMCalls:          calls,
		LLMCacheHits:      s.llmCacheHits.Load(),
		AvgLLMLatencyMS:   avg,
		UptimeFormatted:   formatUptime(time.Since(s.startedAt)),
		CacheMode:         s.backend.Mode(),
		CacheEntries:      entries,
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
