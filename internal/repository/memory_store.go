package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/pkg/util"
)

// MemoryStore is the in-process AlignmentStore backing one replay case. The
// case loader fills it once at startup; replays only read from it, so reads
// take the shared lock.
type MemoryStore struct {
	mu    sync.RWMutex
	ticks []models.Tick
	news  []models.NewsItem
	meta  *models.CaseMeta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ domrepo.AlignmentStore = (*MemoryStore)(nil)

func (s *MemoryStore) InsertTicks(_ context.Context, ticks []models.Tick) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, t := range ticks {
		if _, ok := util.ParseStamp(t.Timestamp); !ok {
			return inserted, fmt.Errorf("insert ticks: bad timestamp %q", t.Timestamp)
		}
		s.ticks = append(s.ticks, t)
		inserted++
	}
	sortTicks(s.ticks)
	return inserted, nil
}

func (s *MemoryStore) InsertNews(_ context.Context, items []models.NewsItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, n := range items {
		if _, ok := util.ParseStamp(n.Timestamp); !ok {
			return inserted, fmt.Errorf("insert news: bad timestamp %q", n.Timestamp)
		}
		s.news = append(s.news, n)
		inserted++
	}
	sortNews(s.news)
	return inserted, nil
}

func (s *MemoryStore) Ticks(_ context.Context, symbol string, limit int) ([]models.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Tick, 0, len(s.ticks))
	for _, t := range s.ticks {
		if symbol != "" && t.Symbol != symbol {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AlignedNews(_ context.Context, symbol, anomalyTS string, before, after time.Duration) ([]models.NewsItem, error) {
	anchor, ok := util.ParseStamp(anomalyTS)
	if !ok {
		return nil, fmt.Errorf("aligned news: bad anomaly timestamp %q", anomalyTS)
	}
	lo := anchor.Add(-before)
	hi := anchor.Add(after)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.NewsItem
	for _, n := range s.news {
		if symbol != "" && n.Symbol != symbol {
			continue
		}
		ts, ok := util.ParseStamp(n.Timestamp)
		if !ok {
			continue
		}
		// window bounds are inclusive on both ends
		if ts.Before(lo) || ts.After(hi) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *MemoryStore) SetCaseMeta(_ context.Context, meta models.CaseMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta.TickCount = len(s.ticks)
	meta.NewsCount = len(s.news)
	s.meta = &meta
	return nil
}

func (s *MemoryStore) CaseMeta(_ context.Context) (*models.CaseMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, nil
	}
	m := *s.meta
	return &m, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// stable sorts keep insertion order for equal stamps
func sortTicks(ticks []models.Tick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		a, _ := util.ParseStamp(ticks[i].Timestamp)
		b, _ := util.ParseStamp(ticks[j].Timestamp)
		return a.Before(b)
	})
}

func sortNews(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, _ := util.ParseStamp(items[i].Timestamp)
		b, _ := util.ParseStamp(items[j].Timestamp)
		return a.Before(b)
	})
}
