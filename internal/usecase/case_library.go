package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/repository"
	applogger "TickAttrib/pkg/logger"
)

// ErrCaseNotFound is returned for unknown case identifiers.
var ErrCaseNotFound = errors.New("case not found")

const (
	indexFile       = "cases_index.json"
	ticksFile       = "ticks.json"
	newsFile        = "news.json"
	precomputedFile = "precomputed_kg.json"
)

// CaseLibrary serves replay cases from a fixture directory. Layout:
//
//	<dir>/cases_index.json           case metadata array
//	<dir>/<case_id>/ticks.json       tick fixture
//	<dir>/<case_id>/news.json        news fixture
//	<dir>/<case_id>/precomputed_kg.json  offline attribution (optional)
//
// A missing directory yields an empty library, not an error, so the API can
// come up before any case data is provisioned.
type CaseLibrary struct {
	dir   string
	l     *applogger.Logger
	index []models.CaseMeta
}

// CaseHandle is one opened case: its metadata, a store loaded with the case
// fixtures, and the offline attribution graph if one was precomputed.
type CaseHandle struct {
	Meta        models.CaseMeta
	Store       domrepo.AlignmentStore
	Precomputed *models.KnowledgeGraph
}

func NewCaseLibrary(dir string, l *applogger.Logger) (*CaseLibrary, error) {
	lib := &CaseLibrary{dir: dir, l: l}

	data, err := os.ReadFile(filepath.Join(dir, indexFile))
	if os.IsNotExist(err) {
		if l != nil {
			l.Warn("case library index missing, serving empty library", applogger.String("dir", dir))
		}
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read case index: %w", err)
	}
	if err := json.Unmarshal(data, &lib.index); err != nil {
		return nil, fmt.Errorf("parse case index: %w", err)
	}
	return lib, nil
}

// Cases returns the case metadata list in index order.
func (cl *CaseLibrary) Cases() []models.CaseMeta {
	out := make([]models.CaseMeta, len(cl.index))
	copy(out, cl.index)
	return out
}

// Lookup finds a case by id, falling back to a symbol match so callers can
// pass either identifier.
func (cl *CaseLibrary) Lookup(caseID string) (models.CaseMeta, bool) {
	for _, meta := range cl.index {
		if meta.CaseID == caseID {
			return meta, true
		}
	}
	for _, meta := range cl.index {
		if meta.Symbol == caseID {
			return meta, true
		}
	}
	return models.CaseMeta{}, false
}

// Open loads one case's fixtures into a fresh in-memory store. The caller
// owns the handle; closing its store is a no-op but keeps the contract.
func (cl *CaseLibrary) Open(ctx context.Context, caseID string) (*CaseHandle, error) {
	meta, ok := cl.Lookup(caseID)
	if !ok {
		return nil, fmt.Errorf("case %q: %w", caseID, ErrCaseNotFound)
	}

	store := repository.NewMemoryStore()

	var ticks []models.Tick
	if err := cl.readJSON(meta.CaseID, ticksFile, &ticks); err != nil {
		return nil, err
	}
	if _, err := store.InsertTicks(ctx, ticks); err != nil {
		return nil, fmt.Errorf("load case %q ticks: %w", meta.CaseID, err)
	}

	// a case without news is legal: the anomaly then resolves through the
	// precomputed graph only
	var news []models.NewsItem
	switch err := cl.readJSON(meta.CaseID, newsFile, &news); {
	case err == nil:
		if _, err := store.InsertNews(ctx, news); err != nil {
			return nil, fmt.Errorf("load case %q news: %w", meta.CaseID, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	if err := store.SetCaseMeta(ctx, meta); err != nil {
		return nil, fmt.Errorf("load case %q meta: %w", meta.CaseID, err)
	}

	handle := &CaseHandle{Meta: meta, Store: store}
	var kg models.KnowledgeGraph
	switch err := cl.readJSON(meta.CaseID, precomputedFile, &kg); {
	case err == nil && kg.Valid():
		handle.Precomputed = &kg
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		if cl.l != nil {
			cl.l.Warn("precomputed graph unreadable", applogger.String("case_id", meta.CaseID), applogger.Error(err))
		}
	}
	return handle, nil
}

// HasPrecomputed reports whether a case already carries an offline graph.
func (cl *CaseLibrary) HasPrecomputed(caseID string) bool {
	_, err := os.Stat(filepath.Join(cl.dir, caseID, precomputedFile))
	return err == nil
}

// SavePrecomputed writes the offline attribution graph for a case. Last write
// wins, same as the cache contract.
func (cl *CaseLibrary) SavePrecomputed(caseID string, kg *models.KnowledgeGraph) error {
	if !kg.Valid() {
		return fmt.Errorf("save precomputed for %q: invalid graph", caseID)
	}
	data, err := json.MarshalIndent(kg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode precomputed for %q: %w", caseID, err)
	}
	path := filepath.Join(cl.dir, caseID, precomputedFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write precomputed for %q: %w", caseID, err)
	}
	return nil
}

func (cl *CaseLibrary) readJSON(caseID, name string, dest interface{}) error {
	data, err := os.ReadFile(filepath.Join(cl.dir, caseID, name))
	if err != nil {
		return fmt.Errorf("read case %q %s: %w", caseID, name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse case %q %s: %w", caseID, name, err)
	}
	return nil
}
