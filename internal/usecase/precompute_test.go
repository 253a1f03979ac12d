package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"TickAttrib/internal/domain/models"
)

func TestPrecomputeJobSavesGraph(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_pre", Symbol: "600519"}
	news := []models.NewsItem{{Symbol: "600519", Timestamp: "09:30:01", Source: "wire", Content: "headline"}}
	writeCaseFixtures(t, dir, meta, flatTicks("600519", 4), news, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	att := &fakeAttributor{kg: &models.KnowledgeGraph{Summary: "computed offline"}}
	job := NewPrecomputeJob(lib, att, testLogger(t))

	payload, _ := json.Marshal(PrecomputePayload{CaseID: "case_pre"})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if !lib.HasPrecomputed("case_pre") {
		t.Fatalf("graph not saved")
	}
	if att.calls != 1 {
		t.Fatalf("attributor calls = %d, want 1", att.calls)
	}
}

func TestPrecomputeJobSkipsCaseWithoutNews(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_silent", Symbol: "000001"}
	writeCaseFixtures(t, dir, meta, flatTicks("000001", 4), nil, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	att := &fakeAttributor{kg: &models.KnowledgeGraph{Summary: "unused"}}
	job := NewPrecomputeJob(lib, att, testLogger(t))

	payload, _ := json.Marshal(PrecomputePayload{CaseID: "case_silent"})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if att.calls != 0 {
		t.Fatalf("attributor called for newsless case")
	}
	if lib.HasPrecomputed("case_silent") {
		t.Fatalf("graph saved for newsless case")
	}
}

func TestPrecomputeJobPropagatesAttributorError(t *testing.T) {
	dir := t.TempDir()
	meta := models.CaseMeta{CaseID: "case_err", Symbol: "600000"}
	news := []models.NewsItem{{Symbol: "600000", Timestamp: "09:30:01", Source: "wire", Content: "headline"}}
	writeCaseFixtures(t, dir, meta, flatTicks("600000", 4), news, nil)

	lib, err := NewCaseLibrary(dir, testLogger(t))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	job := NewPrecomputeJob(lib, &fakeAttributor{err: errors.New("upstream down")}, testLogger(t))

	payload, _ := json.Marshal(PrecomputePayload{CaseID: "case_err"})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err == nil {
		t.Fatalf("expected error for retry scheduling")
	}
}
