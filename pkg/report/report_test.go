// pkg/report/report_test.go
package report

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"idxcheck/pkg/check"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleResult() *check.RelationResult {
	return &check.RelationResult{Pages: []check.PageResult{
		{Block: 0},
		{Block: 1, Result: check.Result{Findings: []check.Finding{
			{Block: 1, Item: 2, Attribute: "b", Kind: check.KindOverflow, Severity: check.SeverityStop, Message: "overflows"},
			{Block: 1, Item: 3, Kind: check.KindOverlap, Message: "intersects with item 2"},
		}}},
		{Block: 2, Err: errors.New("short read")},
		{Block: 3, Result: check.Result{Findings: []check.Finding{
			{Block: 3, Kind: check.KindLevel, Message: "leaf page has level 1, expected 0"},
		}}},
	}}
}

func TestSaveRunAndFindings(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	res := sampleResult()

	started := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	id, err := s.SaveRun(ctx, "idx_users_email", started, res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Relation != "idx_users_email" {
		t.Errorf("unexpected run: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, run.StartedAt)
	}
	if run.Pages != 4 || run.Corrupted != 2 || run.Unreadable != 1 || run.Errors != 3 {
		t.Errorf("unexpected counts: %+v", run)
	}

	findings, err := s.Findings(ctx, id)
	if err != nil {
		t.Fatalf("Findings: %v", err)
	}
	if !reflect.DeepEqual(findings, res.Findings()) {
		t.Errorf("findings differ:\ngot  %v\nwant %v", findings, res.Findings())
	}
}

func TestRunsNewestFirst(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()

	first, err := s.SaveRun(ctx, "a", time.Now(), &check.RelationResult{})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	second, err := s.SaveRun(ctx, "b", time.Now(), sampleResult())
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected runs %d, %d; got %+v", second, first, runs)
	}

	findings, err := s.Findings(ctx, first)
	if err != nil {
		t.Fatalf("Findings: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("expected no findings for a clean run, got %v", findings)
	}
}

func TestFindingsUnknownRun(t *testing.T) {
	s, _ := openStore(t)
	if _, err := s.Findings(context.Background(), 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	s, path := openStore(t)
	ctx := context.Background()
	if _, err := s.SaveRun(ctx, "a", time.Now(), sampleResult()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	runs, err := s2.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Errors != 3 {
		t.Errorf("expected the saved run after reopen, got %+v", runs)
	}
}
