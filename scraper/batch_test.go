package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"cardscrape/models"
	"cardscrape/pipeline"
)

func writeCompleteSnapshot(t *testing.T, dir, set string, codes ...string) {
	t.Helper()
	cards := make([]*models.CardRecord, 0, len(codes))
	for _, code := range codes {
		cards = append(cards, &models.CardRecord{
			Code:     code,
			Set:      set,
			ImageURL: "http://images.test/cards/" + code + "_eg.jpg",
		})
	}
	snap := &models.RunSnapshot{
		ScrapedAt: time.Now().UTC(),
		Filters:   models.FilterSpec{Sets: []string{set}},
		Total:     len(cards),
		Complete:  true,
		Cards:     cards,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if err := os.WriteFile(pipeline.SnapshotPath(dir, pipeline.Slug(set)), data, 0o644); err != nil {
		t.Fatalf("write snapshot for %s: %v", set, err)
	}
}

func TestRunAllSkipsScrapedPartitionsWithoutOpeningSurface(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Sets = []string{"Opus I", "Opus II"}
	writeCompleteSnapshot(t, cfg.OutputDir, "Opus I", "1-001H", "1-002R")
	writeCompleteSnapshot(t, cfg.OutputDir, "Opus II", "2-001L")

	factoryCalls := 0
	factory := func() (Surface, error) {
		factoryCalls++
		return nil, errors.New("surface must not open")
	}
	o := NewOrchestrator(cfg, factory, nil)

	summary, err := o.RunAll(context.Background(), false, "")
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if factoryCalls != 0 {
		t.Fatalf("factory invoked %d times for a fully skipped batch", factoryCalls)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(summary.Results))
	}
	for i, res := range summary.Results {
		if res.Status != models.StatusSkipped {
			t.Fatalf("result %d status = %q, want skipped", i, res.Status)
		}
	}
	if summary.TotalCards != 3 {
		t.Fatalf("total cards = %d, want 3", summary.TotalCards)
	}

	combined, err := os.ReadFile(pipeline.CombinedPath(cfg.OutputDir))
	if err != nil {
		t.Fatalf("read combined dataset: %v", err)
	}
	var dataset models.CombinedDataset
	if err := json.Unmarshal(combined, &dataset); err != nil {
		t.Fatalf("parse combined dataset: %v", err)
	}
	if dataset.Total != 3 || len(dataset.Sets) != 2 {
		t.Fatalf("combined total=%d sets=%d, want 3 and 2", dataset.Total, len(dataset.Sets))
	}
	if _, err := os.Stat(pipeline.SummaryPath(cfg.OutputDir)); err != nil {
		t.Fatalf("summary file missing: %v", err)
	}
}

func TestRunAllContinuesAfterFailedPartition(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Sets = []string{"Opus I", "Opus II"}

	surface := &fakeSurface{
		counts:     []int{0},
		visibleSel: map[string]bool{cfg.Selectors.NoResults: true},
		navErr:     errors.New("tab crashed"),
		navErrOnce: true,
	}
	factoryCalls := 0
	factory := func() (Surface, error) {
		factoryCalls++
		return surface, nil
	}
	o := NewOrchestrator(cfg, factory, nil)

	summary, err := o.RunAll(context.Background(), false, "")
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if factoryCalls != 1 {
		t.Fatalf("factory invoked %d times, want 1", factoryCalls)
	}

	if summary.Results[0].Status != models.StatusFailed || summary.Results[0].Error == "" {
		t.Fatalf("first result = %+v", summary.Results[0])
	}
	if summary.Results[1].Status != models.StatusScraped || summary.Results[1].Count != 0 {
		t.Fatalf("second result = %+v", summary.Results[1])
	}
	if !surface.closed {
		t.Fatalf("surface left open after batch")
	}

	// The failed partition left no snapshot; the empty one is complete.
	if _, err := os.Stat(pipeline.SnapshotPath(cfg.OutputDir, "opus-i")); !os.IsNotExist(err) {
		t.Fatalf("failed partition wrote a snapshot")
	}
	snap, err := pipeline.ReadSnapshot(pipeline.SnapshotPath(cfg.OutputDir, "opus-ii"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !snap.Complete || snap.Total != 0 {
		t.Fatalf("snapshot total=%d complete=%v, want 0 true", snap.Total, snap.Complete)
	}
}

func TestRunAllResumeFrom(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Sets = []string{"Opus I", "Opus II", "Opus III"}
	writeCompleteSnapshot(t, cfg.OutputDir, "Opus II", "2-001L")
	writeCompleteSnapshot(t, cfg.OutputDir, "Opus III", "3-001C")

	o := NewOrchestrator(cfg, func() (Surface, error) {
		return nil, errors.New("surface must not open")
	}, nil)

	summary, err := o.RunAll(context.Background(), false, "Opus II")
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(summary.Results))
	}
	if summary.Results[0].Set != "Opus II" || summary.Results[1].Set != "Opus III" {
		t.Fatalf("resumed walk visited %v", summary.Results)
	}
}

func TestRunAllResumeFromUnknownSet(t *testing.T) {
	cfg := newTestConfig(t)
	o := NewOrchestrator(cfg, func() (Surface, error) {
		return nil, errors.New("surface must not open")
	}, nil)

	if _, err := o.RunAll(context.Background(), false, "Opus XCIX"); err == nil {
		t.Fatalf("expected error for unknown resume set")
	}
}
