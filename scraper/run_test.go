package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"cardscrape/config"
	"cardscrape/models"
	"cardscrape/pipeline"
)

func detailMarkup(name string) string {
	return `<div class="card-detail">
		<div class="card-name">` + name + `</div>
		<div class="card-text"><div class="ability">Brave</div></div>
		<table class="card-attributes">
			<tr><th>Type</th><td>Forward</td></tr>
			<tr><th>Job</th><td>SOLDIER</td></tr>
			<tr><th>Element</th><td>Fire</td></tr>
			<tr><th>Cost</th><td>3</td></tr>
			<tr><th>Power</th><td>8000</td></tr>
			<tr><th>Rarity</th><td>H</td></tr>
			<tr><th>Category</th><td>VII</td></tr>
			<tr><th>Set</th><td>Opus I</td></tr>
		</table>
	</div>`
}

func newRunSurface(cfg *config.Config) *fakeSurface {
	sel := cfg.Selectors
	return &fakeSurface{
		counts: []int{2},
		texts:  map[string]string{sel.ResultHeader: "Results (2)"},
		htmls:  map[string]string{sel.DetailRoot: detailMarkup("Cloud")},
		visibleSel: map[string]bool{
			sel.DetailRoot:  true,
			sel.DetailClose: true,
		},
		attrValues: []string{"1-001H", "1-002R"},
	}
}

func TestRunExtractsAndPersists(t *testing.T) {
	cfg := newTestConfig(t)
	surface := newRunSurface(cfg)
	s := newTestScraper(cfg, surface)

	result, err := s.Run(context.Background(), RunParams{
		Name:    "opus-i",
		Filters: models.FilterSpec{Sets: []string{"Opus I"}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Outcome != "converged" {
		t.Fatalf("outcome = %q, want converged", result.Outcome)
	}
	if result.CodesFound != 2 || result.CardsExtracted != 2 || result.ErrorCount != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(surface.navigations) != 1 || surface.navigations[0] != cfg.BaseURL {
		t.Fatalf("navigations = %v", surface.navigations)
	}

	snap, err := pipeline.ReadSnapshot(pipeline.SnapshotPath(cfg.OutputDir, "opus-i"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !snap.Complete || snap.Total != 2 {
		t.Fatalf("snapshot total=%d complete=%v, want 2 true", snap.Total, snap.Complete)
	}
	first := snap.Cards[0]
	if first.Code != "1-001H" || first.Name != "Cloud" || first.Rarity != "Hero" {
		t.Fatalf("first card = %+v", first)
	}
	if !first.Cost.IsInt || first.Cost.Int != 3 {
		t.Fatalf("first card cost = %+v", first.Cost)
	}
	if first.ImageURL != cfg.ImageURL("1-001H") {
		t.Fatalf("first card image url = %q", first.ImageURL)
	}

	data, err := os.ReadFile(pipeline.CodesPath(cfg.OutputDir, "opus-i"))
	if err != nil {
		t.Fatalf("read codes: %v", err)
	}
	var list models.CodeList
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("parse codes: %v", err)
	}
	if list.Total != 2 {
		t.Fatalf("code list total = %d, want 2", list.Total)
	}
}

func TestRunPersistsPartialRecordOnExtractFailure(t *testing.T) {
	cfg := newTestConfig(t)
	surface := newRunSurface(cfg)
	surface.clickErr = map[string]error{
		cfg.Selectors.ResultItemFor("1-002R"): errors.New("element detached"),
	}
	s := newTestScraper(cfg, surface)

	result, err := s.Run(context.Background(), RunParams{
		Name:    "opus-i",
		Filters: models.FilterSpec{Sets: []string{"Opus I"}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.CardsExtracted != 1 || result.ErrorCount != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.FailedCodes) != 1 || result.FailedCodes[0] != "1-002R" {
		t.Fatalf("failed codes = %v", result.FailedCodes)
	}
	if result.ErrorsByType["extract"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}

	snap, err := pipeline.ReadSnapshot(pipeline.SnapshotPath(cfg.OutputDir, "opus-i"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Total != 2 {
		t.Fatalf("snapshot total = %d, want 2", snap.Total)
	}
	partial := snap.Cards[1]
	if partial.Code != "1-002R" || partial.Name != "" || partial.ImageURL == "" {
		t.Fatalf("partial record = %+v", partial)
	}
}

func TestRunCodesOnlySkipsExtraction(t *testing.T) {
	cfg := newTestConfig(t)
	surface := newRunSurface(cfg)
	s := newTestScraper(cfg, surface)

	result, err := s.Run(context.Background(), RunParams{
		Name:      "opus-i",
		Filters:   models.FilterSpec{Sets: []string{"Opus I"}},
		CodesOnly: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.CodesFound != 2 || result.CardsExtracted != 0 {
		t.Fatalf("result = %+v", result)
	}
	for _, click := range surface.clicks {
		if click == cfg.Selectors.ResultItemFor("1-001H") {
			t.Fatalf("detail view opened in codes-only mode")
		}
	}
	if _, err := os.Stat(pipeline.CodesPath(cfg.OutputDir, "opus-i")); err != nil {
		t.Fatalf("codes file missing: %v", err)
	}
	if _, err := os.Stat(pipeline.SnapshotPath(cfg.OutputDir, "opus-i")); !os.IsNotExist(err) {
		t.Fatalf("codes-only run wrote a card snapshot")
	}
}

func TestRunFailsWhenNavigationFails(t *testing.T) {
	cfg := newTestConfig(t)
	surface := &fakeSurface{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	s := newTestScraper(cfg, surface)

	_, err := s.Run(context.Background(), RunParams{
		Name:    "opus-i",
		Filters: models.FilterSpec{Sets: []string{"Opus I"}},
	})
	if err == nil {
		t.Fatalf("expected navigation error")
	}
	if _, statErr := os.Stat(pipeline.SnapshotPath(cfg.OutputDir, "opus-i")); !os.IsNotExist(statErr) {
		t.Fatalf("failed run wrote a snapshot")
	}
}
