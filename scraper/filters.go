package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"cardscrape/models"
)

// Filter dimensions in the order they are applied on the page. Keyword and
// code are text inputs; the rest are click groups.
var dimensions = []struct {
	name   string
	values func(models.FilterSpec) []string
	input  bool
}{
	{name: "set", values: func(f models.FilterSpec) []string { return f.Sets }},
	{name: "type", values: func(f models.FilterSpec) []string { return f.Types }},
	{name: "element", values: func(f models.FilterSpec) []string { return f.Elements }},
	{name: "rarity", values: func(f models.FilterSpec) []string { return f.Rarities }},
	{name: "category", values: func(f models.FilterSpec) []string { return f.Categories }},
	{name: "cost", values: func(f models.FilterSpec) []string { return f.Costs }},
	{name: "flag", values: func(f models.FilterSpec) []string { return f.Flags }},
	{name: "keyword", values: func(f models.FilterSpec) []string { return f.Keywords }, input: true},
	{name: "code", values: func(f models.FilterSpec) []string { return f.Codes }, input: true},
}

// applyFilters activates every requested filter value in dimension order and
// submits the search. The set dimension is critical and fails the run; other
// dimensions log the failure and move on. Returns the number of values that
// were applied.
func (s *Scraper) applyFilters(ctx context.Context, filters models.FilterSpec) (int, error) {
	applied := 0
	for _, dim := range dimensions {
		for _, value := range dim.values(filters) {
			if err := ctx.Err(); err != nil {
				return applied, err
			}
			if err := s.applyFilterValue(dim.name, dim.input, value); err != nil {
				s.Metrics.IncFilterFailure(dim.name)
				if dim.name == "set" {
					return applied, ErrCriticalFilter{Dimension: dim.name, Value: value, Err: err}
				}
				slog.Warn("filter value skipped",
					slog.String("run_id", s.runID),
					slog.String("dimension", dim.name),
					slog.String("value", value),
					slog.Any("error", err),
				)
				continue
			}
			applied++
			s.Metrics.IncFilterApplied(dim.name)
			if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
				return applied, err
			}
		}
	}

	if applied == 0 {
		return 0, nil
	}
	if err := s.surface.Click(s.cfg.Selectors.SearchButton); err != nil {
		return applied, fmt.Errorf("click search: %w", err)
	}
	slog.Debug("filters submitted",
		slog.String("run_id", s.runID),
		slog.Int("applied", applied),
	)
	return applied, nil
}

func (s *Scraper) applyFilterValue(dimension string, input bool, value string) error {
	sel := s.cfg.Selectors
	if input {
		target := sel.KeywordInput
		if dimension == "code" {
			target = sel.CodeInput
		}
		return s.surface.Fill(target, value)
	}
	target, ok := sel.FilterValue(dimension, value)
	if !ok {
		return fmt.Errorf("no filter group for dimension %s", dimension)
	}
	return s.surface.Click(target)
}
