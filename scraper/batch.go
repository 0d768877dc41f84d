package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"cardscrape/config"
	"cardscrape/models"
	"cardscrape/pipeline"
)

// Orchestrator walks the configured sets one partition at a time over a
// single lazily opened surface, then writes the batch summary and the
// combined dataset.
type Orchestrator struct {
	cfg     *config.Config
	factory SurfaceFactory
	metrics *Metrics
	surface Surface
}

// NewOrchestrator builds a batch orchestrator. The factory is invoked only
// once a partition actually needs scraping.
func NewOrchestrator(cfg *config.Config, factory SurfaceFactory, metrics *Metrics) *Orchestrator {
	return &Orchestrator{cfg: cfg, factory: factory, metrics: metrics}
}

// RunAll scrapes every configured set in order. Sets whose complete
// snapshot already exists are skipped unless force is set. resumeFrom,
// when non-empty, starts the walk at that set. Partition failures are
// recorded in the summary and do not stop the batch.
func (o *Orchestrator) RunAll(ctx context.Context, force bool, resumeFrom string) (*models.BatchSummary, error) {
	sets := o.cfg.Sets
	if resumeFrom != "" {
		idx := -1
		for i, set := range sets {
			if set == resumeFrom || pipeline.Slug(set) == pipeline.Slug(resumeFrom) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("resume set %q is not configured", resumeFrom)
		}
		sets = sets[idx:]
	}

	defer o.closeSurface()

	start := time.Now()
	summary := &models.BatchSummary{Results: make([]models.PartitionResult, 0, len(sets))}

	slog.Info("starting batch",
		slog.Int("partitions", len(sets)),
		slog.Bool("force", force),
	)

	for i, set := range sets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := o.runPartition(ctx, set, force)
		summary.Results = append(summary.Results, res)
		summary.TotalCards += res.Count
		o.metrics.IncPartition(res.Status)

		if res.Status != models.StatusSkipped && i < len(sets)-1 {
			if err := sleep(ctx, o.cfg.PartitionDelay); err != nil {
				return summary, err
			}
		}
	}

	summary.ScrapedAt = time.Now().UTC()
	summary.ElapsedMinutes = math.Round(time.Since(start).Minutes()*10) / 10

	if err := pipeline.WriteSummary(o.cfg.OutputDir, summary, o.metrics); err != nil {
		return summary, err
	}
	// Merge over the full configured list so a resumed batch still picks up
	// earlier partitions from disk.
	if _, err := pipeline.Combine(o.cfg.OutputDir, o.cfg.Sets, o.metrics); err != nil {
		return summary, err
	}

	slog.Info("batch finished",
		slog.Int("partitions", len(summary.Results)),
		slog.Int("cards", summary.TotalCards),
		slog.Float64("elapsed_minutes", summary.ElapsedMinutes),
	)
	return summary, nil
}

func (o *Orchestrator) runPartition(ctx context.Context, set string, force bool) models.PartitionResult {
	name := pipeline.Slug(set)

	if !force {
		if count, ok := pipeline.SnapshotCount(o.cfg.OutputDir, name); ok {
			slog.Info("partition already scraped",
				slog.String("set", set),
				slog.Int("cards", count),
			)
			return models.PartitionResult{Set: set, Count: count, Status: models.StatusSkipped}
		}
	}

	surface, err := o.ensureSurface()
	if err != nil {
		return models.PartitionResult{Set: set, Status: models.StatusFailed, Error: err.Error()}
	}

	s := New(o.cfg, surface, o.metrics)
	result, err := s.Run(ctx, RunParams{
		Name:    name,
		Filters: models.FilterSpec{Sets: []string{set}},
	})
	if err != nil {
		return models.PartitionResult{Set: set, Status: models.StatusFailed, Error: err.Error()}
	}
	return models.PartitionResult{Set: set, Count: result.CodesFound, Status: models.StatusScraped}
}

func (o *Orchestrator) ensureSurface() (Surface, error) {
	if o.surface != nil {
		return o.surface, nil
	}
	surface, err := o.factory()
	if err != nil {
		return nil, fmt.Errorf("open surface: %w", err)
	}
	o.surface = surface
	return surface, nil
}

func (o *Orchestrator) closeSurface() {
	if o.surface == nil {
		return
	}
	if err := o.surface.Close(); err != nil {
		slog.Warn("close surface failed", slog.Any("error", err))
	}
	o.surface = nil
}
