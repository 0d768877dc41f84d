// Package scraper drives an interactive catalog session: it applies
// filters, waits for the result list to converge, and extracts card
// records from the detail view one code at a time.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardscrape/config"
	"cardscrape/models"
	"cardscrape/pipeline"
)

// Scraper executes one run over an open surface. The surface is a single
// exclusive session, so a Scraper is not safe for concurrent use.
type Scraper struct {
	cfg     *config.Config
	surface Surface
	Metrics *Metrics

	runID        string
	failedCodes  []string
	errorsByType map[string]int
}

// New builds a scraper over an already open surface. metrics may be nil.
func New(cfg *config.Config, surface Surface, metrics *Metrics) *Scraper {
	return &Scraper{
		cfg:          cfg,
		surface:      surface,
		Metrics:      metrics,
		runID:        uuid.NewString(),
		errorsByType: make(map[string]int),
	}
}

// RunParams scopes a single run. Name is the artifact file stem; Filters
// selects what the catalog shows; CodesOnly stops after the identifier
// list and batch image fetch, skipping detail extraction.
type RunParams struct {
	Name      string
	Filters   models.FilterSpec
	CodesOnly bool
}

// Run executes one scraping pass: navigate, filter, converge, collect
// codes, then extract and persist each card. Card-level failures are
// recorded and the run continues; run-level failures flush an emergency
// snapshot before returning.
func (s *Scraper) Run(ctx context.Context, params RunParams) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     s.runID,
		Filters:   params.Filters,
		StartTime: time.Now(),
	}

	slog.Info("starting run",
		slog.String("run_id", s.runID),
		slog.String("name", params.Name),
		slog.Bool("codes_only", params.CodesOnly),
	)

	ledger := pipeline.NewLedger(s.cfg.OutputDir, params.Name, params.Filters, s.cfg.FlushEvery, s.Metrics)
	var fetcher *pipeline.ImageFetcher
	if s.cfg.DownloadImages {
		f, err := pipeline.NewImageFetcher(s.cfg, s.Metrics)
		if err != nil {
			return result, fmt.Errorf("build image fetcher: %w", err)
		}
		fetcher = f
	}

	err := s.scrape(ctx, params, result, ledger, fetcher)
	if err != nil {
		ledger.EmergencySave()
	}

	if fetcher != nil {
		stats := fetcher.Stats()
		result.ImagesFetched = stats.Fetched
		result.ImagesSkipped = stats.Skipped
		result.ImageErrors = stats.Failed
		result.RetryCount = stats.Retries
	}
	result.FailedCodes = s.failedCodes
	result.ErrorsByType = s.errorsByType
	result.EndTime = time.Now()

	if err != nil {
		slog.Error("run failed",
			slog.String("run_id", s.runID),
			slog.String("name", params.Name),
			slog.Any("error", err),
		)
		return result, err
	}
	slog.Info("run finished",
		slog.String("run_id", s.runID),
		slog.String("name", params.Name),
		slog.String("outcome", result.Outcome),
		slog.Int("codes", result.CodesFound),
		slog.Int("cards", result.CardsExtracted),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

func (s *Scraper) scrape(ctx context.Context, params RunParams, result *models.RunResult, ledger *pipeline.Ledger, fetcher *pipeline.ImageFetcher) error {
	if err := s.surface.Navigate(s.cfg.BaseURL); err != nil {
		return fmt.Errorf("navigate to catalog: %w", err)
	}
	if _, err := s.applyFilters(ctx, params.Filters); err != nil {
		return err
	}

	conv, err := s.converge(ctx)
	if err != nil {
		return err
	}
	result.Outcome = conv.Outcome.String()

	codes, err := s.collectCodes()
	if err != nil {
		return err
	}
	result.CodesFound = len(codes)
	if err := ledger.WriteCodes(codes); err != nil {
		return err
	}

	if params.CodesOnly {
		if fetcher != nil {
			fetcher.FetchAll(ctx, codes)
		}
		return nil
	}

	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			return err
		}
		card, extractErr := s.extractCard(code)
		if extractErr != nil {
			s.noteExtractError(code, extractErr)
			result.ErrorCount++
		} else {
			s.Metrics.IncCardExtracted()
			result.CardsExtracted++
		}
		// Failed extractions still persist their partial record.
		if err := ledger.Record(card); err != nil {
			return err
		}
		if fetcher != nil {
			fetcher.Fetch(ctx, code)
		}
		if (i+1)%s.cfg.FlushEvery == 0 {
			slog.Debug("extraction progress",
				slog.String("run_id", s.runID),
				slog.Int("done", i+1),
				slog.Int("total", len(codes)),
			)
		}
	}

	return ledger.Complete()
}

func (s *Scraper) noteExtractError(code string, err error) {
	label := errorTypeLabel(err)
	s.failedCodes = append(s.failedCodes, code)
	s.errorsByType[label]++
	s.Metrics.IncExtractError(label)
	slog.Error("card extraction failed",
		slog.String("run_id", s.runID),
		slog.String("code", code),
		slog.String("error_type", label),
		slog.Any("error", err),
	)
}
