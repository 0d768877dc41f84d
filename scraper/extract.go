package scraper

import (
	"fmt"
	"log/slog"
	"time"

	"cardscrape/models"
	"cardscrape/parser"
)

// extractCard opens the detail view for one code, captures its markup, and
// parses the record. The detail view is closed before returning, on error
// paths too; close problems are logged and swallowed. On failure the
// returned record still carries whatever was captured, at minimum the code
// and derived image URL.
func (s *Scraper) extractCard(code string) (*models.CardRecord, error) {
	sel := s.cfg.Selectors
	imageURL := s.cfg.ImageURL(code)

	start := time.Now()
	defer func() {
		s.Metrics.ObserveDetailDuration(time.Since(start))
	}()
	defer s.closeDetail(code)

	if err := s.surface.Click(sel.ResultItemFor(code)); err != nil {
		return &models.CardRecord{Code: code, ImageURL: imageURL},
			ErrExtract{Code: code, Err: fmt.Errorf("open detail: %w", err)}
	}
	if err := s.surface.WaitVisible(sel.DetailRoot, s.cfg.OpTimeout); err != nil {
		return &models.CardRecord{Code: code, ImageURL: imageURL},
			ErrExtract{Code: code, Err: fmt.Errorf("detail did not render: %w", err)}
	}
	markup, err := s.surface.HTML(sel.DetailRoot)
	if err != nil {
		return &models.CardRecord{Code: code, ImageURL: imageURL},
			ErrExtract{Code: code, Err: fmt.Errorf("read detail markup: %w", err)}
	}

	card, err := parser.ParseDetail(markup, code, imageURL, sel.Detail)
	if err != nil {
		return card, ErrExtract{Code: code, Err: err}
	}
	return card, nil
}

// closeDetail clicks the detail view's close control if the view is still
// open. Best effort: a failure here must not mask the extraction result.
func (s *Scraper) closeDetail(code string) {
	sel := s.cfg.Selectors
	if !s.surface.Visible(sel.DetailRoot) {
		return
	}
	if sel.DetailClose != "" && s.surface.Visible(sel.DetailClose) {
		if err := s.surface.Click(sel.DetailClose); err != nil {
			slog.Debug("close detail failed", slog.String("code", code), slog.Any("error", err))
		}
		return
	}
	slog.Debug("detail close control not visible", slog.String("code", code))
}
