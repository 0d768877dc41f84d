package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cardscrape/parser"
)

// ConvergenceState names a phase of the result convergence loop.
// AwaitingFirstResults and Converging are transient; the rest are terminal.
type ConvergenceState int

const (
	StateAwaitingFirstResults ConvergenceState = iota
	StateConverging
	StateConverged
	StateStalled
	StateSafetyStopped
)

func (s ConvergenceState) String() string {
	switch s {
	case StateAwaitingFirstResults:
		return "awaiting_first_results"
	case StateConverging:
		return "converging"
	case StateConverged:
		return "converged"
	case StateStalled:
		return "stalled"
	case StateSafetyStopped:
		return "safety_stopped"
	default:
		return "unknown"
	}
}

// Convergence is the terminal report of the result convergence loop.
type Convergence struct {
	Outcome  ConvergenceState
	Count    int
	Expected int
	HasTotal bool
	Polls    int
}

// converge drives the result list until it holds every expected result, the
// count stops moving, or the safety ceiling trips. Converged is the only
// outcome that guarantees completeness; Stalled and SafetyStopped terminate
// with whatever rendered.
func (s *Scraper) converge(ctx context.Context) (Convergence, error) {
	conv := Convergence{Outcome: StateAwaitingFirstResults}
	sel := s.cfg.Selectors

	for attempt := 0; attempt < s.cfg.FirstResultsRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return conv, err
		}
		count, err := s.surface.Count(sel.ResultItem)
		if err != nil {
			return conv, fmt.Errorf("count results: %w", err)
		}
		conv.Polls++
		s.Metrics.IncPoll()
		if count > 0 {
			conv.Count = count
			conv.Outcome = StateConverging
			break
		}
		if s.surface.Visible(sel.NoResults) {
			// an explicitly empty result set is a valid terminal
			conv.Outcome = StateConverged
			return s.finishConvergence(conv), nil
		}
		if err := sleep(ctx, s.cfg.PollInterval); err != nil {
			return conv, err
		}
	}
	if conv.Outcome != StateConverging {
		// the retry budget ran out with nothing rendered
		conv.Outcome = StateStalled
		return s.finishConvergence(conv), nil
	}

	stall := 0
	for {
		if err := ctx.Err(); err != nil {
			return conv, err
		}
		if header, err := s.surface.Text(sel.ResultHeader); err == nil {
			if total, ok := parser.ParseResultTotal(header); ok {
				conv.Expected = total
				conv.HasTotal = true
			}
		}
		if conv.HasTotal && conv.Count >= conv.Expected {
			conv.Outcome = StateConverged
			break
		}
		if !conv.HasTotal && conv.Count > s.cfg.SafetyCeiling {
			conv.Outcome = StateSafetyStopped
			break
		}
		if stall >= s.cfg.StallThreshold {
			conv.Outcome = StateStalled
			break
		}

		if err := sleep(ctx, s.cfg.PollInterval); err != nil {
			return conv, err
		}
		count, err := s.surface.Count(sel.ResultItem)
		if err != nil {
			return conv, fmt.Errorf("count results: %w", err)
		}
		conv.Polls++
		s.Metrics.IncPoll()
		if count > conv.Count {
			conv.Count = count
			stall = 0
			continue
		}
		stall++
		s.nudgeResults()
	}
	return s.finishConvergence(conv), nil
}

func (s *Scraper) finishConvergence(conv Convergence) Convergence {
	s.Metrics.IncOutcome(conv.Outcome.String())
	logFn := slog.Info
	if conv.Outcome != StateConverged {
		logFn = slog.Warn
	}
	logFn("results settled",
		slog.String("run_id", s.runID),
		slog.String("outcome", conv.Outcome.String()),
		slog.Int("count", conv.Count),
		slog.Int("expected", conv.Expected),
		slog.Bool("total_known", conv.HasTotal),
		slog.Int("polls", conv.Polls),
	)
	return conv
}

// nudgeResults tries to make a stuck result list move: a visible load-more
// control is clicked, otherwise the page scrolls to its bottom.
func (s *Scraper) nudgeResults() {
	sel := s.cfg.Selectors
	if sel.LoadMore != "" && s.surface.Visible(sel.LoadMore) {
		if err := s.surface.Click(sel.LoadMore); err == nil {
			return
		}
	}
	if err := s.surface.ScrollBottom(); err != nil {
		slog.Debug("scroll to bottom failed", slog.Any("error", err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
