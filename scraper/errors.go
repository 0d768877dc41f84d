package scraper

import (
	"context"
	"errors"
	"fmt"
)

// ErrCriticalFilter indicates a set filter value could not be activated.
// A run without its set constraint would walk the whole catalog, so this
// fails the run before any extraction starts.
type ErrCriticalFilter struct {
	Dimension string
	Value     string
	Err       error
}

func (e ErrCriticalFilter) Error() string {
	return fmt.Sprintf("critical filter %s=%q: %v", e.Dimension, e.Value, e.Err)
}

func (e ErrCriticalFilter) Unwrap() error {
	return e.Err
}

// ErrExtract wraps a single card's extraction failure. The card's partial
// record is still persisted by the caller.
type ErrExtract struct {
	Code string
	Err  error
}

func (e ErrExtract) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Code, e.Err)
}

func (e ErrExtract) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var critical ErrCriticalFilter
	if errors.As(err, &critical) {
		return "critical_filter"
	}
	var extract ErrExtract
	if errors.As(err, &extract) {
		return "extract"
	}
	return "other"
}
