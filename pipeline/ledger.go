package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"cardscrape/models"
	"cardscrape/parser"
)

// ErrLedgerCompleted is returned when Record is called after Complete.
var ErrLedgerCompleted = errors.New("ledger: run already completed")

// LedgerMetrics counts dataset writes by kind.
type LedgerMetrics interface {
	IncSnapshot(kind string)
}

// Ledger accumulates card records for one run and keeps a durable partial
// snapshot on disk while the run progresses. Complete supersedes the partial
// with the final snapshot; EmergencySave flushes whatever was recorded when
// a run dies early.
type Ledger struct {
	dir        string
	name       string
	filters    models.FilterSpec
	flushEvery int
	metrics    LedgerMetrics

	mu        sync.Mutex
	cards     []*models.CardRecord
	seen      map[string]bool
	partials  int
	completed bool
}

// NewLedger builds a ledger writing under dir with the given run name.
// metrics may be nil.
func NewLedger(dir, name string, filters models.FilterSpec, flushEvery int, metrics LedgerMetrics) *Ledger {
	if flushEvery <= 0 {
		flushEvery = 10
	}
	return &Ledger{
		dir:        dir,
		name:       name,
		filters:    filters,
		flushEvery: flushEvery,
		metrics:    metrics,
		seen:       make(map[string]bool),
	}
}

// Record appends a card. A code recorded before is dropped, keeping the
// first occurrence. Every flushEvery-th record also rewrites the partial
// snapshot in place.
func (l *Ledger) Record(card *models.CardRecord) error {
	if err := parser.ValidateCard(card); err != nil {
		return fmt.Errorf("record card: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.completed {
		return ErrLedgerCompleted
	}
	if l.seen[card.Code] {
		slog.Debug("duplicate card dropped",
			slog.String("run", l.name),
			slog.String("code", card.Code),
		)
		return nil
	}
	l.seen[card.Code] = true
	l.cards = append(l.cards, card)
	if len(l.cards)%l.flushEvery != 0 {
		return nil
	}
	return l.writePartialLocked()
}

// WriteCodes persists the identifiers-only list for this run.
func (l *Ledger) WriteCodes(codes []string) error {
	list := &models.CodeList{
		ScrapedAt: time.Now().UTC(),
		Filters:   l.filters,
		Total:     len(codes),
		Codes:     codes,
	}
	if err := writeJSON(CodesPath(l.dir, l.name), list); err != nil {
		return fmt.Errorf("write code list: %w", err)
	}
	if l.metrics != nil {
		l.metrics.IncSnapshot("codes")
	}
	return nil
}

// Complete writes the complete snapshot and removes the partial. A partial
// that never existed is not an error.
func (l *Ledger) Complete() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.snapshotLocked(true)
	if err := writeJSON(SnapshotPath(l.dir, l.name), snap); err != nil {
		return fmt.Errorf("write complete snapshot: %w", err)
	}
	l.completed = true
	if l.metrics != nil {
		l.metrics.IncSnapshot("complete")
	}
	if err := os.Remove(PartialPath(l.dir, l.name)); err != nil && !os.IsNotExist(err) {
		slog.Warn("stale partial snapshot left behind",
			slog.String("run", l.name),
			slog.Any("error", err),
		)
	}
	return nil
}

// EmergencySave flushes the recorded cards as a partial snapshot. It is
// called on run-level failures; its own failure is logged, never returned.
func (l *Ledger) EmergencySave() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.completed || len(l.cards) == 0 {
		return
	}
	if err := l.writePartialLocked(); err != nil {
		slog.Error("emergency save failed",
			slog.String("run", l.name),
			slog.Any("error", err),
		)
		return
	}
	slog.Info("emergency snapshot saved",
		slog.String("run", l.name),
		slog.Int("cards", len(l.cards)),
	)
}

// Count returns the number of recorded cards.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cards)
}

// PartialWrites returns how many partial snapshots were written.
func (l *Ledger) PartialWrites() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.partials
}

func (l *Ledger) writePartialLocked() error {
	snap := l.snapshotLocked(false)
	if err := writeJSON(PartialPath(l.dir, l.name), snap); err != nil {
		return fmt.Errorf("write partial snapshot: %w", err)
	}
	l.partials++
	if l.metrics != nil {
		l.metrics.IncSnapshot("partial")
	}
	slog.Debug("partial snapshot written",
		slog.String("run", l.name),
		slog.Int("cards", len(l.cards)),
	)
	return nil
}

func (l *Ledger) snapshotLocked(complete bool) *models.RunSnapshot {
	cards := make([]*models.CardRecord, len(l.cards))
	copy(cards, l.cards)
	return &models.RunSnapshot{
		ScrapedAt: time.Now().UTC(),
		Filters:   l.filters,
		Total:     len(cards),
		Complete:  complete,
		Cards:     cards,
	}
}
