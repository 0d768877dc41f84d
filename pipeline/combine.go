package pipeline

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cardscrape/models"
)

// Combine merges the complete snapshots of the given sets into a single
// dataset and writes it to disk. Missing or incomplete snapshots are
// skipped, never fatal, so the merge reflects whatever is on disk.
func Combine(dir string, sets []string, metrics LedgerMetrics) (*models.CombinedDataset, error) {
	combined := &models.CombinedDataset{
		ScrapedAt: time.Now().UTC(),
		Sets:      []models.SetCount{},
		Cards:     []*models.CardRecord{},
	}

	for _, set := range sets {
		snap, err := ReadSnapshot(SnapshotPath(dir, Slug(set)))
		if err != nil {
			slog.Info("partition snapshot unavailable, skipping",
				slog.String("set", set),
				slog.Any("error", err),
			)
			continue
		}
		if !snap.Complete {
			slog.Warn("partition snapshot incomplete, skipping", slog.String("set", set))
			continue
		}
		combined.Sets = append(combined.Sets, models.SetCount{Set: set, Count: len(snap.Cards)})
		combined.Cards = append(combined.Cards, snap.Cards...)
		combined.Total += len(snap.Cards)
	}

	if err := writeJSON(CombinedPath(dir), combined); err != nil {
		return nil, fmt.Errorf("write combined dataset: %w", err)
	}
	if metrics != nil {
		metrics.IncSnapshot("combined")
	}
	slog.Info("combined dataset written",
		slog.Int("sets", len(combined.Sets)),
		slog.Int("cards", combined.Total),
	)
	return combined, nil
}

// WriteSummary persists the batch summary artifact.
func WriteSummary(dir string, summary *models.BatchSummary, metrics LedgerMetrics) error {
	if err := writeJSON(SummaryPath(dir), summary); err != nil {
		return fmt.Errorf("write batch summary: %w", err)
	}
	if metrics != nil {
		metrics.IncSnapshot("summary")
	}
	return nil
}

// ExportCSV writes the combined dataset as a flat CSV next to the JSON file.
func ExportCSV(dir string, combined *models.CombinedDataset) error {
	filename := CombinedCSVPath(dir)
	if err := ensureDir(filename); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := []string{"code", "name", "type", "job", "element", "cost", "power", "rarity", "category", "set", "text", "image_url"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, card := range combined.Cards {
		power := ""
		if card.Power != nil {
			power = card.Power.String()
		}
		record := []string{
			card.Code,
			card.Name,
			card.Type,
			card.Job,
			card.Element,
			card.Cost.String(),
			power,
			card.Rarity,
			card.Category,
			card.Set,
			card.Text,
			card.ImageURL,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}
