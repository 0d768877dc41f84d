// Package pipeline persists scrape results: run snapshots, identifier
// lists, card images, the batch summary, and the combined dataset.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"cardscrape/models"
)

var (
	slugStripRE = regexp.MustCompile(`['’]`)
	slugSepRE   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a set name into its artifact file stem: "Rebellion's Call"
// becomes "rebellions-call".
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStripRE.ReplaceAllString(s, "")
	s = slugSepRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SnapshotPath is the complete snapshot file for a run name.
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, "cards_"+name+".json")
}

// PartialPath is the in-progress snapshot file for a run name.
func PartialPath(dir, name string) string {
	return filepath.Join(dir, "cards_"+name+"_partial.json")
}

// CodesPath is the identifiers-only file for a run name.
func CodesPath(dir, name string) string {
	return filepath.Join(dir, "codes_"+name+".json")
}

// SummaryPath is the batch summary file.
func SummaryPath(dir string) string {
	return filepath.Join(dir, "batch_summary.json")
}

// CombinedPath is the combined dataset file.
func CombinedPath(dir string) string {
	return filepath.Join(dir, "all_cards.json")
}

// CombinedCSVPath is the CSV export of the combined dataset.
func CombinedCSVPath(dir string) string {
	return filepath.Join(dir, "all_cards.csv")
}

// ReadSnapshot loads a run snapshot from disk.
func ReadSnapshot(filename string) (*models.RunSnapshot, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var snap models.RunSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filename, err)
	}
	return &snap, nil
}

// SnapshotCount reports how many cards a partition's complete snapshot
// holds. ok is false when the file is missing, unreadable, or not marked
// complete.
func SnapshotCount(dir, name string) (int, bool) {
	snap, err := ReadSnapshot(SnapshotPath(dir, name))
	if err != nil || !snap.Complete {
		return 0, false
	}
	return len(snap.Cards), true
}

// writeJSON writes v to filename atomically: encode into a temp file in the
// same directory, then rename over the target.
func writeJSON(filename string, v any) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", filepath.Base(filename), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", filename, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
