// Package models defines data structures shared across the scraper.
package models

import "time"

// CardRecord represents one card extracted from the catalog detail view.
// Partial extractions carry at least Code and ImageURL.
type CardRecord struct {
	Code     string       `csv:"code" json:"code"`
	Name     string       `csv:"name" json:"name,omitempty"`
	Type     string       `csv:"type" json:"type,omitempty"`
	Job      string       `csv:"job" json:"job,omitempty"`
	Element  string       `csv:"element" json:"element,omitempty"`
	Cost     IntOrString  `csv:"cost" json:"cost"`
	Power    *IntOrString `csv:"power" json:"power,omitempty"`
	Rarity   string       `csv:"rarity" json:"rarity,omitempty"`
	Category string       `csv:"category" json:"category,omitempty"`
	Set      string       `csv:"set" json:"set,omitempty"`
	Text     string       `csv:"text" json:"text"`
	ImageURL string       `csv:"image_url" json:"image_url"`
}

// FilterSpec declares which catalog filters a run applies. Slice order is
// application order; empty dimensions are left untouched on the page.
type FilterSpec struct {
	Sets       []string `json:"sets,omitempty"`
	Types      []string `json:"types,omitempty"`
	Elements   []string `json:"elements,omitempty"`
	Rarities   []string `json:"rarities,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Costs      []string `json:"costs,omitempty"`
	Flags      []string `json:"flags,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Codes      []string `json:"codes,omitempty"`
}

// Empty reports whether no dimension carries a value.
func (f FilterSpec) Empty() bool {
	return len(f.Sets) == 0 && len(f.Types) == 0 && len(f.Elements) == 0 &&
		len(f.Rarities) == 0 && len(f.Categories) == 0 && len(f.Costs) == 0 &&
		len(f.Flags) == 0 && len(f.Keywords) == 0 && len(f.Codes) == 0
}

// RunSnapshot is the persisted form of one run's card records. The partial
// variant (Complete=false) is overwritten in place while the run progresses;
// the complete variant is written once and supersedes the partial file.
type RunSnapshot struct {
	ScrapedAt time.Time     `json:"scraped_at"`
	Filters   FilterSpec    `json:"filters"`
	Total     int           `json:"total"`
	Complete  bool          `json:"complete"`
	Cards     []*CardRecord `json:"cards"`
}

// CodeList is the identifiers-only artifact written before detail extraction.
type CodeList struct {
	ScrapedAt time.Time  `json:"scraped_at"`
	Filters   FilterSpec `json:"filters"`
	Total     int        `json:"total"`
	Codes     []string   `json:"codes"`
}

// Partition statuses reported in a batch summary.
const (
	StatusScraped = "scraped"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// PartitionResult is the outcome of one set within a batch run.
type PartitionResult struct {
	Set    string `json:"set"`
	Count  int    `json:"count"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchSummary is written after a batch run has visited every partition.
type BatchSummary struct {
	ScrapedAt      time.Time         `json:"scraped_at"`
	ElapsedMinutes float64           `json:"elapsed_minutes"`
	TotalCards     int               `json:"total_cards"`
	Results        []PartitionResult `json:"results"`
}

// SetCount pairs a set name with the number of cards its snapshot holds.
type SetCount struct {
	Set   string `json:"set"`
	Count int    `json:"count"`
}

// CombinedDataset merges every available complete snapshot into one file.
type CombinedDataset struct {
	ScrapedAt time.Time     `json:"scraped_at"`
	Total     int           `json:"total"`
	Sets      []SetCount    `json:"sets"`
	Cards     []*CardRecord `json:"cards"`
}

// RunResult holds the overall outcome of a single scraping run.
type RunResult struct {
	RunID          string
	Filters        FilterSpec
	StartTime      time.Time
	EndTime        time.Time
	Outcome        string
	CodesFound     int
	CardsExtracted int
	ErrorCount     int
	FailedCodes    []string
	ErrorsByType   map[string]int
	ImagesFetched  int
	ImagesSkipped  int
	ImageErrors    int
	RetryCount     int
}
