package scraper

import "time"

// Surface is the narrow automation contract the scraper drives: navigate,
// find, click, fill, read. A surface is one exclusive interactive session
// and is not required to be safe for concurrent use.
type Surface interface {
	// Navigate loads the given URL and waits for the page to load.
	Navigate(url string) error
	// Click locates the first element matching selector and clicks it.
	Click(selector string) error
	// Fill replaces the text of the input matching selector.
	Fill(selector, text string) error
	// Text returns the trimmed text content of the first match.
	Text(selector string) (string, error)
	// HTML returns the outer markup of the first match.
	HTML(selector string) (string, error)
	// AttributeAll returns attr for every current match, in render order.
	AttributeAll(selector, attr string) ([]string, error)
	// Count returns the number of current matches without waiting.
	Count(selector string) (int, error)
	// Visible reports whether a match exists and is visible right now.
	Visible(selector string) bool
	// WaitVisible blocks until a match is visible or the timeout expires.
	WaitVisible(selector string, timeout time.Duration) error
	// ScrollBottom scrolls the page to its bottom.
	ScrollBottom() error
	// Close releases the session.
	Close() error
}

// SurfaceFactory opens a surface on demand. The batch orchestrator defers
// opening one until a partition actually needs scraping, so a fully skipped
// batch never starts a browser.
type SurfaceFactory func() (Surface, error)
