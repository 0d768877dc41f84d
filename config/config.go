package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL      string `json:"base_url"`
	ImageBaseURL string `json:"image_base_url"`
	ImageSuffix  string `json:"image_suffix"`
	OutputDir    string `json:"output_dir"`
	ImageDir     string `json:"image_dir"`
	UserAgent    string `json:"user_agent"`

	Headless            bool          `json:"headless"`
	NavigationTimeout   time.Duration `json:"-"`
	OpTimeout           time.Duration `json:"-"`
	SettleDelay         time.Duration `json:"-"`
	PollInterval        time.Duration `json:"-"`
	FirstResultsRetries int           `json:"first_results_retries"`
	StallThreshold      int           `json:"stall_threshold"`
	SafetyCeiling       int           `json:"safety_ceiling"`

	FlushEvery           int           `json:"flush_every"`
	DownloadImages       bool          `json:"download_images"`
	ImageConcurrency     int           `json:"image_concurrency"`
	ImageTimeout         time.Duration `json:"-"`
	MaxImageRetries      int           `json:"max_image_retries"`
	ImageRetryBackoff    time.Duration `json:"-"`
	ImageRetryBackoffMax time.Duration `json:"-"`

	PartitionDelay time.Duration `json:"-"`
	Sets           []string      `json:"sets"`

	DedupeMaxSize int    `json:"dedupe_max_size"`
	MetricsAddr   string `json:"metrics_addr"`
	Verbose       bool   `json:"verbose"`

	Selectors Selectors `json:"selectors"`
}

// DefaultConfig returns the defaults for the shipped catalog target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://fftcg.square-enix-games.com/en/card-browser",
		ImageBaseURL: "https://fftcg.cdn.sewest.net/images/cards/full",
		ImageSuffix:  "_eg.jpg",
		OutputDir:    "output",
		ImageDir:     "output/images",
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",

		Headless:            true,
		NavigationTimeout:   30 * time.Second,
		OpTimeout:           10 * time.Second,
		SettleDelay:         250 * time.Millisecond,
		PollInterval:        500 * time.Millisecond,
		FirstResultsRetries: 20,
		StallThreshold:      5,
		SafetyCeiling:       500,

		FlushEvery:           10,
		DownloadImages:       true,
		ImageConcurrency:     5,
		ImageTimeout:         20 * time.Second,
		MaxImageRetries:      2,
		ImageRetryBackoff:    200 * time.Millisecond,
		ImageRetryBackoffMax: 2 * time.Second,

		PartitionDelay: 2 * time.Second,
		Sets:           DefaultSets(),

		DedupeMaxSize: 4096,
		MetricsAddr:   "",
		Verbose:       false,

		Selectors: DefaultSelectors(),
	}
}

// DefaultSets lists the catalog partitions in release order.
func DefaultSets() []string {
	return []string{
		"Opus I", "Opus II", "Opus III", "Opus IV", "Opus V", "Opus VI",
		"Opus VII", "Opus VIII", "Opus IX", "Opus X", "Opus XI", "Opus XII",
		"Opus XIII", "Opus XIV", "Crystal Dominion", "Emissaries of Light",
		"Rebellion's Call", "Resurgence of Power", "From Nightmares",
		"Dawn of Heroes", "Beyond Destiny", "Hidden Hope", "Hidden Trials",
		"Hidden Legends", "Tears of the Planet",
	}
}

// ImageURL derives the canonical image URL for a card code.
func (c *Config) ImageURL(code string) string {
	return c.ImageBaseURL + "/" + code + c.ImageSuffix
}

// ImageExt is the local file extension for downloaded images.
func (c *Config) ImageExt() string {
	if ext := path.Ext(c.ImageSuffix); ext != "" {
		return ext
	}
	return ".jpg"
}

// LoadFile overlays values from a JSON config file onto c. Only keys present
// in the file are touched; durations are written as strings like "250ms".
func (c *Config) LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}
	return nil
}

// UnmarshalJSON decodes a Config, accepting duration fields as strings.
func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	aux := &struct {
		NavigationTimeout    string `json:"navigation_timeout"`
		OpTimeout            string `json:"op_timeout"`
		SettleDelay          string `json:"settle_delay"`
		PollInterval         string `json:"poll_interval"`
		ImageTimeout         string `json:"image_timeout"`
		ImageRetryBackoff    string `json:"image_retry_backoff"`
		ImageRetryBackoffMax string `json:"image_retry_backoff_max"`
		PartitionDelay       string `json:"partition_delay"`
		*alias
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	for _, f := range []struct {
		raw string
		dst *time.Duration
	}{
		{aux.NavigationTimeout, &c.NavigationTimeout},
		{aux.OpTimeout, &c.OpTimeout},
		{aux.SettleDelay, &c.SettleDelay},
		{aux.PollInterval, &c.PollInterval},
		{aux.ImageTimeout, &c.ImageTimeout},
		{aux.ImageRetryBackoff, &c.ImageRetryBackoff},
		{aux.ImageRetryBackoffMax, &c.ImageRetryBackoffMax},
		{aux.PartitionDelay, &c.PartitionDelay},
	} {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.ImageBaseURL == "" {
		return fmt.Errorf("image base URL cannot be empty")
	}
	imageURL, err := url.Parse(c.ImageBaseURL)
	if err != nil {
		return fmt.Errorf("invalid image base URL: %w", err)
	}
	if imageURL.Host == "" {
		return fmt.Errorf("image base URL must include a host")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.ImageDir == "" {
		return fmt.Errorf("image directory cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("op timeout must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.FirstResultsRetries <= 0 {
		return fmt.Errorf("first results retries must be positive")
	}
	if c.StallThreshold <= 0 {
		return fmt.Errorf("stall threshold must be positive")
	}
	if c.SafetyCeiling <= 0 {
		return fmt.Errorf("safety ceiling must be positive")
	}

	if c.FlushEvery <= 0 {
		return fmt.Errorf("flush cadence must be positive")
	}
	if c.ImageConcurrency <= 0 {
		return fmt.Errorf("image concurrency must be positive")
	}
	if c.ImageTimeout <= 0 {
		return fmt.Errorf("image timeout must be positive")
	}
	if c.MaxImageRetries < 0 {
		return fmt.Errorf("max image retries cannot be negative")
	}
	if c.ImageRetryBackoff < 0 {
		return fmt.Errorf("image retry backoff cannot be negative")
	}
	if c.ImageRetryBackoffMax < 0 {
		return fmt.Errorf("image retry backoff max cannot be negative")
	}
	if c.ImageRetryBackoffMax > 0 && c.ImageRetryBackoff > c.ImageRetryBackoffMax {
		return fmt.Errorf("image retry backoff (%s) cannot exceed image retry backoff max (%s)", c.ImageRetryBackoff, c.ImageRetryBackoffMax)
	}

	if c.PartitionDelay < 0 {
		return fmt.Errorf("partition delay cannot be negative")
	}
	if len(c.Sets) == 0 {
		return fmt.Errorf("set list cannot be empty")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("selectors: %w", err)
	}
	return nil
}
