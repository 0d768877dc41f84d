package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty image base url",
			mutate: func(cfg *Config) {
				cfg.ImageBaseURL = ""
			},
			wantErr: "image base URL",
		},
		{
			name: "zero op timeout",
			mutate: func(cfg *Config) {
				cfg.OpTimeout = 0
			},
			wantErr: "op timeout",
		},
		{
			name: "zero stall threshold",
			mutate: func(cfg *Config) {
				cfg.StallThreshold = 0
			},
			wantErr: "stall threshold",
		},
		{
			name: "negative safety ceiling",
			mutate: func(cfg *Config) {
				cfg.SafetyCeiling = -1
			},
			wantErr: "safety ceiling",
		},
		{
			name: "zero flush cadence",
			mutate: func(cfg *Config) {
				cfg.FlushEvery = 0
			},
			wantErr: "flush cadence",
		},
		{
			name: "zero image concurrency",
			mutate: func(cfg *Config) {
				cfg.ImageConcurrency = 0
			},
			wantErr: "image concurrency",
		},
		{
			name: "backoff exceeds backoff max",
			mutate: func(cfg *Config) {
				cfg.ImageRetryBackoff = 5 * time.Second
				cfg.ImageRetryBackoffMax = time.Second
			},
			wantErr: "backoff",
		},
		{
			name: "empty set list",
			mutate: func(cfg *Config) {
				cfg.Sets = nil
			},
			wantErr: "set list",
		},
		{
			name: "missing result item selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.ResultItem = ""
			},
			wantErr: "result item",
		},
		{
			name: "missing detail text candidates",
			mutate: func(cfg *Config) {
				cfg.Selectors.Detail.Text = nil
			},
			wantErr: "detail text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadFileOverlaysPresentKeys(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"base_url": "https://cards.example.com/browser",
		"settle_delay": "1s",
		"stall_threshold": 8,
		"sets": ["Opus I", "Opus II"],
		"selectors": {"result_item": ".results .card"}
	}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFile(file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.BaseURL != "https://cards.example.com/browser" {
		t.Errorf("BaseURL = %q, want override", cfg.BaseURL)
	}
	if cfg.SettleDelay != time.Second {
		t.Errorf("SettleDelay = %s, want 1s", cfg.SettleDelay)
	}
	if cfg.StallThreshold != 8 {
		t.Errorf("StallThreshold = %d, want 8", cfg.StallThreshold)
	}
	if len(cfg.Sets) != 2 {
		t.Errorf("Sets = %v, want the two overridden sets", cfg.Sets)
	}
	if cfg.Selectors.ResultItem != ".results .card" {
		t.Errorf("ResultItem = %q, want override", cfg.Selectors.ResultItem)
	}
	// keys absent from the file keep their defaults
	if cfg.OpTimeout != 10*time.Second {
		t.Errorf("OpTimeout = %s, want default 10s", cfg.OpTimeout)
	}
	if cfg.Selectors.DetailRoot != ".card-detail" {
		t.Errorf("DetailRoot = %q, want default", cfg.Selectors.DetailRoot)
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(file, []byte(`{"poll_interval": "soon"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	if err := cfg.LoadFile(file); err == nil {
		t.Fatal("LoadFile() error = nil, want duration parse error")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("CARDSCRAPE_TEST_STR", "hello")
	t.Setenv("CARDSCRAPE_TEST_INT", "42")
	t.Setenv("CARDSCRAPE_TEST_BOOL", "true")
	t.Setenv("CARDSCRAPE_TEST_DUR", "3s")
	t.Setenv("CARDSCRAPE_TEST_BAD", "nope")

	if got := EnvString("CARDSCRAPE_TEST_STR", "fallback"); got != "hello" {
		t.Errorf("EnvString = %q, want %q", got, "hello")
	}
	if got := EnvString("CARDSCRAPE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("EnvString fallback = %q, want %q", got, "fallback")
	}
	if got := EnvInt("CARDSCRAPE_TEST_INT", 7); got != 42 {
		t.Errorf("EnvInt = %d, want 42", got)
	}
	if got := EnvInt("CARDSCRAPE_TEST_BAD", 7); got != 7 {
		t.Errorf("EnvInt on bad value = %d, want fallback 7", got)
	}
	if got := EnvBool("CARDSCRAPE_TEST_BOOL", false); !got {
		t.Error("EnvBool = false, want true")
	}
	if got := EnvDuration("CARDSCRAPE_TEST_DUR", time.Minute); got != 3*time.Second {
		t.Errorf("EnvDuration = %s, want 3s", got)
	}
	if got := EnvDuration("CARDSCRAPE_TEST_BAD", time.Minute); got != time.Minute {
		t.Errorf("EnvDuration on bad value = %s, want fallback 1m", got)
	}
}

func TestFilterValueSelector(t *testing.T) {
	sel := DefaultSelectors()

	got, ok := sel.FilterValue("set", "Rebellion's Call")
	if !ok {
		t.Fatal("FilterValue(set) ok = false, want true")
	}
	want := `[data-filter-group="set"] [data-value="Rebellion's Call"]`
	if got != want {
		t.Errorf("FilterValue = %q, want %q", got, want)
	}

	if _, ok := sel.FilterValue("keyword", "ifrit"); ok {
		t.Error("FilterValue(keyword) ok = true, want false for input dimensions")
	}
}

func TestResultItemFor(t *testing.T) {
	sel := DefaultSelectors()
	got := sel.ResultItemFor("1-001H")
	want := `.card-list .card-item[data-code="1-001H"]`
	if got != want {
		t.Errorf("ResultItemFor = %q, want %q", got, want)
	}
}

func TestImageURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImageBaseURL = "https://img.example.com/cards"
	cfg.ImageSuffix = "_eg.jpg"
	if got, want := cfg.ImageURL("1-001H"), "https://img.example.com/cards/1-001H_eg.jpg"; got != want {
		t.Errorf("ImageURL = %q, want %q", got, want)
	}
	if got := cfg.ImageExt(); got != ".jpg" {
		t.Errorf("ImageExt = %q, want %q", got, ".jpg")
	}
}
