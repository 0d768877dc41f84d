package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"cardscrape/config"
)

// Image fetch outcome labels.
const (
	FetchFetched = "fetched"
	FetchSkipped = "skipped"
	FetchFailed  = "failed"
)

// ImageMetrics counts image fetch outcomes and retries.
type ImageMetrics interface {
	IncImage(status string)
	IncImageRetry()
}

// FetchStats summarizes an ImageFetcher's work.
type FetchStats struct {
	Fetched      int
	Skipped      int
	Failed       int
	Retries      int
	ErrorsByType map[string]int
}

type fetchResult struct {
	status    string
	label     string
	retryable bool
}

// ImageFetcher downloads card images into cfg.ImageDir. Images already on
// disk are skipped without a request; transient failures are retried with
// exponential backoff up to cfg.MaxImageRetries times.
type ImageFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   ImageMetrics

	mu      sync.Mutex
	results map[string]fetchResult
	stats   FetchStats
}

// NewImageFetcher builds a fetcher for cfg.ImageBaseURL. metrics may be nil.
func NewImageFetcher(cfg *config.Config, metrics ImageMetrics) (*ImageFetcher, error) {
	parsed, err := url.Parse(cfg.ImageBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse image base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("image base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.ImageTimeout)
	// Retries re-visit the same URL.
	collector.AllowURLRevisit = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ImageTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.ImageConcurrency,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	f := &ImageFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
		results:   make(map[string]fetchResult),
	}

	collector.OnResponse(func(r *colly.Response) {
		code := f.codeFromURL(r.Request.URL)
		if code == "" {
			return
		}
		if err := f.writeImage(code, r.Body); err != nil {
			f.noteFailure(code, err)
			return
		}
		f.setResult(code, fetchResult{status: FetchFetched})
	})
	collector.OnError(func(r *colly.Response, err error) {
		code := f.codeFromURL(r.Request.URL)
		if code == "" {
			return
		}
		f.noteFailure(code, classifyFetchError(err, r.StatusCode))
	})

	return f, nil
}

// Fetch downloads the image for one code and returns its outcome label.
func (f *ImageFetcher) Fetch(ctx context.Context, code string) string {
	f.fetchChunk(ctx, []string{code})

	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[code]; ok && res.status != "" {
		return res.status
	}
	return FetchFailed
}

// FetchAll downloads images for codes in chunks of cfg.ImageConcurrency.
func (f *ImageFetcher) FetchAll(ctx context.Context, codes []string) {
	if len(codes) == 0 {
		return
	}
	chunk := f.cfg.ImageConcurrency
	if chunk <= 0 {
		chunk = 1
	}
	for start := 0; start < len(codes); start += chunk {
		if err := ctx.Err(); err != nil {
			slog.Warn("image fetch interrupted",
				slog.Int("remaining", len(codes)-start),
				slog.Any("error", err),
			)
			return
		}
		end := start + chunk
		if end > len(codes) {
			end = len(codes)
		}
		f.fetchChunk(ctx, codes[start:end])
		slog.Info("image fetch progress",
			slog.Int("done", end),
			slog.Int("total", len(codes)),
		)
	}
}

// Stats returns a copy of the cumulative fetch counters.
func (f *ImageFetcher) Stats() FetchStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.stats
	out.ErrorsByType = make(map[string]int, len(f.stats.ErrorsByType))
	for k, v := range f.stats.ErrorsByType {
		out.ErrorsByType[k] = v
	}
	return out
}

func (f *ImageFetcher) fetchChunk(ctx context.Context, codes []string) {
	pending := make([]string, 0, len(codes))
	for _, code := range codes {
		if f.exists(code) {
			f.recordSkip(code)
			continue
		}
		pending = append(pending, code)
	}

	for attempt := 1; len(pending) > 0; attempt++ {
		for _, code := range pending {
			f.clearResult(code)
			if err := f.collector.Visit(f.cfg.ImageURL(code)); err != nil {
				f.noteFailure(code, classifyFetchError(err, 0))
			}
		}
		f.collector.Wait()

		var retry []string
		for _, code := range pending {
			res := f.resultOf(code)
			switch {
			case res.status == FetchFetched:
				f.recordFetched(code)
			case res.retryable && attempt <= f.cfg.MaxImageRetries:
				retry = append(retry, code)
			default:
				f.recordFailure(code, res.label)
			}
		}
		if len(retry) == 0 {
			return
		}
		f.recordRetries(retry)
		if err := sleep(ctx, f.backoff(attempt)); err != nil {
			for _, code := range retry {
				f.recordFailure(code, "canceled")
			}
			return
		}
		pending = retry
	}
}

func (f *ImageFetcher) backoff(attempt int) time.Duration {
	delay := f.cfg.ImageRetryBackoff * time.Duration(1<<uint(attempt-1))
	if delay > f.cfg.ImageRetryBackoffMax {
		delay = f.cfg.ImageRetryBackoffMax
	}
	return delay
}

// codeFromURL recovers the card code from an image URL.
func (f *ImageFetcher) codeFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, f.cfg.ImageSuffix)
}

func (f *ImageFetcher) localPath(code string) string {
	return filepath.Join(f.cfg.ImageDir, code+f.cfg.ImageExt())
}

func (f *ImageFetcher) exists(code string) bool {
	_, err := os.Stat(f.localPath(code))
	return err == nil
}

// writeImage lands the image atomically so a killed run never leaves a
// truncated file behind.
func (f *ImageFetcher) writeImage(code string, body []byte) error {
	dest := f.localPath(code)
	if err := ensureDir(dest); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp image: %w", err)
	}
	return nil
}

func (f *ImageFetcher) setResult(code string, res fetchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[code] = res
}

func (f *ImageFetcher) clearResult(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.results, code)
}

func (f *ImageFetcher) resultOf(code string) fetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[code]
}

func (f *ImageFetcher) noteFailure(code string, err error) {
	f.setResult(code, fetchResult{
		status:    FetchFailed,
		label:     fetchErrorLabel(err),
		retryable: retryableFetch(err),
	})
}

func (f *ImageFetcher) recordSkip(code string) {
	f.mu.Lock()
	f.results[code] = fetchResult{status: FetchSkipped}
	f.stats.Skipped++
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.IncImage(FetchSkipped)
	}
	slog.Debug("image already on disk", slog.String("code", code))
}

func (f *ImageFetcher) recordFetched(code string) {
	f.mu.Lock()
	f.stats.Fetched++
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.IncImage(FetchFetched)
	}
}

func (f *ImageFetcher) recordFailure(code, label string) {
	if label == "" {
		label = "unknown"
	}

	f.mu.Lock()
	f.results[code] = fetchResult{status: FetchFailed, label: label}
	f.stats.Failed++
	if f.stats.ErrorsByType == nil {
		f.stats.ErrorsByType = make(map[string]int)
	}
	f.stats.ErrorsByType[label]++
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.IncImage(FetchFailed)
	}
	slog.Warn("image fetch failed",
		slog.String("code", code),
		slog.String("error_type", label),
	)
}

func (f *ImageFetcher) recordRetries(codes []string) {
	f.mu.Lock()
	f.stats.Retries += len(codes)
	f.mu.Unlock()

	if f.metrics != nil {
		for range codes {
			f.metrics.IncImageRetry()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
