package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cardscrape/browser"
	"cardscrape/config"
	"cardscrape/models"
	"cardscrape/pipeline"
	"cardscrape/scraper"
)

func main() {
	defaults := config.DefaultConfig()
	cfg := config.DefaultConfig()
	cfg.OutputDir = config.EnvString("CARDSCRAPE_OUTPUT", cfg.OutputDir)
	cfg.ImageDir = config.EnvString("CARDSCRAPE_IMAGE_DIR", cfg.ImageDir)
	cfg.MetricsAddr = config.EnvString("CARDSCRAPE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.Headless = config.EnvBool("CARDSCRAPE_HEADLESS", cfg.Headless)
	cfg.DownloadImages = config.EnvBool("CARDSCRAPE_IMAGES", cfg.DownloadImages)
	cfg.FlushEvery = config.EnvInt("CARDSCRAPE_FLUSH_EVERY", cfg.FlushEvery)
	cfg.PartitionDelay = config.EnvDuration("CARDSCRAPE_PARTITION_DELAY", cfg.PartitionDelay)

	runAll := flag.Bool("all", false, "Scrape every configured set as its own partition")
	force := flag.Bool("force", false, "Re-scrape partitions that already have a complete snapshot")
	resumeFrom := flag.String("resume", "", "Resume a batch from the named set (implies -all)")
	combineOnly := flag.Bool("combine", false, "Merge existing snapshots into the combined dataset and exit")
	codesOnly := flag.Bool("codes-only", false, "Collect card codes without opening detail views")
	downloadImages := flag.Bool("images", cfg.DownloadImages, "Download card images")
	headless := flag.Bool("headless", cfg.Headless, "Run the browser headless")
	runName := flag.String("name", "", "Artifact name for a single run (defaults to the requested sets)")
	setList := flag.String("set", "", "Comma-separated set filters")
	typeList := flag.String("type", "", "Comma-separated type filters")
	elementList := flag.String("element", "", "Comma-separated element filters")
	rarityList := flag.String("rarity", "", "Comma-separated rarity filters")
	categoryList := flag.String("category", "", "Comma-separated category filters")
	costList := flag.String("cost", "", "Comma-separated cost filters")
	keyword := flag.String("keyword", "", "Keyword search text")
	outputDir := flag.String("output", cfg.OutputDir, "Output directory for artifacts")
	configFile := flag.String("config", config.EnvString("CARDSCRAPE_CONFIG", ""), "JSON config file overlaying the defaults")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config file: %v\n", err)
			os.Exit(1)
		}
	}

	// Explicit flags win over the config file.
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["output"] {
		cfg.OutputDir = *outputDir
	}
	if setFlags["images"] {
		cfg.DownloadImages = *downloadImages
	}
	if setFlags["headless"] {
		cfg.Headless = *headless
	}
	if setFlags["metrics-addr"] {
		cfg.MetricsAddr = *metricsAddr
	}
	if setFlags["v"] {
		cfg.Verbose = *verbose
	}
	// A moved output directory carries the image directory along unless
	// that was set explicitly.
	if cfg.ImageDir == defaults.ImageDir && cfg.OutputDir != defaults.OutputDir {
		cfg.ImageDir = filepath.Join(cfg.OutputDir, "images")
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	filters := models.FilterSpec{
		Sets:       splitList(*setList),
		Types:      splitList(*typeList),
		Elements:   splitList(*elementList),
		Rarities:   splitList(*rarityList),
		Categories: splitList(*categoryList),
		Costs:      splitList(*costList),
		Keywords:   splitList(*keyword),
	}

	metrics := scraper.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	var runErr error
	switch {
	case *combineOnly:
		runErr = runCombine(cfg, metrics)
	case *runAll || *resumeFrom != "":
		runErr = runBatch(ctx, cfg, metrics, *force, *resumeFrom)
	default:
		runErr = runSingle(ctx, cfg, metrics, partitionName(*runName, filters), filters, *codesOnly)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func runSingle(ctx context.Context, cfg *config.Config, metrics *scraper.Metrics, name string, filters models.FilterSpec, codesOnly bool) error {
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("name", name),
		slog.Bool("headless", cfg.Headless),
	)

	session, err := browser.Open(ctx, cfg)
	if err != nil {
		slog.Error("opening browser", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("close browser", slog.Any("error", err))
		}
	}()

	s := scraper.New(cfg, session, metrics)
	result, err := s.Run(ctx, scraper.RunParams{
		Name:      name,
		Filters:   filters,
		CodesOnly: codesOnly,
	})
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		return err
	}

	printRunSummary(result, cfg)
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, metrics *scraper.Metrics, force bool, resumeFrom string) error {
	factory := func() (scraper.Surface, error) { return browser.Open(ctx, cfg) }
	o := scraper.NewOrchestrator(cfg, factory, metrics)

	summary, err := o.RunAll(ctx, force, resumeFrom)
	if err != nil {
		slog.Error("batch failed", slog.Any("error", err))
		return err
	}

	printBatchSummary(summary, cfg)
	return nil
}

func runCombine(cfg *config.Config, metrics *scraper.Metrics) error {
	combined, err := pipeline.Combine(cfg.OutputDir, cfg.Sets, metrics)
	if err != nil {
		slog.Error("combining snapshots", slog.Any("error", err))
		return err
	}
	if err := pipeline.ExportCSV(cfg.OutputDir, combined); err != nil {
		slog.Error("exporting csv", slog.Any("error", err))
		return err
	}

	fmt.Printf("Combined %d cards from %d sets\n", combined.Total, len(combined.Sets))
	fmt.Printf("  JSON: %s\n", pipeline.CombinedPath(cfg.OutputDir))
	fmt.Printf("  CSV:  %s\n", pipeline.CombinedCSVPath(cfg.OutputDir))
	return nil
}

// partitionName derives the artifact name for a single run. Named runs win,
// then the requested sets, then a catch-all bucket.
func partitionName(override string, filters models.FilterSpec) string {
	if override != "" {
		return pipeline.Slug(override)
	}
	if len(filters.Sets) > 0 {
		return pipeline.Slug(strings.Join(filters.Sets, " "))
	}
	return "custom"
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func printRunSummary(result *models.RunResult, cfg *config.Config) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Run complete")
	fmt.Printf("  Outcome:       %s\n", result.Outcome)
	fmt.Printf("  Codes found:   %d\n", result.CodesFound)
	fmt.Printf("  Cards:         %d\n", result.CardsExtracted)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.FailedCodes) > 0 {
		fmt.Printf("  Failed codes:  %d\n", len(result.FailedCodes))
	}
	if cfg.DownloadImages {
		fmt.Printf("  Images:        %d fetched, %d skipped, %d failed\n",
			result.ImagesFetched, result.ImagesSkipped, result.ImageErrors)
		if result.RetryCount > 0 {
			fmt.Printf("  Retries:       %d\n", result.RetryCount)
		}
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output dir:    %s\n", cfg.OutputDir)
	fmt.Println(separator)
}

func printBatchSummary(summary *models.BatchSummary, cfg *config.Config) {
	scraped, skipped, failed := 0, 0, 0
	for _, res := range summary.Results {
		switch res.Status {
		case models.StatusScraped:
			scraped++
		case models.StatusSkipped:
			skipped++
		case models.StatusFailed:
			failed++
		}
	}

	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Batch complete")
	fmt.Printf("  Partitions:    %d scraped, %d skipped, %d failed\n", scraped, skipped, failed)
	fmt.Printf("  Total cards:   %d\n", summary.TotalCards)
	for _, res := range summary.Results {
		if res.Status == models.StatusFailed {
			fmt.Printf("  Failed:        %s (%s)\n", res.Set, res.Error)
		}
	}
	fmt.Printf("  Duration:      %.1f min\n", summary.ElapsedMinutes)
	fmt.Printf("  Output dir:    %s\n", cfg.OutputDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
