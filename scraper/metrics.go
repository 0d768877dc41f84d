package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry            *prometheus.Registry
	FiltersApplied      *prometheus.CounterVec
	FilterFailures      *prometheus.CounterVec
	ConvergencePolls    prometheus.Counter
	ConvergenceOutcomes *prometheus.CounterVec
	CardsExtracted      prometheus.Counter
	ExtractErrors       *prometheus.CounterVec
	DetailDuration      prometheus.Histogram
	ImagesTotal         *prometheus.CounterVec
	ImageRetries        prometheus.Counter
	SnapshotsWritten    *prometheus.CounterVec
	PartitionsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	filtersApplied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_filters_applied_total",
			Help: "Filter values successfully applied, by dimension.",
		},
		[]string{"dimension"},
	)
	filterFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_filter_failures_total",
			Help: "Filter values that could not be applied, by dimension.",
		},
		[]string{"dimension"},
	)
	polls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardscrape_convergence_polls_total",
			Help: "Result-count polls performed by the convergence loop.",
		},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_convergence_outcomes_total",
			Help: "Terminal convergence outcomes, by outcome.",
		},
		[]string{"outcome"},
	)
	cardsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardscrape_cards_extracted_total",
			Help: "Cards fully extracted from the detail view.",
		},
	)
	extractErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_extract_errors_total",
			Help: "Card extraction failures, by error type.",
		},
		[]string{"error_type"},
	)
	detailDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardscrape_detail_duration_seconds",
			Help:    "Time spent in one card's detail view.",
			Buckets: prometheus.DefBuckets,
		},
	)
	imagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_images_total",
			Help: "Image fetch outcomes, by status.",
		},
		[]string{"status"},
	)
	imageRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardscrape_image_retries_total",
			Help: "Image fetch retries scheduled.",
		},
	)
	snapshots := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_snapshots_written_total",
			Help: "Dataset files written, by kind.",
		},
		[]string{"kind"},
	)
	partitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardscrape_partitions_total",
			Help: "Batch partitions visited, by status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(
		filtersApplied, filterFailures, polls, outcomes, cardsExtracted,
		extractErrors, detailDuration, imagesTotal, imageRetries, snapshots,
		partitions,
	)

	return &Metrics{
		Registry:            registry,
		FiltersApplied:      filtersApplied,
		FilterFailures:      filterFailures,
		ConvergencePolls:    polls,
		ConvergenceOutcomes: outcomes,
		CardsExtracted:      cardsExtracted,
		ExtractErrors:       extractErrors,
		DetailDuration:      detailDuration,
		ImagesTotal:         imagesTotal,
		ImageRetries:        imageRetries,
		SnapshotsWritten:    snapshots,
		PartitionsTotal:     partitions,
	}
}

// IncFilterApplied counts one applied filter value.
func (m *Metrics) IncFilterApplied(dimension string) {
	if m == nil {
		return
	}
	m.FiltersApplied.WithLabelValues(dimension).Inc()
}

// IncFilterFailure counts one filter value that could not be applied.
func (m *Metrics) IncFilterFailure(dimension string) {
	if m == nil {
		return
	}
	m.FilterFailures.WithLabelValues(dimension).Inc()
}

// IncPoll counts one convergence poll.
func (m *Metrics) IncPoll() {
	if m == nil {
		return
	}
	m.ConvergencePolls.Inc()
}

// IncOutcome counts a terminal convergence outcome.
func (m *Metrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ConvergenceOutcomes.WithLabelValues(outcome).Inc()
}

// IncCardExtracted counts one fully extracted card.
func (m *Metrics) IncCardExtracted() {
	if m == nil {
		return
	}
	m.CardsExtracted.Inc()
}

// IncExtractError counts one extraction failure for a type label.
func (m *Metrics) IncExtractError(errorType string) {
	if m == nil {
		return
	}
	m.ExtractErrors.WithLabelValues(errorType).Inc()
}

// ObserveDetailDuration records time spent in one detail view.
func (m *Metrics) ObserveDetailDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.DetailDuration.Observe(d.Seconds())
}

// IncImage counts an image fetch outcome.
func (m *Metrics) IncImage(status string) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues(status).Inc()
}

// IncImageRetry counts one scheduled image fetch retry.
func (m *Metrics) IncImageRetry() {
	if m == nil {
		return
	}
	m.ImageRetries.Inc()
}

// IncSnapshot counts one written dataset file of the given kind.
func (m *Metrics) IncSnapshot(kind string) {
	if m == nil {
		return
	}
	m.SnapshotsWritten.WithLabelValues(kind).Inc()
}

// IncPartition counts one visited batch partition by status.
func (m *Metrics) IncPartition(status string) {
	if m == nil {
		return
	}
	m.PartitionsTotal.WithLabelValues(status).Inc()
}
