// Package prometheus records play metrics and writes them in the Prometheus
// text format for the node_exporter textfile collector.
package prometheus

import (
	"fmt"
	"sync"
	"time"

	"github.com/cboxdk/audioplay/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Play outcomes used as label values
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Exporter holds the metrics for a single run
type Exporter struct {
	config   config.MetricsConfig
	logger   *zap.Logger
	registry *prometheus.Registry
	mu       sync.Mutex

	creatorSelections   *prometheus.CounterVec
	unsupportedPlatform prometheus.Counter
	plays               *prometheus.CounterVec
	playDuration        *prometheus.HistogramVec
	lastRunTimestamp    prometheus.Gauge
}

// NewExporter creates a new metrics exporter
func NewExporter(cfg config.MetricsConfig, logger *zap.Logger) (*Exporter, error) {
	e := &Exporter{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return e, nil
}

// initMetrics initializes all Prometheus metrics
func (e *Exporter) initMetrics() error {
	e.creatorSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioplay_creator_selections_total",
			Help: "Number of player creators selected, by platform",
		},
		[]string{"platform"},
	)

	e.unsupportedPlatform = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audioplay_unsupported_platform_total",
			Help: "Number of runs on a platform without a player",
		},
	)

	e.plays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioplay_plays_total",
			Help: "Number of play requests, by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	e.playDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioplay_play_duration_seconds",
			Help:    "Time from Play until its future resolved",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10, 60, 600},
		},
		[]string{"platform"},
	)

	e.lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audioplay_last_run_timestamp_seconds",
			Help: "Unix time the metrics file was last written",
		},
	)

	collectors := []prometheus.Collector{
		e.creatorSelections,
		e.unsupportedPlatform,
		e.plays,
		e.playDuration,
		e.lastRunTimestamp,
	}

	for _, collector := range collectors {
		if err := e.registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}

	e.logger.Debug("Initialized Prometheus metrics", zap.Int("collectors", len(collectors)))
	return nil
}

// RecordCreatorSelection counts the creator chosen for a platform
func (e *Exporter) RecordCreatorSelection(platform string) {
	e.creatorSelections.WithLabelValues(platform).Inc()
}

// RecordUnsupportedPlatform counts a run that had no creator
func (e *Exporter) RecordUnsupportedPlatform() {
	e.unsupportedPlatform.Inc()
	e.plays.WithLabelValues("unsupported", OutcomeSkipped).Inc()
}

// RecordPlay counts a completed Play call and its duration
func (e *Exporter) RecordPlay(platform, outcome string, duration time.Duration) {
	e.plays.WithLabelValues(platform, outcome).Inc()
	e.playDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

// WriteTextfile writes the metrics to the configured textfile. It is a
// no-op when metrics are disabled.
func (e *Exporter) WriteTextfile() error {
	if !e.config.Enabled {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastRunTimestamp.SetToCurrentTime()

	if err := prometheus.WriteToTextfile(e.config.TextfilePath, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	e.logger.Debug("Metrics textfile written", zap.String("path", e.config.TextfilePath))
	return nil
}
