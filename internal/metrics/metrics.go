// Package metrics records Prometheus metrics for vagrant commands.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentlab/derelict/internal/vagrant"
)

// Metrics collects Prometheus counters and histograms for vagrant commands.
type Metrics struct {
	registry               *prometheus.Registry
	commandTotal           *prometheus.CounterVec
	commandDurationSeconds *prometheus.HistogramVec
	outputBytesTotal       *prometheus.CounterVec
}

var _ vagrant.Observer = (*Metrics)(nil)

// NewMetrics constructs a metrics registry and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	commandTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "derelict",
			Subsystem: "command",
			Name:      "total",
			Help:      "Total number of vagrant commands by subcommand and result.",
		},
		[]string{"subcommand", "result"},
	)
	commandDurationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "derelict",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Wall time of vagrant commands.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"subcommand"},
	)
	outputBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "derelict",
			Subsystem: "command",
			Name:      "output_bytes_total",
			Help:      "Bytes of buffered command output by stream.",
		},
		[]string{"stream"},
	)

	registry.MustRegister(
		commandTotal,
		commandDurationSeconds,
		outputBytesTotal,
	)

	return &Metrics{
		registry:               registry,
		commandTotal:           commandTotal,
		commandDurationSeconds: commandDurationSeconds,
		outputBytesTotal:       outputBytesTotal,
	}
}

// Handler returns an HTTP handler that serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// ObserveCommand implements vagrant.Observer.
func (m *Metrics) ObserveCommand(_ context.Context, event vagrant.CommandEvent) {
	if m == nil {
		return
	}
	subcommand := event.Subcommand
	if subcommand == "" {
		subcommand = "unknown"
	}
	m.commandTotal.WithLabelValues(subcommand, event.Outcome()).Inc()
	if seconds := event.Duration.Seconds(); seconds >= 0 {
		m.commandDurationSeconds.WithLabelValues(subcommand).Observe(seconds)
	}
	if event.Result != nil {
		m.outputBytesTotal.WithLabelValues("stdout").Add(float64(len(event.Result.Stdout)))
		m.outputBytesTotal.WithLabelValues("stderr").Add(float64(len(event.Result.Stderr)))
	}
}
