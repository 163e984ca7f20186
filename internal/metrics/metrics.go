// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts reconciliation progress in a private Prometheus
// registry. A batch run has no scrape endpoint, so the registry is written
// to a node-exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// Namespace prefixes every metric name.
const Namespace = "pubrecon"

// Metrics holds the run's collectors. It implements reconcile.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	// JobsTotal counts finished jobs, labeled by source and final state.
	JobsTotal *prometheus.CounterVec

	// JobDuration observes job duration in seconds, labeled by source.
	JobDuration *prometheus.HistogramVec

	// Records counts records appended to the canonical set, labeled by source.
	Records *prometheus.CounterVec

	// Duplicates counts candidate records rejected as duplicates,
	// labeled by source and reason (key or match).
	Duplicates *prometheus.CounterVec

	// RunInfo carries the run id as a label; its value is the start time.
	RunInfo *prometheus.GaugeVec
}

// New registers the collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "jobs_total",
			Help:      "Reconciliation jobs finished, by source and final state",
		}, []string{"source", "state"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent fetching and merging one researcher",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_added_total",
			Help:      "Publication records added to the canonical set",
		}, []string{"source"}),
		Duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Candidate records dropped as duplicates",
		}, []string{"source", "reason"}),
		RunInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_start_timestamp_seconds",
			Help:      "Start time of the run, labeled by run id",
		}, []string{"run_id"}),
	}
}

func label(s types.Source) string { return string(s) }

func (m *Metrics) JobFinished(source types.Source, state string, elapsed time.Duration) {
	m.JobsTotal.WithLabelValues(label(source), state).Inc()
	m.JobDuration.WithLabelValues(label(source)).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordsAdded(source types.Source, n int) {
	m.Records.WithLabelValues(label(source)).Add(float64(n))
}

func (m *Metrics) DuplicatesDropped(source types.Source, reason string, n int) {
	m.Duplicates.WithLabelValues(label(source), reason).Add(float64(n))
}

// RunStarted records the run id and start time.
func (m *Metrics) RunStarted(runID string, at time.Time) {
	m.RunInfo.WithLabelValues(runID).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	return nil
}
