// Package metrics records per-run counters and writes them in the Prometheus
// text format for node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "check_delta"

// Recorder holds the metrics of one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	filesScanned  prometheus.Gauge
	filesChanged  *prometheus.GaugeVec
	affected      prometheus.Gauge
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	scanDuration  prometheus.Histogram
	runDuration   prometheus.Gauge
	ledgerSize    prometheus.Gauge
	lastRun       prometheus.Gauge
}

// New registers the metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by outcome.",
		}, []string{"outcome"}),
		filesScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_scanned",
			Help:      "Source files in the latest snapshot.",
		}),
		filesChanged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_changed",
			Help:      "Files changed in the latest run, by kind.",
		}, []string{"kind"}),
		affected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packages_affected",
			Help:      "Packages owning at least one changed file in the latest run.",
		}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Build commands by result.",
		}, []string{"result"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of individual build commands.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of the source tree walk.",
			Buckets:   prometheus.DefBuckets,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the latest run, from metadata query to saved state.",
		}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "failed_packages",
			Help:      "Packages in the failure ledger after the latest run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the latest run finished.",
		}),
	}
	r.reg.MustRegister(
		r.runs, r.filesScanned, r.filesChanged, r.affected, r.builds,
		r.buildDuration, r.scanDuration, r.runDuration, r.ledgerSize, r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Scan records the result of a tree walk.
func (r *Recorder) Scan(files int, seconds float64) {
	if r == nil {
		return
	}
	r.filesScanned.Set(float64(files))
	r.scanDuration.Observe(seconds)
}

// Changes records the size of a diff.
func (r *Recorder) Changes(added, modified, removed, affected int) {
	if r == nil {
		return
	}
	r.filesChanged.WithLabelValues("added").Set(float64(added))
	r.filesChanged.WithLabelValues("modified").Set(float64(modified))
	r.filesChanged.WithLabelValues("removed").Set(float64(removed))
	r.affected.Set(float64(affected))
}

// Build records one build command.
func (r *Recorder) Build(ok bool, seconds float64) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.builds.WithLabelValues(result).Inc()
	r.buildDuration.Observe(seconds)
}

// Finish records the end of a run that took runSeconds.
func (r *Recorder) Finish(outcome string, ledgerSize int, runSeconds, unixSeconds float64) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Set(runSeconds)
	r.ledgerSize.Set(float64(ledgerSize))
	r.lastRun.Set(unixSeconds)
}

// WriteFile writes all metrics to path atomically.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
