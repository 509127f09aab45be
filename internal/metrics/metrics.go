// Package metrics records run statistics in a Prometheus registry and writes them in the
// node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"keysync/internal/reconcile"
)

// Recorder holds the collectors of one process. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	filesScanned    prometheus.Counter
	fileErrors      prometheus.Counter
	keysExtracted   prometheus.Gauge
	catalogsChanged *prometheus.CounterVec
	keysAdded       *prometheus.CounterVec
	keysRemoved     *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRun         prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysync_files_scanned_total",
			Help: "Source files read and walked",
		}),
		fileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keysync_file_errors_total",
			Help: "Source files that failed to read or parse cleanly",
		}),
		keysExtracted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keysync_keys_extracted",
			Help: "Distinct keys found in the last run",
		}),
		catalogsChanged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keysync_catalogs_changed_total",
			Help: "Catalog files whose content changed",
		}, []string{"locale"}),
		keysAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keysync_keys_added_total",
			Help: "Catalog leaves added",
		}, []string{"locale", "namespace"}),
		keysRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keysync_keys_removed_total",
			Help: "Catalog leaves removed",
		}, []string{"locale", "namespace"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "keysync_run_duration_seconds",
			Help:    "Duration of extraction runs",
			Buckets: prometheus.DefBuckets,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keysync_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	r.registry.MustRegister(
		r.filesScanned,
		r.fileErrors,
		r.keysExtracted,
		r.catalogsChanged,
		r.keysAdded,
		r.keysRemoved,
		r.runDuration,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// FileScanned counts one walked file.
func (r *Recorder) FileScanned() {
	if r != nil {
		r.filesScanned.Inc()
	}
}

// FileFailed counts one file error.
func (r *Recorder) FileFailed() {
	if r != nil {
		r.fileErrors.Inc()
	}
}

// KeysExtracted sets the number of distinct keys of the run.
func (r *Recorder) KeysExtracted(n int) {
	if r != nil {
		r.keysExtracted.Set(float64(n))
	}
}

// Reconciled records the outcome of one catalog.
func (r *Recorder) Reconciled(res *reconcile.Result) {
	if r == nil || res == nil {
		return
	}
	if res.Updated {
		r.catalogsChanged.WithLabelValues(res.Locale).Inc()
	}
	r.keysAdded.WithLabelValues(res.Locale, res.Namespace).Add(float64(res.Added))
	r.keysRemoved.WithLabelValues(res.Locale, res.Namespace).Add(float64(res.Removed))
}

// RunFinished records the duration of a run.
func (r *Recorder) RunFinished(d time.Duration) {
	if r == nil {
		return
	}
	r.runDuration.Observe(d.Seconds())
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile writes every metric to path for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
