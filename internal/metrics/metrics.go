// Package metrics exposes attendance and sync counters in Prometheus format.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendkeeper"

type Metrics struct {
	scans       *prometheus.CounterVec
	syncPasses  *prometheus.CounterVec
	syncRecords *prometheus.CounterVec
	debounced   prometheus.Counter
	downloaded  prometheus.Counter
	exports     *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scanned badges by result (accepted, duplicate, invalid, error).",
		}, []string{"result"}),
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Executed sync passes by outcome kind.",
		}, []string{"kind"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Records pushed to the remote store by result (synced, failed).",
		}, []string{"result"}),
		debounced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_debounced_total",
			Help:      "Sync requests deferred because the previous attempt was too recent.",
		}),
		downloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_merged_records_total",
			Help:      "Remote records merged into the local ledger.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Delivered export files by format.",
		}, []string{"format"}),
	}
	reg.MustRegister(m.scans, m.syncPasses, m.syncRecords, m.debounced, m.downloaded, m.exports)
	return m
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Scan(result string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(result).Inc()
}

func (m *Metrics) SyncPass(kind string, synced, failed int) {
	if m == nil {
		return
	}
	m.syncPasses.WithLabelValues(kind).Inc()
	m.syncRecords.WithLabelValues("synced").Add(float64(synced))
	m.syncRecords.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) SyncDebounced() {
	if m == nil {
		return
	}
	m.debounced.Inc()
}

func (m *Metrics) Downloaded(n int) {
	if m == nil {
		return
	}
	m.downloaded.Add(float64(n))
}

func (m *Metrics) Export(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
