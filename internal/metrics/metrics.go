package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Registry         *prometheus.Registry
	uploadsTotal     *prometheus.CounterVec
	chatsTotal       *prometheus.CounterVec
	indexingDuration prometheus.Histogram
	indexChunks      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_uploads_total",
				Help: "Total number of uploads by outcome",
			},
			[]string{"outcome"},
		),
		chatsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docrag_chats_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"outcome"},
		),
		indexingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docrag_indexing_duration_seconds",
				Help:    "Duration of successful indexing runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
			},
		),
		indexChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docrag_index_chunks",
				Help: "Number of chunks in the currently published index",
			},
		),
	}
	m.Registry.MustRegister(m.uploadsTotal, m.chatsTotal, m.indexingDuration, m.indexChunks)
	return m
}

func (m *Metrics) UploadFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.indexingDuration.Observe(seconds)
	}
}

func (m *Metrics) IndexPublished(chunks int) {
	if m == nil {
		return
	}
	m.indexChunks.Set(float64(chunks))
}

func (m *Metrics) ChatFinished(outcome string) {
	if m == nil {
		return
	}
	m.chatsTotal.WithLabelValues(outcome).Inc()
}
