package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	flushes       *prometheus.CounterVec
	committed     prometheus.Counter
	folded        prometheus.Counter
	undos         *prometheus.CounterVec
	flushDuration prometheus.Histogram
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "envdesk_flush_total",
			Help: "Flushes by result (ok, rejected, error)",
		}, []string{"result"}),
		committed: f.NewCounter(prometheus.CounterOpts{
			Name: "envdesk_ops_committed_total",
			Help: "Operations accepted by the backend",
		}),
		folded: f.NewCounter(prometheus.CounterOpts{
			Name: "envdesk_ops_folded_total",
			Help: "Operations removed by compaction before commit",
		}),
		undos: f.NewCounterVec(prometheus.CounterOpts{
			Name: "envdesk_undo_total",
			Help: "Undo requests by result (ok, refused, error)",
		}, []string{"result"}),
		flushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "envdesk_flush_duration_seconds",
			Help:    "Wall time of a flush including the refresh",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeFlush(result string, committed, folded int, took time.Duration) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(result).Inc()
	m.committed.Add(float64(committed))
	m.folded.Add(float64(folded))
	m.flushDuration.Observe(took.Seconds())
}

func (m *Metrics) observeUndo(result string) {
	if m == nil {
		return
	}
	m.undos.WithLabelValues(result).Inc()
}
