package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agrofin/internal/extraction"
)

// Metrics records pipeline outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	documents       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	classifications *prometheus.CounterVec
	reviews         prometheus.Counter
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrofin",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Documents processed by outcome, error code and last stage reached",
		}, []string{"outcome", "code", "stage"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrofin",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Wall time spent processing a document",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrofin",
			Subsystem: "pipeline",
			Name:      "classifications_total",
			Help:      "Expense categories assigned to processed documents",
		}, []string{"category"}),
		reviews: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "agrofin",
			Subsystem: "pipeline",
			Name:      "manual_review_total",
			Help:      "Documents whose classification fell back to manual review",
		}),
	}
}

func (m *Metrics) observe(res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !res.Success {
		outcome = "failed"
	}
	m.documents.WithLabelValues(outcome, res.ErrorCode, string(res.Stage)).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if res.Data != nil {
		m.observeClassifications(res.Data)
	}
}

func (m *Metrics) observeClassifications(rec *extraction.Record) {
	for _, c := range rec.Classifications {
		m.classifications.WithLabelValues(c.Category).Inc()
	}
	if rec.NeedsReview() {
		m.reviews.Inc()
	}
}
