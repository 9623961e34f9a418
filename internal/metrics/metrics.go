package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation outcomes and publish outcomes used as label values.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeOK      = "ok"
	OutcomeError   = "error"
)

var (
	// ValidationsTotal counts validator runs by outcome.
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizdoc_validations_total",
		Help: "Quiz document validations by outcome.",
	}, []string{"outcome"})

	// ViolationsTotal counts individual schema violations reported.
	ViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizdoc_violations_total",
		Help: "Schema violations reported across all validations.",
	})

	// PublishesTotal counts bin publish attempts by outcome.
	PublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizdoc_publishes_total",
		Help: "Document publish attempts by outcome.",
	}, []string{"outcome"})

	// PublishQueueDepth tracks jobs waiting for the publish worker.
	PublishQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizdoc_publish_queue_depth",
		Help: "Publish jobs currently queued.",
	})
)

// ObserveValidation records one validator run.
func ObserveValidation(valid bool, violations int) {
	if valid {
		ValidationsTotal.WithLabelValues(OutcomeValid).Inc()
		return
	}
	ValidationsTotal.WithLabelValues(OutcomeInvalid).Inc()
	ViolationsTotal.Add(float64(violations))
}
