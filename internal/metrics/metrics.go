package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for ClassifyRequests.
const (
	OutcomeSucceeded      = "succeeded"
	OutcomeServerError    = "server_error"
	OutcomeTransportError = "transport_error"
)

var (
	FormSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_form_submissions_total",
			Help: "Form submissions by result of local validation",
		},
		[]string{"result"},
	)

	ClassifyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_classify_requests_total",
			Help: "Completed classification requests by outcome",
		},
		[]string{"outcome"},
	)

	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_classify_request_duration_seconds",
			Help:    "Latency of calls to the classification service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	ClassifyInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_classify_requests_in_flight",
			Help: "Classification requests currently awaiting a response",
		},
	)

	StaleCompletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_classify_stale_completions_total",
			Help: "Classification replies discarded because a reset or newer submit superseded them",
		},
	)

	FormResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_form_resets_total",
			Help: "Explicit form resets",
		},
	)
)
