package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stream outcome labels.
const (
	OutcomeDone    = "done"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

var (
	// InvestigationsTotal counts investigation streams by operation and
	// terminal outcome.
	InvestigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "investigations_total",
		Help:      "Completed investigation streams by operation and outcome.",
	}, []string{"operation", "outcome"})

	// CardsEmitted counts evidence cards by source adapter.
	CardsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "cards_emitted_total",
		Help:      "Evidence cards emitted by source.",
	}, []string{"source"})

	// DegradedCards counts skipped and failed cards by source adapter.
	DegradedCards = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "degraded_cards_total",
		Help:      "Degraded (skipped or failed) cards by source.",
	}, []string{"source"})

	// ActiveStreams tracks currently open SSE streams.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "active_streams",
		Help:      "Currently open event streams.",
	})

	// Verdicts counts final verdicts by classification.
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Name:      "verdicts_total",
		Help:      "Final verdicts by classification.",
	}, []string{"verdict"})

	// LiveSessions tracks the session store size.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentinel",
		Name:      "live_sessions",
		Help:      "Sessions currently held in the store.",
	})
)

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
