// Package metrics provides Prometheus instrumentation for the auction engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BidsAccepted counts accepted bids.
	BidsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numislive_bids_accepted_total",
		Help: "Total number of accepted bids",
	})

	// BidsRejected counts rejected bids, partitioned by reason.
	BidsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numislive_bids_rejected_total",
		Help: "Total number of rejected bids",
	}, []string{"reason"})

	// ListingsClosed counts close transitions, partitioned by trigger
	// (sweep or manual).
	ListingsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numislive_listings_closed_total",
		Help: "Total number of listings closed",
	}, []string{"trigger"})

	// PaymentsRecorded counts newly recorded payments.
	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numislive_payments_recorded_total",
		Help: "Total number of payments recorded",
	})

	// DuplicatePayments counts confirmations suppressed by the idempotency
	// check.
	DuplicatePayments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numislive_duplicate_payment_confirmations_total",
		Help: "Duplicate payment confirmations suppressed",
	})

	// SweepRuns counts expiry sweeps executed.
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numislive_sweep_runs_total",
		Help: "Total number of expiry sweeps executed",
	})

	// WebSocketClients tracks connected websocket subscribers.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "numislive_websocket_clients",
		Help: "Number of connected websocket subscribers",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
