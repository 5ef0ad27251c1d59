package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Tickets issued, by initial state",
		},
		[]string{"state"},
	)

	ticketScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_scans_total",
			Help: "Scan attempts, by result code",
		},
		[]string{"result"},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_transitions_total",
			Help: "Accepted lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	codeCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_code_collisions_total",
			Help: "Generated ticket codes rejected by the unique index",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_scan_duration_seconds",
			Help:    "Time to resolve a scan, including conflict reconciliation",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

func TrackIssued(state string) {
	ticketsIssued.WithLabelValues(state).Inc()
}

// TrackScan records one scan outcome; result is "success" or an error code.
func TrackScan(result string, duration time.Duration) {
	ticketScans.WithLabelValues(result).Inc()
	scanDuration.Observe(duration.Seconds())
}

func TrackTransition(from, to string) {
	ticketTransitions.WithLabelValues(from, to).Inc()
}

func TrackCodeCollision() {
	codeCollisions.Inc()
}
