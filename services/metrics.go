package services

import "github.com/prometheus/client_golang/prometheus"

var (
	questsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quests_completed_total",
			Help: "Quest instances transitioned to COMPLETED",
		},
		[]string{"cadence"},
	)
	xpAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Final experience points written to the ledger",
		},
	)
	daysClosedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "days_closed_total",
			Help: "Day-close reconciliations performed",
		},
	)
	questsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quests_expired_total",
			Help: "Quest instances expired unmet at period close",
		},
	)
)

// InitMetrics registers the domain counters. Call this from main.go.
func InitMetrics() {
	prometheus.MustRegister(questsCompletedTotal)
	prometheus.MustRegister(xpAwardedTotal)
	prometheus.MustRegister(daysClosedTotal)
	prometheus.MustRegister(questsExpiredTotal)
}
