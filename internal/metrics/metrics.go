// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bingo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_transfers_total",
			Help: "Total number of transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	DailyClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_daily_claims_total",
			Help: "Total number of daily reward claims",
		},
		[]string{"rewarded"},
	)

	FreeGameAwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_free_game_awards_total",
			Help: "Total number of free game point awards",
		},
		[]string{"granted"},
	)

	DepositsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_deposits_initiated_total",
			Help: "Total number of deposit initiations by outcome",
		},
		[]string{"outcome"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bingo_settlements_total",
			Help: "Total number of payment settlements",
		},
		[]string{"kind", "status"},
	)

	WithdrawalsRequestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bingo_withdrawals_requested_total",
			Help: "Total number of withdrawal requests recorded",
		},
	)

	LeaderboardRecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bingo_leaderboard_recompute_duration_seconds",
			Help:    "Leaderboard recompute duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	LeaderboardEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bingo_leaderboard_entries",
			Help: "Number of entries in the latest snapshot",
		},
		[]string{"type"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransfer(outcome string) {
	TransfersTotal.WithLabelValues(outcome).Inc()
}

func RecordDailyClaim(rewarded bool) {
	DailyClaimsTotal.WithLabelValues(boolLabel(rewarded)).Inc()
}

func RecordFreeGameAward(granted bool) {
	FreeGameAwardsTotal.WithLabelValues(boolLabel(granted)).Inc()
}

func RecordDepositInitiated(outcome string) {
	DepositsInitiatedTotal.WithLabelValues(outcome).Inc()
}

func RecordSettlement(kind, status string) {
	SettlementsTotal.WithLabelValues(kind, status).Inc()
}

func RecordWithdrawalRequested() {
	WithdrawalsRequestedTotal.Inc()
}

func RecordLeaderboard(periodType string, entries int, seconds float64) {
	LeaderboardRecomputeDuration.WithLabelValues(periodType).Observe(seconds)
	LeaderboardEntries.WithLabelValues(periodType).Set(float64(entries))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
