package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_transactions_recorded_total",
		Help: "Fuel transactions recorded by payment mode and status",
	}, []string{"payment_mode", "status"})

	LitersSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_liters_sold_total",
		Help: "Liters of fuel recorded across all transactions",
	})

	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_points_awarded_total",
		Help: "Reward points credited to customer ledgers",
	})

	PointsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_points_redeemed_total",
		Help: "Reward points debited by approved redemptions",
	})

	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewards_redemptions_total",
		Help: "Redemption state changes by resulting status",
	}, []string{"status"})

	BalanceDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewards_balance_drift_repaired_total",
		Help: "Cached balances repaired by reconciliation",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rewards_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func ObserveTransaction(paymentMode, status string, liters float64, points int64) {
	TransactionsRecorded.WithLabelValues(label(paymentMode), label(status)).Inc()
	if liters > 0 {
		LitersSold.Add(liters)
	}
	if points > 0 {
		PointsAwarded.Add(float64(points))
	}
}

func ObserveRedemption(status string, points int64) {
	Redemptions.WithLabelValues(label(status)).Inc()
	if status == "Approved" && points > 0 {
		PointsRedeemed.Add(float64(points))
	}
}

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, label(route), strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
