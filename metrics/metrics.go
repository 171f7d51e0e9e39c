// Package metrics instruments the clearing-house dispatcher with
// Prometheus metrics, grounded on the teacher's monitoring/prometheus.go
// (promauto-registered counters/gauges/histograms exposed via
// promhttp.Handler). Scoped here to the operations spec.md's dispatcher
// actually performs: command outcomes, event emission counts, and the
// price/time advancement engine's latency, rather than the teacher's
// forex-specific LP/DB/margin metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearinghouse_orders_total",
			Help: "Total placeOrder outcomes by result.",
		},
		[]string{"result"}, // placed, rejected
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearinghouse_order_rejections_total",
			Help: "Total order placement rejections by kind.",
		},
		[]string{"kind"},
	)

	fillsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearinghouse_fills_total",
			Help: "Total successful fillOrder calls.",
		},
	)

	settlementsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearinghouse_settlements_total",
			Help: "Total positions settled via payout_settled.",
		},
	)

	expirationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearinghouse_expirations_total",
			Help: "Total positions expired via payout_expired.",
		},
	)

	unwindsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearinghouse_insolvency_unwinds_total",
			Help: "Total positions released for maker insolvency.",
		},
	)

	advanceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearinghouse_advance_duration_milliseconds",
			Help:    "advancePriceAndTime wall-clock duration in milliseconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	clockSeqGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clearinghouse_clock_seq",
			Help: "Last assigned event bus clockSeq.",
		},
	)

	openOrders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clearinghouse_open_orders",
			Help: "Number of addressable orders per orderbook.",
		},
		[]string{"orderbook_id"},
	)
)

// RecordOrderPlaced increments the placed outcome counter.
func RecordOrderPlaced() { ordersTotal.WithLabelValues("placed").Inc() }

// RecordOrderRejected increments the rejected outcome counter and the
// per-kind rejection counter.
func RecordOrderRejected(kind string) {
	ordersTotal.WithLabelValues("rejected").Inc()
	rejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordFill increments the fill counter.
func RecordFill() { fillsTotal.Inc() }

// RecordSettlement increments the settlement counter.
func RecordSettlement() { settlementsTotal.Inc() }

// RecordExpiration increments the expiration counter.
func RecordExpiration() { expirationsTotal.Inc() }

// RecordUnwind increments the insolvency-unwind counter.
func RecordUnwind() { unwindsTotal.Inc() }

// ObserveAdvanceDuration records how long one advancePriceAndTime call
// took.
func ObserveAdvanceDuration(d time.Duration) {
	advanceLatency.Observe(float64(d.Microseconds()) / 1000.0)
}

// SetClockSeq publishes the bus's current clockSeq as a gauge.
func SetClockSeq(seq uint64) { clockSeqGauge.Set(float64(seq)) }

// SetOpenOrders publishes the current addressable order count for an
// orderbook.
func SetOpenOrders(orderbookId string, count int) {
	openOrders.WithLabelValues(orderbookId).Set(float64(count))
}

// Handler returns the HTTP handler for the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
