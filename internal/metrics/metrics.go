// Package metrics holds the Prometheus collectors of the wallet core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is passed explicitly to every component that records. All methods
// are no-ops on a nil receiver.
type Metrics struct {
	buildsTotal       *prometheus.CounterVec
	searchSteps       prometheus.Histogram
	sendsTotal        *prometheus.CounterVec
	sendDuration      *prometheus.HistogramVec
	rpcCallsTotal     *prometheus.CounterVec
	rpcCallDuration   *prometheus.HistogramVec
	resolverLookups   *prometheus.CounterVec
	historyRows       prometheus.Histogram
	historyDuration   prometheus.Histogram
	priceLookupsTotal *prometheus.CounterVec
	balanceMinorUnits prometheus.Gauge
}

// New registers every collector with registry, or the default registerer
// when registry is nil.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		buildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klingpay_candidate_builds_total",
				Help: "Candidate transaction builds by variant and result",
			},
			[]string{"variant", "result"},
		),
		searchSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "klingpay_max_sendable_steps",
				Help:    "Builder invocations per max-sendable search",
				Buckets: []float64{1, 8, 16, 24, 32, 48, 64},
			},
		),
		sendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klingpay_sends_total",
				Help: "Payment attempts by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		sendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "klingpay_send_duration_seconds",
				Help:    "Duration of payment attempts in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"variant"},
		),
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klingpay_rpc_calls_total",
				Help: "Remote calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "klingpay_rpc_call_duration_seconds",
				Help:    "Duration of remote calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		resolverLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klingpay_handle_lookups_total",
				Help: "Handle resolutions by result (hit, miss, not_found, error)",
			},
			[]string{"result"},
		),
		historyRows: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "klingpay_history_rows",
				Help:    "Rows produced per history reconstruction",
				Buckets: []float64{0, 5, 10, 20, 50, 100},
			},
		),
		historyDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "klingpay_history_refresh_duration_seconds",
				Help:    "Duration of history refreshes in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		priceLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klingpay_price_lookups_total",
				Help: "Price lookups by result (hit, fetch, error)",
			},
			[]string{"result"},
		),
		balanceMinorUnits: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "klingpay_balance_minor_units",
				Help: "Last observed wallet balance in minor units",
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordBuild counts one builder invocation.
func (m *Metrics) RecordBuild(variant string, err error) {
	if m == nil {
		return
	}
	m.buildsTotal.WithLabelValues(variant, status(err)).Inc()
}

// RecordSearch records the number of builder calls one search made.
func (m *Metrics) RecordSearch(steps int) {
	if m == nil {
		return
	}
	m.searchSteps.Observe(float64(steps))
}

// RecordSend records a payment attempt. outcome is "success" or the error
// kind.
func (m *Metrics) RecordSend(variant, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(variant, outcome).Inc()
	m.sendDuration.WithLabelValues(variant).Observe(d.Seconds())
}

// RecordRPCCall records a remote call with its duration.
func (m *Metrics) RecordRPCCall(method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status(err)).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordLookup records a handle resolution result.
func (m *Metrics) RecordLookup(result string) {
	if m == nil {
		return
	}
	m.resolverLookups.WithLabelValues(result).Inc()
}

// RecordHistory records one history refresh.
func (m *Metrics) RecordHistory(rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.historyRows.Observe(float64(rows))
	m.historyDuration.Observe(d.Seconds())
}

// RecordPriceLookup records a price lookup result.
func (m *Metrics) RecordPriceLookup(result string) {
	if m == nil {
		return
	}
	m.priceLookupsTotal.WithLabelValues(result).Inc()
}

// SetBalance records the latest balance.
func (m *Metrics) SetBalance(units uint64) {
	if m == nil {
		return
	}
	m.balanceMinorUnits.Set(float64(units))
}
