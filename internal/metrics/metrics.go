// Package metrics registers the prometheus instruments shared across the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "coint_scans_total", Help: "Completed cointegration scan cycles"},
	)
	PairsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "coint_pairs_accepted_total", Help: "Pairs accepted by the scanner"},
	)
	PairsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "coint_pairs_rejected_total", Help: "Pairs rejected by the scanner"},
		[]string{"reason"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Simulated orders submitted"},
		[]string{"market", "side"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Active simulated positions"},
	)
	SimulatedBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "simulated_balance_usd", Help: "Simulated account balance"},
	)
	DataErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "data_errors_total", Help: "Transient market data failures"},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		ScansTotal, PairsAccepted, PairsRejected,
		OrdersTotal, OpenPositions, SimulatedBalance, DataErrorsTotal,
	)
}

// Serve exposes /metrics on the given address in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
