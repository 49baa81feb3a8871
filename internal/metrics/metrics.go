// Package metrics exposes prometheus counters for runs, signals and trades.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trader_runs_total", Help: "Daily runs executed"},
		[]string{"status"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trader_signals_total", Help: "Trading signals generated"},
		[]string{"symbol", "action"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trader_trades_total", Help: "Paper trades executed"},
		[]string{"symbol", "side", "type"},
	)
	ProviderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_trader_provider_failures_total", Help: "Outbound provider failures"},
		[]string{"provider"},
	)
	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "signal_trader_portfolio_value", Help: "Current total portfolio value"},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal, SignalsTotal, TradesTotal, ProviderFailures, PortfolioValue)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
