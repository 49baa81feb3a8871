package models

import "time"

// AlertKind classifies run report alerts.
type AlertKind string

const (
	AlertNoSignal     AlertKind = "NO_SIGNAL"
	AlertDegraded     AlertKind = "DEGRADED"
	AlertRiskRejected AlertKind = "RISK_REJECTED"
	AlertStaleData    AlertKind = "STALE_DATA"
	AlertExit         AlertKind = "EXIT"
	AlertTrade        AlertKind = "TRADE"
	AlertError        AlertKind = "ERROR"
)

// RunAlert annotates a run report with a per-symbol condition.
type RunAlert struct {
	Symbol  string    `json:"symbol,omitempty"`
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// RunReport is the JSON document produced by one daily run. Every requested
// symbol appears in TradingSignals, in Alerts, or in both.
type RunReport struct {
	RunID           string                    `json:"run_id"`
	Timestamp       time.Time                 `json:"timestamp"`
	SymbolsAnalyzed []string                  `json:"symbols_analyzed"`
	TradingSignals  map[string]*TradingSignal `json:"trading_signals"`
	Alerts          []RunAlert                `json:"alerts"`
}

// AddAlert appends an alert to the report.
func (r *RunReport) AddAlert(symbol string, kind AlertKind, message string) {
	r.Alerts = append(r.Alerts, RunAlert{Symbol: symbol, Kind: kind, Message: message})
}

// DailySnapshot captures end-of-run portfolio value for one calendar date.
type DailySnapshot struct {
	Date           string  `json:"date"`
	TotalValue     float64 `json:"total_value"`
	Cash           float64 `json:"cash"`
	PositionsValue float64 `json:"positions_value"`
	DailyReturnPct float64 `json:"daily_return_pct"`
	TotalReturnPct float64 `json:"total_return_pct"`
}

// PortfolioState is the persisted form of the paper portfolio.
type PortfolioState struct {
	InitialCapital float64              `json:"initial_capital"`
	CurrentCapital float64              `json:"current_capital"`
	Positions      map[string]*Position `json:"positions"`
	TradeHistory   []*Trade             `json:"trade_history"`
	DailyValues    []*DailySnapshot     `json:"daily_portfolio_values"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// PerformanceSummary aggregates portfolio performance statistics.
type PerformanceSummary struct {
	InitialCapital float64 `json:"initial_capital"`
	CurrentCapital float64 `json:"current_capital"`
	TotalValue     float64 `json:"total_value"`
	TotalReturnPct float64 `json:"total_return_pct"`
	OpenPositions  int     `json:"open_positions"`
	TotalTrades    int     `json:"total_trades"`
	ClosedTrades   int     `json:"closed_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalPnL       float64 `json:"total_pnl"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}
