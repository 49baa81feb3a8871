// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"signal-trader/internal/models"
)

// Store defines the persistence interface for portfolio state, prediction
// history, signals, run reports and the price cache.
type Store interface {
	// Portfolio state
	SavePortfolio(ctx context.Context, state *models.PortfolioState) error
	LoadPortfolio(ctx context.Context) (*models.PortfolioState, error)

	// Prediction accuracy tracking
	SavePrediction(ctx context.Context, rec *models.PredictionRecord) error
	PendingPredictions(ctx context.Context, cutoffDate string) ([]models.PredictionRecord, error)
	MarkEvaluated(ctx context.Context, id int64, actualPrice float64, actualDate string, correct bool) error
	AccuracySummary(ctx context.Context, sinceDate string) (*models.AccuracySummary, error)

	// Signal history
	SaveSignals(ctx context.Context, runID string, signals []*models.TradingSignal) error
	RecentSignals(ctx context.Context, symbol string, limit int) ([]models.TradingSignal, error)

	// Run reports
	SaveRun(ctx context.Context, report *models.RunReport) error
	GetRun(ctx context.Context, runID string) (*models.RunReport, error)
	RecentRuns(ctx context.Context, limit int) ([]models.RunReport, error)

	// Candle cache
	SaveCandles(ctx context.Context, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol string, from time.Time) ([]models.Candle, error)

	// Trade ledger queries
	Trades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying the trade ledger.
type TradeFilter struct {
	Symbol    string
	Type      models.TradeType
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
