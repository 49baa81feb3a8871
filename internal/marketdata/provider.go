// Package marketdata fetches quotes and daily history, with a cache-backed
// fallback so a flaky upstream degrades a run instead of aborting it.
package marketdata

import (
	"context"

	"signal-trader/internal/models"
)

// Provider serves the latest quote and the daily candle history for a symbol.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	// History returns daily candles covering the last days calendar days,
	// ordered oldest first.
	History(ctx context.Context, symbol string, days int) ([]models.Candle, error)
}
