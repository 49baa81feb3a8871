// Package predict produces next-day price forecasts through an ordered
// chain of providers with graceful fallback.
package predict

import (
	"context"

	"signal-trader/internal/models"
)

// Predictor produces a next-day price forecast from daily history.
type Predictor interface {
	// Name identifies the provider in signals and accuracy records.
	Name() string
	// MinHistory is the fewest candles the provider can work with.
	MinHistory() int
	// Predict forecasts the next close. History is ordered oldest first.
	Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error)
}

// closePrices extracts the close series from daily candles.
func closePrices(history []models.Candle) []float64 {
	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}
	return closes
}

// dailyReturns computes day-over-day fractional returns, skipping pairs
// with a non-positive base price.
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}
