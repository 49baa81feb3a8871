package predict

import (
	"context"
	"time"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

const momentumConfidence = 0.4

// MomentumPredictor projects the mean of the recent daily returns one day
// forward. It is the terminal fallback: local, cheap and always available
// once two closes exist.
type MomentumPredictor struct {
	lookback int
}

func NewMomentumPredictor(lookback int) *MomentumPredictor {
	if lookback <= 0 {
		lookback = 5
	}
	return &MomentumPredictor{lookback: lookback}
}

func (m *MomentumPredictor) Name() string { return "momentum" }

func (m *MomentumPredictor) MinHistory() int { return 2 }

func (m *MomentumPredictor) Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(history) < m.MinHistory() {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "%s: %d candles", symbol, len(history))
	}

	closes := closePrices(history)
	returns := dailyReturns(closes)
	if len(returns) == 0 {
		return nil, errors.NewPredictionError(symbol, m.Name(), "no usable returns in history", nil)
	}
	if len(returns) > m.lookback {
		returns = returns[len(returns)-m.lookback:]
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	current := closes[len(closes)-1]
	pred := &models.PricePrediction{
		Symbol:         symbol,
		CurrentPrice:   current,
		PredictedPrice: current * (1 + mean),
		Confidence:     momentumConfidence,
		ModelUsed:      m.Name(),
		CreatedAt:      time.Now(),
	}
	pred.Direction = models.DirectionFor(pred.ChangePct())
	return pred, nil
}
