package predict

import (
	"context"
	"fmt"
	"strings"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// Chain walks its providers in order and returns the first successful
// forecast. Providers whose MinHistory exceeds the available candles are
// skipped without counting as failures; a forecast produced by anything
// but the first provider is tagged as a fallback.
type Chain struct {
	providers []Predictor
}

func NewChain(providers ...Predictor) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) Name() string { return "chain" }

// MinHistory is the smallest MinHistory among the providers, so the chain
// can run as soon as any provider can.
func (c *Chain) MinHistory() int {
	min := 0
	for i, p := range c.providers {
		if i == 0 || p.MinHistory() < min {
			min = p.MinHistory()
		}
	}
	return min
}

func (c *Chain) Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error) {
	if len(c.providers) == 0 {
		return nil, errors.Wrap(errors.ErrPredictionUnavailable, "no providers configured")
	}

	var failures []string
	skipped := 0
	for i, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(history) < p.MinHistory() {
			skipped++
			continue
		}

		pred, err := p.Predict(ctx, symbol, history)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}

		pred.ModelUsed = p.Name()
		pred.IsFallback = i > 0
		return pred, nil
	}

	if skipped == len(c.providers) {
		return nil, errors.Wrapf(errors.ErrInsufficientHistory, "%s: %d candles", symbol, len(history))
	}
	return nil, errors.Wrapf(errors.ErrPredictionUnavailable, "%s: %s", symbol, strings.Join(failures, "; "))
}
