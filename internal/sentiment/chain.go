package sentiment

import (
	"context"
	"fmt"
	"strings"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// Chain tries analyzers in order and returns the first successful read.
// All analyzers failing means sentiment is unavailable and the caller
// degrades to price-only fusion.
type Chain struct {
	analyzers []Analyzer
}

func NewChain(analyzers ...Analyzer) *Chain {
	return &Chain{analyzers: analyzers}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Analyze(ctx context.Context, symbol string, items []models.NewsItem) (*models.SentimentResult, error) {
	if len(items) == 0 {
		return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "%s: no news items", symbol)
	}
	if len(c.analyzers) == 0 {
		return nil, errors.Wrap(errors.ErrSentimentUnavailable, "no analyzers configured")
	}

	var failures []string
	for _, a := range c.analyzers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := a.Analyze(ctx, symbol, items)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", a.Name(), err))
			continue
		}
		return result, nil
	}
	return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "%s: %s", symbol, strings.Join(failures, "; "))
}
