// Package sentiment scores news coverage for a symbol, falling back from
// an LLM read to deterministic lexicon scoring.
package sentiment

import (
	"context"

	"signal-trader/internal/models"
)

// Analyzer produces a sentiment read from news items.
type Analyzer interface {
	// Name identifies the provider in signals and logs.
	Name() string
	// Analyze scores the given items for the symbol. Implementations must
	// fail rather than return a silent neutral default.
	Analyze(ctx context.Context, symbol string, items []models.NewsItem) (*models.SentimentResult, error)
}
