package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// neutralBand is the score band treated as NEUTRAL.
const neutralBand = 0.15

var bullishTerms = map[string]bool{
	"surge": true, "surges": true, "surged": true,
	"soar": true, "soars": true, "soared": true,
	"rally": true, "rallies": true, "rallied": true,
	"jump": true, "jumps": true, "jumped": true,
	"gain": true, "gains": true, "gained": true,
	"climb": true, "climbs": true, "climbed": true,
	"beat": true, "beats": true, "tops": true,
	"upgrade": true, "upgraded": true, "upgrades": true,
	"bullish": true, "outperform": true, "outperforms": true,
	"strong": true, "growth": true, "record": true,
	"profit": true, "profits": true, "profitable": true,
	"boost": true, "boosts": true, "boosted": true,
	"raises": true, "raised": true, "buy": true,
	"breakthrough": true, "wins": true, "won": true,
}

var bearishTerms = map[string]bool{
	"plunge": true, "plunges": true, "plunged": true,
	"tumble": true, "tumbles": true, "tumbled": true,
	"slump": true, "slumps": true, "slumped": true,
	"fall": true, "falls": true, "fell": true,
	"drop": true, "drops": true, "dropped": true,
	"sink": true, "sinks": true, "sank": true,
	"crash": true, "crashes": true, "crashed": true,
	"miss": true, "misses": true, "missed": true,
	"downgrade": true, "downgraded": true, "downgrades": true,
	"bearish": true, "underperform": true, "underperforms": true,
	"weak": true, "decline": true, "declines": true,
	"loss": true, "losses": true, "warning": true,
	"lawsuit": true, "probe": true, "investigation": true,
	"recall": true, "layoffs": true, "cuts": true,
	"bankruptcy": true, "sell": true, "fears": true,
}

// LexiconAnalyzer scores headlines against finance word lists. It needs no
// network and always produces the same result for the same input.
type LexiconAnalyzer struct{}

func NewLexiconAnalyzer() *LexiconAnalyzer { return &LexiconAnalyzer{} }

func (l *LexiconAnalyzer) Name() string { return "lexicon" }

func (l *LexiconAnalyzer) Analyze(ctx context.Context, symbol string, items []models.NewsItem) (*models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "%s: no news items", symbol)
	}

	var pos, neg int
	for _, item := range items {
		for _, token := range tokenize(item.Text()) {
			if bullishTerms[token] {
				pos++
			}
			if bearishTerms[token] {
				neg++
			}
		}
	}

	var score float64
	if total := pos + neg; total > 0 {
		score = float64(pos-neg) / float64(total)
	}

	label := models.SentimentNeutral
	switch {
	case score > neutralBand:
		label = models.SentimentBullish
	case score < -neutralBand:
		label = models.SentimentBearish
	}

	confidence := 0.5
	if label != models.SentimentNeutral {
		confidence = math.Min(0.85, 0.35+math.Abs(score)*0.5)
	}

	return &models.SentimentResult{
		Symbol:      symbol,
		Label:       label,
		Confidence:  confidence,
		Score:       score,
		SampleCount: len(items),
		Provider:    l.Name(),
		Reasoning:   fmt.Sprintf("%d bullish vs %d bearish terms across %d items", pos, neg, len(items)),
		CreatedAt:   time.Now(),
	}, nil
}

// tokenize lowercases and splits on anything that is not a letter or digit,
// so terms match whole words only.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
