package sentiment

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"signal-trader/internal/models"
)

type lexiconSeed struct {
	Bullish int
	Bearish int
	Filler  int
}

func genLexiconSeed() gopter.Gen {
	return gen.Struct(reflect.TypeOf(lexiconSeed{}), map[string]gopter.Gen{
		"Bullish": gen.IntRange(0, 20),
		"Bearish": gen.IntRange(0, 20),
		"Filler":  gen.IntRange(1, 10),
	})
}

func TestProperty_LexiconScoreMatchesTermCounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	l := NewLexiconAnalyzer()

	properties.Property("score, label and confidence follow the counts", prop.ForAll(
		func(seed lexiconSeed) bool {
			words := make([]string, 0, seed.Bullish+seed.Bearish+seed.Filler)
			for i := 0; i < seed.Bullish; i++ {
				words = append(words, "surge")
			}
			for i := 0; i < seed.Bearish; i++ {
				words = append(words, "plunge")
			}
			for i := 0; i < seed.Filler; i++ {
				words = append(words, "the")
			}

			items := []models.NewsItem{{Title: strings.Join(words, " ")}}
			got, err := l.Analyze(context.Background(), "ACME", items)
			if err != nil {
				return false
			}

			var wantScore float64
			if total := seed.Bullish + seed.Bearish; total > 0 {
				wantScore = float64(seed.Bullish-seed.Bearish) / float64(total)
			}
			if math.Abs(got.Score-wantScore) > 1e-12 {
				return false
			}

			wantLabel := models.SentimentNeutral
			switch {
			case wantScore > neutralBand:
				wantLabel = models.SentimentBullish
			case wantScore < -neutralBand:
				wantLabel = models.SentimentBearish
			}
			if got.Label != wantLabel {
				return false
			}

			if wantLabel == models.SentimentNeutral {
				return got.Confidence == 0.5
			}
			wantConf := math.Min(0.85, 0.35+math.Abs(wantScore)*0.5)
			return math.Abs(got.Confidence-wantConf) < 1e-12 &&
				got.Confidence >= 0.35 && got.Confidence <= 0.85
		},
		genLexiconSeed(),
	))

	properties.TestingRun(t)
}
