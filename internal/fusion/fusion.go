// Package fusion combines price predictions and news sentiment into trading signals.
package fusion

import (
	"fmt"
	"math"
	"time"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// Engine fuses a price prediction and a sentiment read into one TradingSignal.
// It is deterministic: identical inputs produce identical signals, and it
// never branches on which model produced the prediction.
type Engine struct {
	cfg config.FusionConfig
}

// NewEngine validates the fusion configuration and returns an engine.
func NewEngine(cfg config.FusionConfig) (*Engine, error) {
	if sum := cfg.PriceWeight + cfg.SentimentWeight; math.Abs(sum-1.0) > 1e-9 {
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "fusion weights sum to %.4f, want 1.0", sum)
	}
	if cfg.PriceWeight < 0 || cfg.PriceWeight > 1 || cfg.SentimentWeight < 0 || cfg.SentimentWeight > 1 {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "fusion weights must be between 0 and 1")
	}
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 1 {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "min_confidence must be between 0 and 1")
	}
	if cfg.ActionThreshold <= 0 || cfg.StrongThreshold <= cfg.ActionThreshold {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "thresholds must satisfy 0 < action < strong")
	}
	return &Engine{cfg: cfg}, nil
}

// Fuse combines a prediction and a sentiment result into a trading signal.
func (e *Engine) Fuse(pred *models.PricePrediction, sent *models.SentimentResult) *models.TradingSignal {
	ps := priceSignal(pred.ChangePct())
	ss := sentimentSignal(sent)

	score := ps*pred.Confidence*e.cfg.PriceWeight + ss*e.cfg.SentimentWeight
	confidence := (pred.Confidence + sent.Confidence) / 2

	sig := &models.TradingSignal{
		Symbol:          pred.Symbol,
		CombinedScore:   score,
		Confidence:      confidence,
		PriceSignal:     ps,
		SentimentSignal: ss,
		ModelUsed:       pred.ModelUsed,
		IsFallback:      pred.IsFallback,
		GeneratedAt:     time.Now(),
	}
	sig.Action, sig.Strength = e.decide(score, confidence)
	sig.Reasoning = fmt.Sprintf("prediction %s %+.2f%% (%s, confidence %.2f); sentiment %s (confidence %.2f, %d articles); combined score %.2f",
		pred.Direction, pred.ChangePct(), pred.ModelUsed, pred.Confidence,
		sent.Label, sent.Confidence, sent.SampleCount, score)
	return sig
}

// FusePriceOnly produces a degraded signal when sentiment is unavailable.
// The sentiment term contributes zero rather than being replaced by a
// neutral read at full weight, and overall confidence is the prediction's.
func (e *Engine) FusePriceOnly(pred *models.PricePrediction, cause string) *models.TradingSignal {
	ps := priceSignal(pred.ChangePct())

	score := ps * pred.Confidence * e.cfg.PriceWeight
	confidence := pred.Confidence

	sig := &models.TradingSignal{
		Symbol:         pred.Symbol,
		CombinedScore:  score,
		Confidence:     confidence,
		PriceSignal:    ps,
		ModelUsed:      pred.ModelUsed,
		IsFallback:     pred.IsFallback,
		Degraded:       true,
		DegradedReason: cause,
		GeneratedAt:    time.Now(),
	}
	sig.Action, sig.Strength = e.decide(score, confidence)
	sig.Reasoning = fmt.Sprintf("prediction %s %+.2f%% (%s, confidence %.2f); sentiment unavailable (%s); combined score %.2f (price only)",
		pred.Direction, pred.ChangePct(), pred.ModelUsed, pred.Confidence, cause, score)
	return sig
}

// NoSignal produces the placeholder signal for a symbol whose prediction
// could not be obtained. The symbol still appears in the run report.
func (e *Engine) NoSignal(symbol, cause string) *models.TradingSignal {
	return &models.TradingSignal{
		Symbol:         symbol,
		Action:         models.ActionHold,
		Strength:       models.StrengthNeutral,
		Degraded:       true,
		DegradedReason: cause,
		Reasoning:      "no signal: " + cause,
		GeneratedAt:    time.Now(),
	}
}

func (e *Engine) decide(score, confidence float64) (models.SignalAction, models.SignalStrength) {
	if score > e.cfg.ActionThreshold && confidence >= e.cfg.MinConfidence {
		if score > e.cfg.StrongThreshold {
			return models.ActionBuy, models.StrengthStrong
		}
		return models.ActionBuy, models.StrengthModerate
	}
	if score < -e.cfg.ActionThreshold && confidence >= e.cfg.MinConfidence {
		if score < -e.cfg.StrongThreshold {
			return models.ActionSell, models.StrengthStrong
		}
		return models.ActionSell, models.StrengthModerate
	}
	return models.ActionHold, models.StrengthNeutral
}

// priceSignal buckets a predicted percent change into a directional signal.
func priceSignal(changePct float64) float64 {
	switch {
	case changePct > 2.0:
		return 1.0
	case changePct > 0.5:
		return 0.5
	case changePct < -2.0:
		return -1.0
	case changePct < -0.5:
		return -0.5
	default:
		return 0
	}
}

// sentimentSignal maps a sentiment read to a signed signal. NEUTRAL
// contributes zero regardless of confidence.
func sentimentSignal(sent *models.SentimentResult) float64 {
	switch sent.Label {
	case models.SentimentBullish:
		return sent.Confidence
	case models.SentimentBearish:
		return -sent.Confidence
	default:
		return 0
	}
}
