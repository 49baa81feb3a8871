package models

import "time"

// PricePrediction represents a next-day price forecast for a symbol.
type PricePrediction struct {
	Symbol         string    `json:"symbol"`
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	ModelUsed      string    `json:"model_used"`
	IsFallback     bool      `json:"is_fallback"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChangePct returns the predicted percent change from the current price.
func (p *PricePrediction) ChangePct() float64 {
	if p.CurrentPrice == 0 {
		return 0
	}
	return (p.PredictedPrice - p.CurrentPrice) / p.CurrentPrice * 100
}

// DirectionFor maps a percent change to a direction under a +/-0.1% flat band.
func DirectionFor(changePct float64) Direction {
	switch {
	case changePct > 0.1:
		return DirectionUp
	case changePct < -0.1:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// SentimentResult represents the aggregated news sentiment for a symbol.
type SentimentResult struct {
	Symbol      string         `json:"symbol"`
	Label       SentimentLabel `json:"label"`
	Confidence  float64        `json:"confidence"`
	Score       float64        `json:"score"`
	SampleCount int            `json:"sample_count"`
	Provider    string         `json:"provider"`
	Reasoning   string         `json:"reasoning,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// PredictionRecord is a stored prediction awaiting (or holding) validation
// against the realized price.
type PredictionRecord struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	Date           string    `json:"date"`
	CurrentPrice   float64   `json:"current_price"`
	PredictedPrice float64   `json:"predicted_price"`
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	ModelUsed      string    `json:"model_used"`
	IsFallback     bool      `json:"is_fallback"`
	ActualPrice    float64   `json:"actual_price,omitempty"`
	ActualDate     string    `json:"actual_date,omitempty"`
	Correct        bool      `json:"correct"`
	Evaluated      bool      `json:"evaluated"`
	CreatedAt      time.Time `json:"created_at"`
}

// ModelAccuracy aggregates validation results for one prediction model.
type ModelAccuracy struct {
	Model     string  `json:"model"`
	Evaluated int     `json:"evaluated"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// SymbolAccuracy aggregates validation results for one symbol.
type SymbolAccuracy struct {
	Symbol    string  `json:"symbol"`
	Evaluated int     `json:"evaluated"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// AccuracySummary is the rolling prediction accuracy report.
type AccuracySummary struct {
	WindowDays int                       `json:"window_days"`
	Total      int                       `json:"total"`
	Evaluated  int                       `json:"evaluated"`
	Correct    int                       `json:"correct"`
	Accuracy   float64                   `json:"accuracy"`
	ByModel    map[string]ModelAccuracy  `json:"by_model"`
	BySymbol   map[string]SymbolAccuracy `json:"by_symbol"`
}
