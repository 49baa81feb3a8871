package models

import "time"

// TradingSignal is the fused output of price prediction and news sentiment.
type TradingSignal struct {
	Symbol          string         `json:"symbol"`
	Action          SignalAction   `json:"action"`
	Strength        SignalStrength `json:"strength"`
	CombinedScore   float64        `json:"combined_score"`
	Confidence      float64        `json:"confidence"`
	PriceSignal     float64        `json:"price_signal"`
	SentimentSignal float64        `json:"sentiment_signal"`
	Reasoning       string         `json:"reasoning"`
	ModelUsed       string         `json:"model_used,omitempty"`
	IsFallback      bool           `json:"is_fallback,omitempty"`
	Degraded        bool           `json:"degraded,omitempty"`
	DegradedReason  string         `json:"degraded_reason,omitempty"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// Actionable reports whether the signal asks for an order.
func (s *TradingSignal) Actionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

// Side returns the position side the signal opens.
func (s *TradingSignal) Side() PositionSide {
	if s.Action == ActionSell {
		return SideShort
	}
	return SideLong
}
