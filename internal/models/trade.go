package models

import "time"

// Trade is an immutable ledger entry. OPEN trades record fills that create a
// position; CLOSE trades record the exit and the realized PnL.
type Trade struct {
	ID          string       `json:"id" csv:"id"`
	PositionID  string       `json:"position_id" csv:"position_id"`
	Timestamp   time.Time    `json:"timestamp" csv:"timestamp"`
	Symbol      string       `json:"symbol" csv:"symbol"`
	Type        TradeType    `json:"type" csv:"type"`
	Side        PositionSide `json:"side" csv:"side"`
	Quantity    float64      `json:"quantity" csv:"quantity"`
	Price       float64      `json:"price" csv:"price"`
	Value       float64      `json:"value" csv:"value"`
	PnL         float64      `json:"pnl" csv:"pnl"`
	CloseReason CloseReason  `json:"close_reason,omitempty" csv:"close_reason"`
}

// Winning reports whether a CLOSE trade realized a profit.
func (t *Trade) Winning() bool {
	return t.Type == TradeClose && t.PnL > 0
}
