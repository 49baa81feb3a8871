package models

import (
	"math"
	"time"
)

// Position represents an open paper position. Quantity is signed:
// positive for LONG, negative for SHORT.
type Position struct {
	Symbol          string       `json:"symbol"`
	Side            PositionSide `json:"side"`
	Quantity        float64      `json:"quantity"`
	EntryPrice      float64      `json:"entry_price"`
	EntryValue      float64      `json:"entry_value"`
	StopLossPrice   float64      `json:"stop_loss_price"`
	TakeProfitPrice float64      `json:"take_profit_price"`
	CurrentPrice    float64      `json:"current_price"`
	UnrealizedPnL   float64      `json:"unrealized_pnl"`
	OpenedAt        time.Time    `json:"opened_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// MarkToMarket updates the position's mark price and unrealized PnL.
func (p *Position) MarkToMarket(price float64, at time.Time) {
	p.CurrentPrice = price
	p.UnrealizedPnL = p.Quantity * (price - p.EntryPrice)
	p.UpdatedAt = at
}

// Exposure returns the absolute current market value of the position.
func (p *Position) Exposure() float64 {
	price := p.CurrentPrice
	if price == 0 {
		price = p.EntryPrice
	}
	return math.Abs(p.Quantity) * price
}

// LiquidationValue returns the capital the position would release if closed
// at its current mark.
func (p *Position) LiquidationValue() float64 {
	return p.EntryValue + p.UnrealizedPnL
}

// ExitReason reports whether the given price crosses the stop-loss or
// take-profit level, and which. Levels are checked at the observed price,
// so a gap through a trigger exits at the gapped price.
func (p *Position) ExitReason(price float64) (CloseReason, bool) {
	if p.Side == SideLong {
		if price <= p.StopLossPrice {
			return CloseStopLoss, true
		}
		if price >= p.TakeProfitPrice {
			return CloseTakeProfit, true
		}
		return "", false
	}
	if price >= p.StopLossPrice {
		return CloseStopLoss, true
	}
	if price <= p.TakeProfitPrice {
		return CloseTakeProfit, true
	}
	return "", false
}
