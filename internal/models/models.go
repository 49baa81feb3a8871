// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Direction represents the predicted direction of a price move.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// SentimentLabel classifies the tone of news coverage for a symbol.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "BULLISH"
	SentimentBearish SentimentLabel = "BEARISH"
	SentimentNeutral SentimentLabel = "NEUTRAL"
)

// SignalAction represents the trading action a signal recommends.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// SignalStrength grades how decisive a signal is.
type SignalStrength string

const (
	StrengthStrong   SignalStrength = "STRONG"
	StrengthModerate SignalStrength = "MODERATE"
	StrengthWeak     SignalStrength = "WEAK"
	StrengthNeutral  SignalStrength = "NEUTRAL"
)

// PositionSide represents the direction of an open position.
type PositionSide string

const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// Opposite returns the other side.
func (s PositionSide) Opposite() PositionSide {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// TradeType distinguishes ledger entries that open a position from ones that close it.
type TradeType string

const (
	TradeOpen  TradeType = "OPEN"
	TradeClose TradeType = "CLOSE"
)

// CloseReason records why a position was closed.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseManual     CloseReason = "MANUAL"
)

// MarketState represents the trading session state reported by the quote source.
type MarketState string

const (
	MarketRegular MarketState = "REGULAR"
	MarketPre     MarketState = "PRE"
	MarketPost    MarketState = "POST"
	MarketClosed  MarketState = "CLOSED"
)

// Candle represents one day of OHLCV data.
type Candle struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Quote represents the latest observed price for a symbol.
type Quote struct {
	Symbol      string      `json:"symbol"`
	Price       float64     `json:"price"`
	Open        float64     `json:"open"`
	High        float64     `json:"high"`
	Low         float64     `json:"low"`
	Volume      int64       `json:"volume"`
	MarketState MarketState `json:"market_state"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewsItem represents a single news headline about a symbol.
type NewsItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Text returns the analyzable text of the item, preferring the richer description.
func (n NewsItem) Text() string {
	if n.Description != "" {
		return n.Title + ". " + n.Description
	}
	return n.Title
}
