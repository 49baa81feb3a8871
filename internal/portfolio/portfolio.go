// Package portfolio implements the paper trading portfolio: position
// lifecycle, the trade ledger and daily performance accounting.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/models"
	"signal-trader/internal/risk"
)

// Portfolio simulates trading against real prices with paper money.
// Capital changes only when a position is closed; open positions carry
// unrealized PnL that never touches the capital balance.
type Portfolio struct {
	mu sync.RWMutex

	initialCapital float64
	currentCapital float64
	positions      map[string]*models.Position
	trades         []*models.Trade
	snapshots      []*models.DailySnapshot

	risk         *risk.Manager
	riskFreeRate float64
	tradeCounter int
	now          func() time.Time
}

// New creates an empty portfolio funded with the configured capital.
func New(cfg config.PortfolioConfig, riskMgr *risk.Manager) *Portfolio {
	return &Portfolio{
		initialCapital: cfg.InitialCapital,
		currentCapital: cfg.InitialCapital,
		positions:      make(map[string]*models.Position),
		risk:           riskMgr,
		riskFreeRate:   cfg.RiskFreeRate,
		now:            time.Now,
	}
}

// ExecuteTrade opens a position from an approved signal at the given price.
// Sizing and exit levels come from the risk manager. A signal opposite to an
// existing position closes the old position at the same price first; a
// same-direction signal is rejected with ErrPositionExists.
func (p *Portfolio) ExecuteTrade(signal *models.TradingSignal, price float64) (*models.Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !signal.Actionable() {
		return nil, errors.NewValidationError("action", string(signal.Action), "only BUY and SELL signals are executable")
	}
	if price <= 0 {
		return nil, errors.NewValidationError("price", fmt.Sprintf("%.4f", price), "execution price must be positive")
	}

	side := signal.Side()
	if existing, open := p.positions[signal.Symbol]; open {
		if existing.Side == side {
			return nil, errors.Wrapf(errors.ErrPositionExists, "%s %s", side, signal.Symbol)
		}
		// Reversal: realize the old position before opening the new one.
		p.closeLocked(existing, price, models.CloseManual)
	}
	if p.currentCapital <= 0 {
		return nil, errors.Wrapf(errors.ErrRiskRejected, "no capital to open %s", signal.Symbol)
	}

	fraction := p.risk.Size(signal)
	value := fraction * p.currentCapital
	quantity := value / price
	if side == models.SideShort {
		quantity = -quantity
	}
	stop, take := p.risk.StopTake(price, side)

	now := p.now()
	pos := &models.Position{
		Symbol:          signal.Symbol,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      price,
		EntryValue:      value,
		StopLossPrice:   stop,
		TakeProfitPrice: take,
		CurrentPrice:    price,
		OpenedAt:        now,
		UpdatedAt:       now,
	}
	p.positions[signal.Symbol] = pos

	return p.appendTradeLocked(&models.Trade{
		PositionID: positionID(pos),
		Timestamp:  now,
		Symbol:     signal.Symbol,
		Type:       models.TradeOpen,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Value:      value,
	}), nil
}

// ClosePosition closes the open position on symbol at the given price,
// realizing its PnL into capital.
func (p *Portfolio) ClosePosition(symbol string, price float64, reason models.CloseReason) (*models.Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return nil, errors.Wrap(errors.ErrPositionNotFound, symbol)
	}
	if price <= 0 {
		return nil, errors.NewValidationError("price", fmt.Sprintf("%.4f", price), "close price must be positive")
	}
	return p.closeLocked(pos, price, reason), nil
}

// UpdatePositions marks every open position to the latest price and closes
// the ones whose stop-loss or take-profit level was crossed. Exits fill at
// the observed price, so a gap through a trigger exits at the gapped price.
// Symbols missing from prices keep their last mark. Returns the exit trades.
func (p *Portfolio) UpdatePositions(prices map[string]float64) []*models.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	var exits []*models.Trade
	now := p.now()
	for _, symbol := range p.openSymbolsLocked() {
		pos := p.positions[symbol]
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}
		pos.MarkToMarket(price, now)
		if reason, hit := pos.ExitReason(price); hit {
			exits = append(exits, p.closeLocked(pos, price, reason))
		}
	}
	return exits
}

// closeLocked realizes the position's PnL at price, removes it and records
// the CLOSE trade. Callers hold the write lock and have validated price.
func (p *Portfolio) closeLocked(pos *models.Position, price float64, reason models.CloseReason) *models.Trade {
	pnl := pos.Quantity * (price - pos.EntryPrice)
	p.currentCapital += pnl
	delete(p.positions, pos.Symbol)

	return p.appendTradeLocked(&models.Trade{
		PositionID:  positionID(pos),
		Timestamp:   p.now(),
		Symbol:      pos.Symbol,
		Type:        models.TradeClose,
		Side:        pos.Side,
		Quantity:    pos.Quantity,
		Price:       price,
		Value:       math.Abs(pos.Quantity) * price,
		PnL:         pnl,
		CloseReason: reason,
	})
}

func (p *Portfolio) appendTradeLocked(trade *models.Trade) *models.Trade {
	p.tradeCounter++
	trade.ID = fmt.Sprintf("T%d_%d", trade.Timestamp.Unix(), p.tradeCounter)
	p.trades = append(p.trades, trade)
	return trade
}

func (p *Portfolio) openSymbolsLocked() []string {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// positionID derives a stable identifier linking a position's OPEN and
// CLOSE ledger entries.
func positionID(pos *models.Position) string {
	return fmt.Sprintf("P_%s_%d", pos.Symbol, pos.OpenedAt.UnixNano())
}

// RiskState returns the portfolio view risk checks evaluate against.
func (p *Portfolio) RiskState() risk.PortfolioState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := risk.PortfolioState{
		CurrentCapital: p.currentCapital,
		OpenSides:      make(map[string]models.PositionSide, len(p.positions)),
	}
	for symbol, pos := range p.positions {
		state.TotalExposure += pos.Exposure()
		state.OpenSides[symbol] = pos.Side
	}
	return state
}

// Restore replaces the portfolio's state with a previously exported one.
func (p *Portfolio) Restore(state *models.PortfolioState) error {
	if state == nil {
		return errors.NewValidationError("state", "nil", "nothing to restore")
	}
	if state.InitialCapital <= 0 {
		return errors.NewValidationError("initial_capital", fmt.Sprintf("%.2f", state.InitialCapital), "must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.initialCapital = state.InitialCapital
	p.currentCapital = state.CurrentCapital
	p.positions = make(map[string]*models.Position, len(state.Positions))
	for symbol, pos := range state.Positions {
		cp := *pos
		p.positions[symbol] = &cp
	}
	p.trades = make([]*models.Trade, len(state.TradeHistory))
	for i, t := range state.TradeHistory {
		cp := *t
		p.trades[i] = &cp
	}
	p.snapshots = make([]*models.DailySnapshot, len(state.DailyValues))
	for i, s := range state.DailyValues {
		cp := *s
		p.snapshots[i] = &cp
	}
	p.tradeCounter = len(p.trades)
	return nil
}

// Export emits the portfolio's persistable state. The returned value shares
// nothing with the live portfolio.
func (p *Portfolio) Export() *models.PortfolioState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := &models.PortfolioState{
		InitialCapital: p.initialCapital,
		CurrentCapital: p.currentCapital,
		Positions:      make(map[string]*models.Position, len(p.positions)),
		TradeHistory:   make([]*models.Trade, len(p.trades)),
		DailyValues:    make([]*models.DailySnapshot, len(p.snapshots)),
		UpdatedAt:      p.now(),
	}
	for symbol, pos := range p.positions {
		cp := *pos
		state.Positions[symbol] = &cp
	}
	for i, t := range p.trades {
		cp := *t
		state.TradeHistory[i] = &cp
	}
	for i, s := range p.snapshots {
		cp := *s
		state.DailyValues[i] = &cp
	}
	return state
}

// InitialCapital returns the starting capital.
func (p *Portfolio) InitialCapital() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialCapital
}

// CurrentCapital returns the realized capital balance.
func (p *Portfolio) CurrentCapital() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentCapital
}

// Position returns a copy of the open position on symbol, if any.
func (p *Portfolio) Position(symbol string) (*models.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pos, ok := p.positions[symbol]
	if !ok {
		return nil, false
	}
	cp := *pos
	return &cp, true
}

// Positions returns copies of all open positions, ordered by symbol.
func (p *Portfolio) Positions() []*models.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.Position, 0, len(p.positions))
	for _, symbol := range p.openSymbolsLocked() {
		cp := *p.positions[symbol]
		out = append(out, &cp)
	}
	return out
}

// Trades returns a copy of the trade ledger in execution order.
func (p *Portfolio) Trades() []*models.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.Trade, len(p.trades))
	for i, t := range p.trades {
		cp := *t
		out[i] = &cp
	}
	return out
}

// Snapshots returns a copy of the daily value history, oldest first.
func (p *Portfolio) Snapshots() []*models.DailySnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*models.DailySnapshot, len(p.snapshots))
	for i, s := range p.snapshots {
		cp := *s
		out[i] = &cp
	}
	return out
}
