package portfolio

import (
	"math"
	"time"

	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

const tradingDaysPerYear = 252

// CalculateDailyPerformance appends an end-of-run snapshot for the given
// date. Running it twice for the same date replaces the earlier snapshot, so
// re-running a day never double-counts.
func (p *Portfolio) CalculateDailyPerformance(date time.Time) *models.DailySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var unrealized, entryValue float64
	for _, pos := range p.positions {
		unrealized += pos.UnrealizedPnL
		entryValue += pos.EntryValue
	}

	snap := &models.DailySnapshot{
		Date:           utils.DateKey(date),
		TotalValue:     p.currentCapital + unrealized,
		Cash:           p.currentCapital - entryValue,
		PositionsValue: entryValue + unrealized,
	}
	if p.initialCapital > 0 {
		snap.TotalReturnPct = (snap.TotalValue - p.initialCapital) / p.initialCapital * 100
	}

	if n := len(p.snapshots); n > 0 && p.snapshots[n-1].Date == snap.Date {
		p.snapshots = p.snapshots[:n-1]
	}
	if n := len(p.snapshots); n > 0 {
		if prev := p.snapshots[n-1].TotalValue; prev > 0 {
			snap.DailyReturnPct = (snap.TotalValue - prev) / prev * 100
		}
	}
	p.snapshots = append(p.snapshots, snap)

	cp := *snap
	return &cp
}

// Summary computes portfolio performance statistics from the current state,
// the trade ledger and the daily value history.
func (p *Portfolio) Summary() *models.PerformanceSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := &models.PerformanceSummary{
		InitialCapital: p.initialCapital,
		CurrentCapital: p.currentCapital,
		OpenPositions:  len(p.positions),
		TotalTrades:    len(p.trades),
	}

	var unrealized float64
	for _, pos := range p.positions {
		unrealized += pos.UnrealizedPnL
	}
	s.TotalValue = p.currentCapital + unrealized
	s.TotalPnL = s.TotalValue - p.initialCapital
	if p.initialCapital > 0 {
		s.TotalReturnPct = s.TotalPnL / p.initialCapital * 100
	}

	for _, t := range p.trades {
		if t.Type != models.TradeClose {
			continue
		}
		s.ClosedTrades++
		if t.Winning() {
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}
	}
	if s.ClosedTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.ClosedTrades) * 100
	}

	s.MaxDrawdownPct = p.maxDrawdownLocked()
	s.SharpeRatio = p.sharpeRatioLocked()
	return s
}

// maxDrawdownLocked returns the largest peak-to-trough decline in total
// value across the snapshot history, as a percentage of the peak.
func (p *Portfolio) maxDrawdownLocked() float64 {
	peak := p.initialCapital
	var maxDrawdown float64
	for _, snap := range p.snapshots {
		if snap.TotalValue > peak {
			peak = snap.TotalValue
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - snap.TotalValue) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown * 100
}

// sharpeRatioLocked computes an annualized Sharpe ratio from day-over-day
// snapshot returns. Too short a history or zero volatility yields 0.
func (p *Portfolio) sharpeRatioLocked() float64 {
	if len(p.snapshots) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(p.snapshots)-1)
	for i := 1; i < len(p.snapshots); i++ {
		prev := p.snapshots[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, (p.snapshots[i].TotalValue-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	dailyRiskFree := p.riskFreeRate / tradingDaysPerYear
	return (mean - dailyRiskFree) / stdDev * math.Sqrt(tradingDaysPerYear)
}
