// Package risk implements pre-trade checks, position sizing and exit levels.
package risk

import (
	"fmt"
	"math"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
)

// PortfolioState is the read-only portfolio view a risk decision is made
// against. The manager never mutates it.
type PortfolioState struct {
	CurrentCapital float64
	TotalExposure  float64
	OpenSides      map[string]models.PositionSide
}

// CheckResult holds the outcome of a pre-trade risk evaluation.
type CheckResult struct {
	Approved   bool
	Violations []string
}

// Reason returns the headline rejection reason, empty when approved.
func (r *CheckResult) Reason() string {
	if len(r.Violations) == 0 {
		return ""
	}
	return r.Violations[0]
}

func (r *CheckResult) fail(violation string) {
	r.Approved = false
	r.Violations = append(r.Violations, violation)
}

// Manager applies position risk rules. It is stateless: every decision is a
// pure function of the signal, the configuration and the portfolio view.
type Manager struct {
	cfg config.RiskConfig
}

// NewManager creates a risk manager.
func NewManager(cfg config.RiskConfig) *Manager {
	return &Manager{cfg: cfg}
}

// Evaluate runs all pre-trade checks. A rejection is normal control flow;
// all violated rules are collected, not just the first.
func (m *Manager) Evaluate(signal *models.TradingSignal, state PortfolioState) *CheckResult {
	result := &CheckResult{Approved: true}

	if !signal.Actionable() {
		result.fail("signal is not actionable (HOLD)")
		return result
	}

	if signal.Confidence < m.cfg.MinConfidence {
		result.fail(fmt.Sprintf("confidence %.2f below minimum %.2f", signal.Confidence, m.cfg.MinConfidence))
	}

	// No pyramiding: an open position in the signal's direction blocks the
	// trade. An opposite-direction signal passes; the portfolio closes the
	// old position before opening the new one.
	if side, open := state.OpenSides[signal.Symbol]; open && side == signal.Side() {
		result.fail(fmt.Sprintf("%s position already open on %s", side, signal.Symbol))
	}

	if state.CurrentCapital <= 0 {
		result.fail("no capital available")
		return result
	}

	proposedValue := m.Size(signal) * state.CurrentCapital
	exposure := (state.TotalExposure + proposedValue) / state.CurrentCapital
	if exposure > m.cfg.MaxPortfolioRisk {
		result.fail(fmt.Sprintf("exposure %.1f%% would exceed limit %.1f%%",
			exposure*100, m.cfg.MaxPortfolioRisk*100))
	}

	return result
}

// Size returns the position size as a fraction of current capital, scaled
// by signal confidence and score and clamped to the per-position cap.
func (m *Manager) Size(signal *models.TradingSignal) float64 {
	confidenceScale := 0.2 + signal.Confidence*1.2
	scoreScale := math.Min(0.5+math.Abs(signal.CombinedScore), 1.5)

	fraction := m.cfg.BaseSize * confidenceScale * scoreScale
	if fraction > m.cfg.MaxPositionSize {
		fraction = m.cfg.MaxPositionSize
	}
	return fraction
}

// StopTake returns the stop-loss and take-profit prices for an entry.
// Levels are multiplicative and direction-aware.
func (m *Manager) StopTake(entryPrice float64, side models.PositionSide) (stop, take float64) {
	if side == models.SideLong {
		return entryPrice * (1 - m.cfg.StopLossPct), entryPrice * (1 + m.cfg.TakeProfitPct)
	}
	return entryPrice * (1 + m.cfg.StopLossPct), entryPrice * (1 - m.cfg.TakeProfitPct)
}
