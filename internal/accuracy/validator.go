// Package accuracy validates stored predictions against realized prices.
package accuracy

import (
	"context"
	"math"
	"time"

	"signal-trader/internal/marketdata"
	"signal-trader/internal/models"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

// flatBandPct is the realized-change band inside which a FLAT call counts
// as correct.
const flatBandPct = 0.5

// Validator resolves pending predictions once their target close exists.
type Validator struct {
	store    store.Store
	provider marketdata.Provider
	now      func() time.Time
}

func NewValidator(st store.Store, provider marketdata.Provider) *Validator {
	return &Validator{
		store:    st,
		provider: provider,
		now:      time.Now,
	}
}

// Result summarizes one validation pass.
type Result struct {
	Checked   int `json:"checked"`
	Evaluated int `json:"evaluated"`
	Correct   int `json:"correct"`
	Pending   int `json:"pending"`
}

// Validate evaluates every stored prediction that is at least lagDays
// trading days old. Predictions whose realized close cannot be fetched are
// left pending and picked up on the next pass.
func (v *Validator) Validate(ctx context.Context, lagDays int) (*Result, error) {
	if lagDays <= 0 {
		lagDays = 1
	}

	pending, err := v.store.PendingPredictions(ctx, cutoffDate(v.now(), lagDays))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		actualPrice, actualDate, ok := v.realizedClose(ctx, rec, lagDays)
		if !ok {
			res.Pending++
			continue
		}

		correct := IsCorrect(rec.Direction, rec.CurrentPrice, actualPrice)
		if err := v.store.MarkEvaluated(ctx, rec.ID, actualPrice, actualDate, correct); err != nil {
			return res, err
		}
		res.Evaluated++
		if correct {
			res.Correct++
		}
	}
	return res, nil
}

// Summary reports rolling accuracy over the last windowDays calendar days.
func (v *Validator) Summary(ctx context.Context, windowDays int) (*models.AccuracySummary, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	since := utils.DateKey(v.now().AddDate(0, 0, -windowDays))
	summary, err := v.store.AccuracySummary(ctx, since)
	if err != nil {
		return nil, err
	}
	summary.WindowDays = windowDays
	return summary, nil
}

// realizedClose finds the close of the prediction's target trading day.
// When that exact day never traded, the first later close stands in.
func (v *Validator) realizedClose(ctx context.Context, rec models.PredictionRecord, lagDays int) (float64, string, bool) {
	predDate, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return 0, "", false
	}
	target := utils.AddTradingDays(predDate, lagDays)

	days := int(v.now().Sub(predDate).Hours()/24) + 7
	candles, err := v.provider.History(ctx, rec.Symbol, days)
	if err != nil && len(candles) == 0 {
		return 0, "", false
	}

	targetKey := utils.DateKey(target)
	var laterPrice float64
	var laterKey string
	for _, c := range candles {
		key := utils.DateKey(c.Date)
		if key == targetKey {
			return c.Close, key, true
		}
		if key > targetKey && laterKey == "" {
			laterPrice, laterKey = c.Close, key
		}
	}
	if laterKey != "" {
		return laterPrice, laterKey, true
	}
	return 0, "", false
}

// IsCorrect reports whether a directional call matches the realized move.
// FLAT counts as correct when the realized change stays inside the band.
func IsCorrect(direction models.Direction, base, actual float64) bool {
	if base <= 0 {
		return false
	}
	switch direction {
	case models.DirectionUp:
		return actual > base
	case models.DirectionDown:
		return actual < base
	default:
		changePct := (actual - base) / base * 100
		return math.Abs(changePct) < flatBandPct
	}
}

// cutoffDate is the latest prediction date old enough to validate.
func cutoffDate(now time.Time, lagDays int) string {
	d := utils.Midnight(now)
	for i := 0; i < lagDays; i++ {
		d = utils.PrevTradingDay(d)
	}
	return utils.DateKey(d)
}
