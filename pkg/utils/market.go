package utils

import (
	"time"
)

// MarketLocation is the timezone for US equity markets.
var MarketLocation *time.Location

func init() {
	var err error
	MarketLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		MarketLocation = time.FixedZone("EST", -5*60*60)
	}
}

// IsTradingDay reports whether the given date is a weekday. Exchange
// holidays are not modelled; validation lag arithmetic only needs the
// weekend skip.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextTradingDay returns the next weekday after t.
func NextTradingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PrevTradingDay returns the last weekday before t.
func PrevTradingDay(t time.Time) time.Time {
	prev := t.AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// AddTradingDays advances t by n weekdays.
func AddTradingDays(t time.Time, n int) time.Time {
	out := t
	for i := 0; i < n; i++ {
		out = NextTradingDay(out)
	}
	return out
}

// TradingDaysBetween counts weekdays strictly after from, up to and
// including to. Returns 0 when to is not after from.
func TradingDaysBetween(from, to time.Time) int {
	from = Midnight(from)
	to = Midnight(to)
	if !to.After(from) {
		return 0
	}
	count := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			count++
		}
	}
	return count
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats t as the canonical snapshot date key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsMarketOpen reports whether the regular US session is in progress
// (9:30-16:00 ET on weekdays).
func IsMarketOpen(now time.Time) bool {
	et := now.In(MarketLocation)
	if !IsTradingDay(et) {
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
