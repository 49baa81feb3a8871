// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"
	"time"
)

// FormatScore formats a combined signal score with explicit sign.
func FormatScore(score float64) string {
	return fmt.Sprintf("%+.2f", score)
}

// FormatConfidence formats a unit-interval confidence.
func FormatConfidence(conf float64) string {
	return fmt.Sprintf("%.2f", conf)
}

// FormatDateTime renders t with the configured date and time layouts.
func (a *App) FormatDateTime(t time.Time) string {
	return t.Format(a.Config.UI.DateFormat + " " + a.Config.UI.TimeFormat)
}

// FormatDate renders t with the configured date layout.
func (a *App) FormatDate(t time.Time) string {
	return t.Format(a.Config.UI.DateFormat)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
