package cli

import (
	"fmt"
	"time"

	"llm-trade-verifier/pkg/utils"
)

// FormatYen formats an amount in yen with thousands separators.
func FormatYen(amount float64) string {
	return utils.FormatYen(amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	return utils.FormatPercent(value)
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64) string {
	return utils.FormatPnL(pnl)
}

// FormatRate formats an unsigned rate such as a win rate or accuracy.
func FormatRate(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatOptionalYen formats an optional price, rendering nil as a dash.
func FormatOptionalYen(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatYen(*v)
}

// FormatDate formats a stored date as a Tokyo calendar day.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.TokyoLocation).Format("2006-01-02")
}

// FormatDateTime formats a timestamp in the market's local time.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(utils.TokyoLocation).Format("2006-01-02 15:04")
}
