// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatYen formats an amount as yen with thousands separators and two decimals.
func FormatYen(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "¥" + formatThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatThousands groups an integer string in threes: 1234567 -> 1,234,567.
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats a profit or loss in yen with sign.
func FormatPnL(pnl float64) string {
	formatted := FormatYen(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}
