// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount formats a currency value with thousands separators and cents.
// e.g., 1234.5 -> "$1,234.50", -3 -> "-$3.00"
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	return fmt.Sprintf("%s$%s.%02d", sign, FormatNumber(cents/100), cents%100)
}

// FormatDecimal formats an exact ledger amount like FormatAmount.
func FormatDecimal(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return FormatAmount(f)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatScore formats a 0-100 score.
func FormatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}

// FormatMetric formats an evaluation metric, with n/a for NaN.
func FormatMetric(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatDelta formats an amount change with an explicit sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatAmount(delta)
	}
	return FormatAmount(delta)
}

// FormatTimestamp formats a ledger timestamp.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
