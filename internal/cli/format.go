// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTokens formats a token count with human-readable suffixes.
// e.g., 1234 -> "1.2K", 1234567 -> "1.2M"
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatCost formats a USD cost value.
func FormatCost(cost float64) string {
	switch {
	case cost >= 100:
		return fmt.Sprintf("$%.0f", cost)
	case cost >= 10:
		return fmt.Sprintf("$%.1f", cost)
	default:
		return fmt.Sprintf("$%.2f", cost)
	}
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
	return fmt.Sprintf("%.0f%%", f*100)
}

// FormatDurationMs formats milliseconds into a compact duration.
// e.g., 90500 -> "1m 30s", 2300 -> "2.3s", 45 -> "45ms"
func FormatDurationMs(ms float64) string {
	switch {
	case ms >= 60_000:
		mins := int(ms) / 60_000
		secs := (int(ms) % 60_000) / 1000
		return fmt.Sprintf("%dm %ds", mins, secs)
	case ms >= 1000:
		return fmt.Sprintf("%.1fs", ms/1000)
	default:
		return fmt.Sprintf("%.0fms", ms)
	}
}

// FormatTimeAgo renders how long ago t was, relative to now.
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Ellipsize cuts s to max runes, appending "…" when truncated.
func Ellipsize(s string, max int) string {
	runes := []rune(strings.ReplaceAll(s, "\n", " "))
	if max <= 1 || len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}
