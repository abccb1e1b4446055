// Package format provides display formatting helpers shared by the listing
// loaders and the CLI: human readable file sizes, dates, and abbreviated
// counters.
package format

import (
	"fmt"
	"strconv"
	"time"
)

// Date layout used across listing views.
const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04"
)

// FileSize formats a byte count as a human readable string using 1024-based
// units (B, KB, MB, GB, TB).
func FileSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}

	if i == 0 {
		return fmt.Sprintf("%d B", size)
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}

// Count abbreviates a counter with K/M suffixes at the 1,000 and 1,000,000
// thresholds ("1.5K", "2.0M").
func Count(n int) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return strconv.Itoa(n)
	}
}

// Date formats a unix timestamp as a calendar date, or "unknown" for zero and
// negative timestamps.
func Date(ts int64) string {
	if ts <= 0 {
		return "unknown"
	}
	return time.Unix(ts, 0).Format(DateLayout)
}

// Time formats the clock part of a unix timestamp, or "" for zero and
// negative timestamps.
func Time(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).Format(TimeLayout)
}

// TimeAgo renders a unix timestamp as a rough relative duration ("3 days
// ago").
func TimeAgo(ts int64) string {
	if ts <= 0 {
		return "unknown"
	}

	diff := time.Since(time.Unix(ts, 0))
	switch {
	case diff >= 365*24*time.Hour:
		return plural(int(diff.Hours()/(365*24)), "year")
	case diff >= 30*24*time.Hour:
		return plural(int(diff.Hours()/(30*24)), "month")
	case diff >= 24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff >= time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff >= time.Minute:
		return plural(int(diff.Minutes()), "minute")
	default:
		return "just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
