package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stats are the figures derived from one progress observation.
type Stats struct {
	Percent    float64
	Speed      float64 // bytes per second
	ETASeconds float64
	ETAText    string
}

// Update derives percentage, throughput and remaining time from the
// cumulative bytes processed. Callers invoke it once per read chunk.
func Update(processed, total int64, elapsed time.Duration) Stats {
	var stats Stats

	if total > 0 {
		stats.Percent = float64(processed) / float64(total) * 100
		if stats.Percent > 100 {
			stats.Percent = 100
		}
		if stats.Percent < 0 {
			stats.Percent = 0
		}
	}

	secs := elapsed.Seconds()
	if secs > 0 {
		stats.Speed = float64(processed) / secs
	}

	remaining := total - processed
	if remaining < 0 {
		remaining = 0
	}

	switch {
	case remaining == 0:
		stats.ETAText = FormatETA(0)
	case stats.Speed > 0:
		stats.ETASeconds = float64(remaining) / stats.Speed
		stats.ETAText = FormatETA(stats.ETASeconds)
	default:
		// no throughput yet: unknown
		stats.ETAText = "-"
	}

	return stats
}

// FormatETA renders seconds as "42s", "3m 7s" or "2h 15m". Components are
// truncated, not rounded.
func FormatETA(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int64(seconds)

	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count in 1024-based units with at most two
// decimals, e.g. "512 B", "1.5 KB", "3.27 GB". TB is the largest unit.
func FormatSize(bytes int64) string {
	value := float64(bytes)
	order := 0
	for value >= 1024 && order < len(sizeUnits)-1 {
		value /= 1024
		order++
	}

	text := strconv.FormatFloat(value, 'f', 2, 64)
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")

	return text + " " + sizeUnits[order]
}

// FormatSpeed renders a throughput in bytes per second.
func FormatSpeed(bytesPerSec float64) string {
	return FormatSize(int64(bytesPerSec)) + "/s"
}
