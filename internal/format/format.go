// Package format renders and parses the clock values that appear in prompts.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp indicates a timestamp that is not SS, MM:SS or HH:MM:SS.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Timestamp formats a position inside a video as HH:MM:SS or MM:SS.
func Timestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Length formats a total video length the way platforms display it:
// M:SS below one hour, H:MM:SS above. Zero renders as "unbekannt".
func Length(d time.Duration) string {
	if d <= 0 {
		return "unbekannt"
	}
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DurationHuman formats a duration for human display.
// Examples: "2h", "30m", "1h30m", "45s"
func DurationHuman(d time.Duration) string {
	if d >= time.Hour {
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return fmt.Sprintf("%ds", d/time.Second)
}

// Chars formats a character budget. Zero means no limit.
func Chars(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d chars", n)
}

// ParseTimestamp parses "90", "01:30" or "1:02:03" into a duration.
// Minutes and seconds after the first field must be below 60.
func ParseTimestamp(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value: %w", ErrInvalidTimestamp)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidTimestamp)
	}

	var total int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%q: %w", s, ErrInvalidTimestamp)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%q: field %q out of range: %w", s, p, ErrInvalidTimestamp)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
