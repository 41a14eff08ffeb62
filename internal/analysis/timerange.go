package analysis

import (
	"fmt"
	"time"

	"github.com/alnah/go-somas/internal/format"
)

// TimeRange narrows an analysis to a window of a fetched video.
// Construct it with NewTimeRange; the zero value is not a valid range.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
	// IncludeContext keeps the whole video as background for the window.
	IncludeContext bool
	// Duration is the total video length, zero when unknown.
	Duration time.Duration
}

// NewTimeRange validates start < end and, when duration is known,
// that both bounds lie within [0, duration].
func NewTimeRange(start, end time.Duration, includeContext bool, duration time.Duration) (TimeRange, error) {
	if start < 0 || end <= start {
		return TimeRange{}, fmt.Errorf("start %s must be before end %s: %w",
			format.Timestamp(start), format.Timestamp(end), ErrInvalidTimeRange)
	}
	if duration > 0 && end > duration {
		return TimeRange{}, fmt.Errorf("end %s exceeds video length %s: %w",
			format.Timestamp(end), format.Length(duration), ErrInvalidTimeRange)
	}
	return TimeRange{Start: start, End: end, IncludeContext: includeContext, Duration: duration}, nil
}

// ParseTimeRange parses timestamps such as "02:00" and "05:30" and validates
// them against duration.
func ParseTimeRange(start, end string, includeContext bool, duration time.Duration) (TimeRange, error) {
	s, err := format.ParseTimestamp(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("start: %w: %w", err, ErrInvalidTimeRange)
	}
	e, err := format.ParseTimestamp(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("end: %w: %w", err, ErrInvalidTimeRange)
	}
	return NewTimeRange(s, e, includeContext, duration)
}

// Window returns the length of the focus window.
func (r TimeRange) Window() time.Duration {
	return r.End - r.Start
}

// StartLabel returns the start as HH:MM:SS or MM:SS.
func (r TimeRange) StartLabel() string { return format.Timestamp(r.Start) }

// EndLabel returns the end as HH:MM:SS or MM:SS.
func (r TimeRange) EndLabel() string { return format.Timestamp(r.End) }

// DurationLabel returns the total length, or "unbekannt".
func (r TimeRange) DurationLabel() string { return format.Length(r.Duration) }
