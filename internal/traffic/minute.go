package traffic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay is the number of minute-of-day buckets
	MinutesPerDay = 24 * 60

	// WindowRadius is how far on either side of the selected minute a
	// windowed query reaches
	WindowRadius = 60

	// Unfiltered selects every trip regardless of time of day
	Unfiltered TimeFilter = -1
)

// ErrInvalidTimeFilter is returned for filters outside [-1, 1439]
var ErrInvalidTimeFilter = errors.New("time filter must be -1 or a minute of day in [0, 1439]")

// TimeFilter is either Unfiltered or a minute of day in [0, 1439]
type TimeFilter int

// Validate rejects out-of-range filters. Values are never wrapped.
func (f TimeFilter) Validate() error {
	if f < Unfiltered || int(f) >= MinutesPerDay {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeFilter, int(f))
	}
	return nil
}

func (f TimeFilter) IsUnfiltered() bool {
	return f == Unfiltered
}

// String renders the filter as a short clock label
func (f TimeFilter) String() string {
	if f.IsUnfiltered() {
		return "any time"
	}
	return FormatMinute(int(f))
}

// MinuteOfDay returns hour*60 + minute of t in t's own location
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatMinute formats a minute of day as a 12-hour clock label, e.g. "8:05 AM"
func FormatMinute(minute int) string {
	t := time.Date(2000, time.January, 1, 0, minute, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}

// ParseTimeFilter accepts "", "any" and "-1" as Unfiltered, a bare minute
// of day such as "480", or a 24-hour clock time such as "08:00".
func ParseTimeFilter(s string) (TimeFilter, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "any", "-1":
		return Unfiltered, nil
	}

	if strings.Contains(s, ":") {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a HH:MM time", ErrInvalidTimeFilter, s)
		}
		return TimeFilter(MinuteOfDay(t)), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidTimeFilter, s)
	}
	f := TimeFilter(n)
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return f, nil
}
