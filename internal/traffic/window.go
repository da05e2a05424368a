package traffic

import (
	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// Window is the half-open circular span [Min, Max) of minute buckets
// around a selected minute. When Wraps is set the span crosses midnight
// and covers [Min, 1440) followed by [0, Max).
type Window struct {
	Min   int  `json:"min_minute"`
	Max   int  `json:"max_minute"`
	Wraps bool `json:"wraps"`
}

// WindowFor returns the window centered on minute, which must be in [0, 1439]
func WindowFor(minute int) Window {
	lo := (minute - WindowRadius + MinutesPerDay) % MinutesPerDay
	hi := (minute + WindowRadius) % MinutesPerDay
	return Window{Min: lo, Max: hi, Wraps: lo > hi}
}

// Contains reports whether a minute of day falls inside the window
func (w Window) Contains(minute int) bool {
	if w.Wraps {
		return minute >= w.Min || minute < w.Max
	}
	return minute >= w.Min && minute < w.Max
}

// Size returns the number of buckets the window spans
func (w Window) Size() int {
	if w.Wraps {
		return MinutesPerDay - w.Min + w.Max
	}
	return w.Max - w.Min
}

// Select flattens the buckets selected by f. Unfiltered returns every
// bucket in minute order; otherwise only the buckets of the window around
// f are visited, before-midnight segment first when it wraps. Within a
// bucket trips keep their insertion order.
func Select(b *Buckets, f TimeFilter) ([]*models.Trip, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.IsUnfiltered() {
		return flatten(b, 0, MinutesPerDay, nil), nil
	}

	w := WindowFor(int(f))
	if w.Wraps {
		out := flatten(b, w.Min, MinutesPerDay, nil)
		return flatten(b, 0, w.Max, out), nil
	}
	// Min == Max would mean a full-day window and yields nothing here
	return flatten(b, w.Min, w.Max, nil), nil
}

// flatten appends buckets [lo, hi) to out
func flatten(b *Buckets, lo, hi int, out []*models.Trip) []*models.Trip {
	if lo >= hi {
		return out
	}
	n := 0
	for i := lo; i < hi; i++ {
		n += len(b[i])
	}
	if out == nil {
		out = make([]*models.Trip, 0, n)
	}
	for i := lo; i < hi; i++ {
		out = append(out, b[i]...)
	}
	return out
}
