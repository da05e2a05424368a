package traffic

import (
	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// Buckets holds one trip list per minute of day, index 0 being midnight
type Buckets [MinutesPerDay][]*models.Trip

// Len returns the number of trips across all buckets
func (b *Buckets) Len() int {
	n := 0
	for i := range b {
		n += len(b[i])
	}
	return n
}

// Index partitions trips by the minute of day they started and ended.
// It is built once and never modified, so it can be shared between
// goroutines without locking.
type Index struct {
	departures Buckets // keyed by StartMinute
	arrivals   Buckets // keyed by EndMinute
	size       int
	skipped    int
}

// BuildIndex buckets every trip once. The index keeps pointers into
// trips and records the derived StartMinute/EndMinute on each of them,
// so the slice must not be modified afterwards. Trips missing either
// timestamp are left out of both sides.
func BuildIndex(trips []models.Trip) *Index {
	idx := &Index{}
	for i := range trips {
		trip := &trips[i]
		if trip.StartedAt.IsZero() || trip.EndedAt.IsZero() {
			idx.skipped++
			continue
		}

		trip.StartMinute = MinuteOfDay(trip.StartedAt)
		trip.EndMinute = MinuteOfDay(trip.EndedAt)

		idx.departures[trip.StartMinute] = append(idx.departures[trip.StartMinute], trip)
		idx.arrivals[trip.EndMinute] = append(idx.arrivals[trip.EndMinute], trip)
		idx.size++
	}
	return idx
}

// Len returns the number of indexed trips
func (idx *Index) Len() int { return idx.size }

// Skipped returns the number of trips that could not be placed
func (idx *Index) Skipped() int { return idx.skipped }

// Departures returns the departure buckets. Callers must treat them as read-only.
func (idx *Index) Departures() *Buckets { return &idx.departures }

// Arrivals returns the arrival buckets. Callers must treat them as read-only.
func (idx *Index) Arrivals() *Buckets { return &idx.arrivals }
