package traffic

import (
	"log"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// Result is the outcome of one traffic query
type Result struct {
	Filter   TimeFilter              `json:"time_filter"`
	Label    string                  `json:"time_label"`
	Window   *Window                 `json:"window,omitempty"`
	Stations []models.StationTraffic `json:"stations"`

	Departures int       `json:"departures"`
	Arrivals   int       `json:"arrivals"`
	MaxTotal   int       `json:"max_total_traffic"`
	Unmatched  Unmatched `json:"unmatched"`
}

// Engine answers station traffic queries against a prebuilt Index.
// Each windowed query visits only the buckets of its window.
type Engine struct {
	index *Index

	// Debug logs trips whose station key matches no station
	Debug bool
}

// NewEngine creates an engine over an index built by BuildIndex
func NewEngine(index *Index) *Engine {
	return &Engine{index: index}
}

// Index returns the engine's index
func (e *Engine) Index() *Index { return e.index }

// ComputeStationTraffic returns stations annotated with the traffic of the
// window selected by f. The input stations are not modified.
func (e *Engine) ComputeStationTraffic(stations []models.Station, f TimeFilter) (*Result, error) {
	departures, err := Select(e.index.Departures(), f)
	if err != nil {
		return nil, err
	}
	arrivals, err := Select(e.index.Arrivals(), f)
	if err != nil {
		return nil, err
	}

	annotated, unmatched := Aggregate(stations, departures, arrivals)

	res := &Result{
		Filter:     f,
		Label:      f.String(),
		Stations:   annotated,
		Departures: len(departures),
		Arrivals:   len(arrivals),
		MaxTotal:   MaxTotal(annotated),
		Unmatched:  unmatched,
	}
	if !f.IsUnfiltered() {
		w := WindowFor(int(f))
		res.Window = &w
	}

	if e.Debug && unmatched.Any() {
		log.Printf("Traffic at %s: %d departures and %d arrivals matched no station (keys: %v)",
			res.Label, unmatched.Departures, unmatched.Arrivals, unmatched.Keys)
	}

	return res, nil
}
