package store

import (
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/joeshaw/bikeshare-traffic/internal/loader"
	"github.com/joeshaw/bikeshare-traffic/internal/models"
	"github.com/joeshaw/bikeshare-traffic/internal/traffic"
)

// Options configures the result cache
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Debug     bool
}

// Store provides thread-safe access to stations and traffic results.
// The trip index is immutable once built; only the current snapshot
// changes after construction.
type Store struct {
	mu sync.RWMutex

	stations     []models.Station
	stationsByID map[models.StationKey]int // key -> position in stations
	engine       *traffic.Engine
	stats        loader.LoadStats
	results      gcache.Cache // traffic.TimeFilter -> *traffic.Result

	current     *traffic.Result
	currentAt   time.Time
	lastUpdated time.Time
}

// NewStore builds the trip index for a loaded dataset
func NewStore(ds *loader.Dataset, opts Options) *Store {
	index := traffic.BuildIndex(ds.Trips)
	engine := traffic.NewEngine(index)
	engine.Debug = opts.Debug

	stationsByID := make(map[models.StationKey]int, len(ds.Stations))
	for i, station := range ds.Stations {
		stationsByID[station.Key] = i
	}

	s := &Store{
		stations:     ds.Stations,
		stationsByID: stationsByID,
		engine:       engine,
		stats:        ds.Stats,
		lastUpdated:  time.Now(),
	}

	if opts.CacheSize > 0 {
		builder := gcache.New(opts.CacheSize).LRU()
		if opts.CacheTTL > 0 {
			builder = builder.Expiration(opts.CacheTTL)
		}
		s.results = builder.
			LoaderFunc(func(key interface{}) (interface{}, error) {
				return s.compute(key.(traffic.TimeFilter))
			}).
			Build()
	}
	return s
}

func (s *Store) compute(f traffic.TimeFilter) (*traffic.Result, error) {
	return s.engine.ComputeStationTraffic(s.stations, f)
}

// Traffic returns station traffic for a time filter, memoized per filter.
// Results are shared between callers and must not be modified.
func (s *Store) Traffic(f traffic.TimeFilter) (*traffic.Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if s.results == nil {
		return s.compute(f)
	}
	v, err := s.results.Get(f)
	if err != nil {
		return nil, err
	}
	return v.(*traffic.Result), nil
}

// StationTraffic returns one station's traffic for a time filter
func (s *Store) StationTraffic(key models.StationKey, f traffic.TimeFilter) (*models.StationTraffic, error) {
	i, ok := s.stationsByID[key]
	if !ok {
		return nil, nil
	}
	res, err := s.Traffic(f)
	if err != nil {
		return nil, err
	}
	st := res.Stations[i]
	return &st, nil
}

// GetStation returns a station by key, or nil
func (s *Store) GetStation(key models.StationKey) *models.Station {
	i, ok := s.stationsByID[key]
	if !ok {
		return nil
	}
	station := s.stations[i]
	return &station
}

// StationCount returns the number of loaded stations
func (s *Store) StationCount() int { return len(s.stations) }

// TripCount returns the number of indexed trips
func (s *Store) TripCount() int { return s.engine.Index().Len() }

// SkippedTrips returns the number of trips left out of the index for
// lacking a timestamp
func (s *Store) SkippedTrips() int { return s.engine.Index().Skipped() }

// Stats returns the load statistics
func (s *Store) Stats() loader.LoadStats { return s.stats }

// SetCurrent atomically replaces the current traffic snapshot
func (s *Store) SetCurrent(res *traffic.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = res
	s.currentAt = time.Now()
}

// Current returns the latest snapshot and when it was set. The snapshot
// is nil until the first SetCurrent.
func (s *Store) Current() (*traffic.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.currentAt
}

// LastUpdated returns when the trip index was built
func (s *Store) LastUpdated() time.Time {
	return s.lastUpdated
}
