package traffic

import (
	"sort"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// Counts maps a station key to a number of trips
type Counts map[models.StationKey]int

// Lookup returns the count for key, 0 when absent
func (c Counts) Lookup(key models.StationKey) int {
	return c[key]
}

// CountBy groups trips by the key function and counts each group
func CountBy(trips []*models.Trip, key func(*models.Trip) models.StationKey) Counts {
	counts := make(Counts)
	for _, trip := range trips {
		counts[key(trip)]++
	}
	return counts
}

func startStation(t *models.Trip) models.StationKey { return t.StartStation }

func endStation(t *models.Trip) models.StationKey { return t.EndStation }

// Unmatched describes trips whose station key matched no station
type Unmatched struct {
	Departures int                 `json:"departures"`
	Arrivals   int                 `json:"arrivals"`
	Keys       []models.StationKey `json:"keys,omitempty"`
}

// Any reports whether any trip went unmatched
func (u Unmatched) Any() bool {
	return u.Departures > 0 || u.Arrivals > 0
}

// Aggregate annotates a copy of stations with the departures and
// arrivals counted from the selected trips. Order and length of stations
// are preserved; stations with no trips get zero counts.
func Aggregate(stations []models.Station, departures, arrivals []*models.Trip) ([]models.StationTraffic, Unmatched) {
	depCounts := CountBy(departures, startStation)
	arrCounts := CountBy(arrivals, endStation)

	out := make([]models.StationTraffic, len(stations))
	known := make(map[models.StationKey]struct{}, len(stations))
	for i, station := range stations {
		known[station.Key] = struct{}{}
		dep := depCounts.Lookup(station.Key)
		arr := arrCounts.Lookup(station.Key)
		out[i] = models.StationTraffic{
			Station:      station,
			Departures:   dep,
			Arrivals:     arr,
			TotalTraffic: dep + arr,
		}
	}

	return out, unmatched(known, depCounts, arrCounts)
}

func unmatched(known map[models.StationKey]struct{}, depCounts, arrCounts Counts) Unmatched {
	var u Unmatched
	keys := make(map[models.StationKey]struct{})
	for key, n := range depCounts {
		if _, ok := known[key]; !ok {
			u.Departures += n
			keys[key] = struct{}{}
		}
	}
	for key, n := range arrCounts {
		if _, ok := known[key]; !ok {
			u.Arrivals += n
			keys[key] = struct{}{}
		}
	}
	for key := range keys {
		u.Keys = append(u.Keys, key)
	}
	sort.Slice(u.Keys, func(i, j int) bool { return u.Keys[i] < u.Keys[j] })
	return u
}

// MaxTotal returns the largest TotalTraffic, 0 for an empty list
func MaxTotal(stations []models.StationTraffic) int {
	most := 0
	for _, s := range stations {
		if s.TotalTraffic > most {
			most = s.TotalTraffic
		}
	}
	return most
}
