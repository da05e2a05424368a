package traffic

import (
	"math/rand"
	"time"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

var day = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// tripAt builds a trip starting and ending at the given minutes of day
func tripAt(id, from, to string, startMinute, endMinute int) models.Trip {
	return models.Trip{
		ID:           id,
		StartStation: models.StationKey(from),
		EndStation:   models.StationKey(to),
		StartedAt:    day.Add(time.Duration(startMinute) * time.Minute),
		EndedAt:      day.Add(time.Duration(endMinute) * time.Minute),
	}
}

func stationsFor(keys ...string) []models.Station {
	out := make([]models.Station, len(keys))
	for i, k := range keys {
		out[i] = models.Station{Key: models.StationKey(k), Name: "Station " + k}
	}
	return out
}

// randomTrips generates n trips between the given stations spread over the day
func randomTrips(seed int64, n int, keys []string) []models.Trip {
	r := rand.New(rand.NewSource(seed))
	trips := make([]models.Trip, n)
	for i := range trips {
		start := r.Intn(MinutesPerDay)
		end := (start + r.Intn(90)) % MinutesPerDay
		trips[i] = tripAt("", keys[r.Intn(len(keys))], keys[r.Intn(len(keys))], start, end)
	}
	return trips
}

// naiveTraffic is an O(n) reference that scans every trip
func naiveTraffic(stations []models.Station, trips []models.Trip, f TimeFilter) []models.StationTraffic {
	var w Window
	if !f.IsUnfiltered() {
		w = WindowFor(int(f))
	}
	dep := map[models.StationKey]int{}
	arr := map[models.StationKey]int{}
	for _, t := range trips {
		if f.IsUnfiltered() || w.Contains(MinuteOfDay(t.StartedAt)) {
			dep[t.StartStation]++
		}
		if f.IsUnfiltered() || w.Contains(MinuteOfDay(t.EndedAt)) {
			arr[t.EndStation]++
		}
	}
	out := make([]models.StationTraffic, len(stations))
	for i, s := range stations {
		out[i] = models.StationTraffic{
			Station:      s,
			Departures:   dep[s.Key],
			Arrivals:     arr[s.Key],
			TotalTraffic: dep[s.Key] + arr[s.Key],
		}
	}
	return out
}
