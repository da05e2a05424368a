package models

import (
	"strconv"
	"strings"
	"time"
)

// StationKey is the canonical identifier shared by trips and stations.
// Trip start/end station ids and the configured station field are both
// normalized into this type before any matching happens.
type StationKey string

// NewStationKey normalizes a raw identifier. Numeric ids are rendered
// without leading zeros or a trailing ".0" so that "0123", "123" and
// "123.0" all compare equal.
func NewStationKey(raw string) StationKey {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := strings.TrimSuffix(raw, ".0")
	if i, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return StationKey(strconv.FormatInt(i, 10))
	}
	return StationKey(raw)
}

// Trip represents a single bike-share ride
type Trip struct {
	ID           string     `json:"id,omitzero"`
	StartStation StationKey `json:"start_station_id"`
	EndStation   StationKey `json:"end_station_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      time.Time  `json:"ended_at"`

	// Minute-of-day bucketing keys, filled in once when the trip is indexed
	StartMinute int `json:"-"`
	EndMinute   int `json:"-"`
}

// Station represents a docking station
type Station struct {
	Key       StationKey `json:"id"`
	LegacyID  string     `json:"legacy_id,omitzero"`
	ShortName string     `json:"short_name,omitzero"`
	StationID string     `json:"station_id,omitzero"`
	Name      string     `json:"name"`
	Latitude  float64    `json:"lat"`
	Longitude float64    `json:"lon"`
	Capacity  int        `json:"capacity,omitzero"`
}

// StationTraffic is a station annotated with the traffic of one query
type StationTraffic struct {
	Station
	Departures   int `json:"departures"`
	Arrivals     int `json:"arrivals"`
	TotalTraffic int `json:"total_traffic"`
}

// DepartureRatio returns the share of departures in the station's traffic.
// A station without traffic reports an even 0.5.
func (s StationTraffic) DepartureRatio() float64 {
	if s.TotalTraffic == 0 {
		return 0.5
	}
	return float64(s.Departures) / float64(s.TotalTraffic)
}
