package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// gbfsDocument is a GBFS station_information feed
type gbfsDocument struct {
	Data struct {
		Stations []map[string]any `json:"stations"`
	} `json:"data"`
}

// ReadStations parses a GBFS station_information document, or a bare JSON
// array of station objects, keying every station by keyField.
func ReadStations(r io.Reader, keyField string) ([]models.Station, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if len(raw) > 0 && firstNonSpace(raw) == '[' {
		if err := unmarshalNumbers(raw, &records); err != nil {
			return nil, err
		}
	} else {
		var doc gbfsDocument
		if err := unmarshalNumbers(raw, &doc); err != nil {
			return nil, err
		}
		records = doc.Data.Stations
	}

	stations := make([]models.Station, 0, len(records))
	for i, record := range records {
		station := models.Station{
			LegacyID:  toString(record[KeyLegacyID]),
			ShortName: toString(record[KeyShortName]),
			StationID: toString(record[KeyStationID]),
			Name:      toString(record["name"]),
			Latitude:  toFloat(record["lat"]),
			Longitude: toFloat(record["lon"]),
			Capacity:  int(toFloat(record["capacity"])),
		}
		key, err := stationKey(station, keyField)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("station %d (%q) has no %s", i, station.Name, keyField)
		}
		station.Key = key
		stations = append(stations, station)
	}
	return stations, nil
}

// stationKey picks the configured identifier field of a station
func stationKey(station models.Station, keyField string) (models.StationKey, error) {
	switch keyField {
	case KeyLegacyID:
		return models.NewStationKey(station.LegacyID), nil
	case KeyShortName:
		return models.NewStationKey(station.ShortName), nil
	case KeyStationID:
		return models.NewStationKey(station.StationID), nil
	}
	return "", fmt.Errorf("unknown station key field %q", keyField)
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}

// Utility converters for flexible JSON values
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	}
	return 0
}
