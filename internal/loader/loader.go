package loader

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

// ErrNoStationOverlap is returned when no trip references any known station
var ErrNoStationOverlap = errors.New("no trip station id matches any station key")

// Station fields that can serve as the canonical key
const (
	KeyLegacyID  = "legacy_id"
	KeyShortName = "short_name"
	KeyStationID = "station_id"
)

// Options describes where trip and station data come from
type Options struct {
	TripsPath    string // CSV, or a ZIP holding one CSV
	StationsPath string // GBFS station_information JSON
	SQLitePath   string // used instead of the two files when set

	StationKey string         // one of KeyLegacyID, KeyShortName, KeyStationID
	Location   *time.Location // zone for timestamps without an offset
	StrictKeys bool           // fail when trips and stations share no key
}

// LoadStats summarizes a load
type LoadStats struct {
	TripsRead       int `json:"trips_read"`
	TripsSkipped    int `json:"trips_skipped"`
	Stations        int `json:"stations"`
	MatchedStations int `json:"matched_stations"`
	UnmatchedKeys   int `json:"unmatched_keys"` // distinct trip station ids naming no station
}

// Dataset is the parsed input of the traffic engine
type Dataset struct {
	Trips    []models.Trip
	Stations []models.Station
	Stats    LoadStats
}

// Loader handles loading trip and station data
type Loader struct {
	opts Options
}

// NewLoader creates a new loader
func NewLoader(opts Options) *Loader {
	if opts.StationKey == "" {
		opts.StationKey = KeyLegacyID
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Loader{opts: opts}
}

// Load reads trips and stations and validates that their keys line up
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	if l.opts.SQLitePath != "" {
		log.Println("Starting trip data load from", l.opts.SQLitePath)
		ds, err = l.loadSQLite(ctx)
	} else {
		log.Println("Starting trip data load from", l.opts.TripsPath, "and", l.opts.StationsPath)
		ds, err = l.loadFiles()
	}
	if err != nil {
		return nil, err
	}

	ds.Stats.Stations = len(ds.Stations)
	ds.Stats.MatchedStations = MatchedStations(ds.Trips, ds.Stations)
	ds.Stats.UnmatchedKeys = UnmatchedKeys(ds.Trips, ds.Stations)
	if ds.Stats.MatchedStations == 0 && len(ds.Trips) > 0 {
		if l.opts.StrictKeys {
			return nil, fmt.Errorf("%w (station key %q)", ErrNoStationOverlap, l.opts.StationKey)
		}
		log.Printf("Warning: no trip references a station by %q; all traffic will be zero", l.opts.StationKey)
	}

	log.Printf("Loaded %d trips (%d skipped) and %d stations, %d stations have trips, %d trip station ids unknown",
		ds.Stats.TripsRead, ds.Stats.TripsSkipped, ds.Stats.Stations, ds.Stats.MatchedStations, ds.Stats.UnmatchedKeys)
	return ds, nil
}

func (l *Loader) loadFiles() (*Dataset, error) {
	ds := &Dataset{}

	trips, err := l.openTrips()
	if err != nil {
		return nil, fmt.Errorf("failed to open trips data: %w", err)
	}
	defer trips.Close()

	ds.Trips, ds.Stats, err = ReadTrips(trips, l.opts.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to process trips data: %w", err)
	}

	f, err := os.Open(l.opts.StationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stations data: %w", err)
	}
	defer f.Close()

	ds.Stations, err = ReadStations(f, l.opts.StationKey)
	if err != nil {
		return nil, fmt.Errorf("failed to process stations data: %w", err)
	}
	return ds, nil
}

// openTrips opens the trips CSV, looking inside ZIP archives for the first CSV
func (l *Loader) openTrips() (io.ReadCloser, error) {
	if !strings.EqualFold(filepath.Ext(l.opts.TripsPath), ".zip") {
		return os.Open(l.opts.TripsPath)
	}

	zr, err := zip.OpenReader(l.opts.TripsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP file: %w", err)
	}
	for _, file := range zr.File {
		if strings.EqualFold(filepath.Ext(file.Name), ".csv") && !strings.HasPrefix(filepath.Base(file.Name), ".") {
			rc, err := file.Open()
			if err != nil {
				zr.Close()
				return nil, err
			}
			return &zipEntry{ReadCloser: rc, archive: zr}, nil
		}
	}
	zr.Close()
	return nil, fmt.Errorf("no CSV file in %s", l.opts.TripsPath)
}

type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadTrips parses a trips CSV. Rows with a missing or unparsable
// timestamp are skipped and counted rather than failing the load.
func ReadTrips(r io.Reader, loc *time.Location) ([]models.Trip, LoadStats, error) {
	var stats LoadStats
	var trips []models.Trip

	err := readCSV(r, func(record map[string]string, line int) {
		startedAt, err := parseTimestamp(getString(record, "started_at"), loc)
		if err == nil {
			var endedAt time.Time
			endedAt, err = parseTimestamp(getString(record, "ended_at"), loc)
			if err == nil {
				trips = append(trips, models.Trip{
					ID:           getString(record, "ride_id"),
					StartStation: models.NewStationKey(getString(record, "start_station_id")),
					EndStation:   models.NewStationKey(getString(record, "end_station_id")),
					StartedAt:    startedAt,
					EndedAt:      endedAt,
				})
				stats.TripsRead++
				return
			}
		}
		stats.TripsSkipped++
		logSkipped(stats.TripsSkipped, fmt.Sprintf("line %d", line), err)
	})
	return trips, stats, err
}

// maxSkippedLogs bounds how many skipped trips are logged per load
const maxSkippedLogs = 10

func logSkipped(n int, where string, err error) {
	if n <= maxSkippedLogs {
		log.Printf("Skipping trip on %s: %v", where, err)
	} else if n == maxSkippedLogs+1 {
		log.Printf("Skipping further trips without logging")
	}
}

// readCSV reads a CSV with a header row and hands each record to fn as a
// map of field name -> value
func readCSV(r io.Reader, fn func(record map[string]string, line int)) error {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true

	headers, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	headers = append([]string(nil), headers...)
	for i, header := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
	}

	line := 1
	fields := make(map[string]string, len(headers))
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		for i, header := range headers {
			if i < len(record) {
				fields[header] = record[i]
			} else {
				fields[header] = ""
			}
		}
		fn(fields, line)
	}
	return nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// parseTimestamp parses trip timestamps. Values carrying an offset are
// converted into loc; naive values are read as wall clock time in loc.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// MatchedStations counts stations referenced by at least one trip
func MatchedStations(trips []models.Trip, stations []models.Station) int {
	used := make(map[models.StationKey]struct{})
	for i := range trips {
		used[trips[i].StartStation] = struct{}{}
		used[trips[i].EndStation] = struct{}{}
	}
	matched := 0
	for _, station := range stations {
		if _, ok := used[station.Key]; ok && station.Key != "" {
			matched++
		}
	}
	return matched
}

// UnmatchedKeys counts the distinct non-empty trip station ids that name
// no station
func UnmatchedKeys(trips []models.Trip, stations []models.Station) int {
	known := make(map[models.StationKey]struct{}, len(stations))
	for _, station := range stations {
		known[station.Key] = struct{}{}
	}
	unknown := make(map[models.StationKey]struct{})
	for i := range trips {
		for _, key := range []models.StationKey{trips[i].StartStation, trips[i].EndStation} {
			if _, ok := known[key]; !ok && key != "" {
				unknown[key] = struct{}{}
			}
		}
	}
	return len(unknown)
}

func getString(record map[string]string, field string) string {
	return strings.TrimSpace(record[field])
}
