package loader

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/joeshaw/bikeshare-traffic/internal/models"
)

type tripRow struct {
	RideID         sql.NullString `db:"ride_id"`
	StartedAt      sql.NullString `db:"started_at"`
	EndedAt        sql.NullString `db:"ended_at"`
	StartStationID sql.NullString `db:"start_station_id"`
	EndStationID   sql.NullString `db:"end_station_id"`
}

type stationRow struct {
	LegacyID  sql.NullString  `db:"legacy_id"`
	ShortName sql.NullString  `db:"short_name"`
	StationID sql.NullString  `db:"station_id"`
	Name      sql.NullString  `db:"name"`
	Latitude  sql.NullFloat64 `db:"lat"`
	Longitude sql.NullFloat64 `db:"lon"`
	Capacity  sql.NullInt64   `db:"capacity"`
}

// Timestamps are read as text so DATETIME columns are not turned into UTC
// times by the driver; parseTimestamp applies the configured location.
const (
	tripsQuery = `SELECT ride_id,
		CAST(started_at AS TEXT) AS started_at,
		CAST(ended_at AS TEXT) AS ended_at,
		start_station_id, end_station_id
		FROM trips`
	stationsQuery = `SELECT legacy_id, short_name, station_id, name, lat, lon, capacity
		FROM stations`
)

// loadSQLite reads the trips and stations tables of a SQLite database
func (l *Loader) loadSQLite(ctx context.Context) (*Dataset, error) {
	db, err := sqlx.Open("sqlite3", "file:"+l.opts.SQLitePath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ds := &Dataset{}
	if ds.Trips, ds.Stats, err = l.queryTrips(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	if ds.Stations, err = l.queryStations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	return ds, nil
}

func (l *Loader) queryTrips(ctx context.Context, db *sqlx.DB) ([]models.Trip, LoadStats, error) {
	var stats LoadStats
	rows, err := db.QueryxContext(ctx, tripsQuery)
	if err != nil {
		return nil, stats, err
	}
	defer rows.Close()

	var trips []models.Trip
	for row := 1; rows.Next(); row++ {
		var tr tripRow
		if err := rows.StructScan(&tr); err != nil {
			return nil, stats, err
		}

		startedAt, err := parseTimestamp(tr.StartedAt.String, l.opts.Location)
		var endedAt time.Time
		if err == nil {
			endedAt, err = parseTimestamp(tr.EndedAt.String, l.opts.Location)
		}
		if err != nil {
			stats.TripsSkipped++
			logSkipped(stats.TripsSkipped, fmt.Sprintf("row %d", row), err)
			continue
		}

		trips = append(trips, models.Trip{
			ID:           tr.RideID.String,
			StartStation: models.NewStationKey(tr.StartStationID.String),
			EndStation:   models.NewStationKey(tr.EndStationID.String),
			StartedAt:    startedAt,
			EndedAt:      endedAt,
		})
		stats.TripsRead++
	}
	return trips, stats, rows.Err()
}

func (l *Loader) queryStations(ctx context.Context, db *sqlx.DB) ([]models.Station, error) {
	var rows []stationRow
	if err := db.SelectContext(ctx, &rows, stationsQuery); err != nil {
		return nil, err
	}

	stations := make([]models.Station, 0, len(rows))
	for _, row := range rows {
		station := models.Station{
			LegacyID:  row.LegacyID.String,
			ShortName: row.ShortName.String,
			StationID: row.StationID.String,
			Name:      row.Name.String,
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
			Capacity:  int(row.Capacity.Int64),
		}
		key, err := stationKey(station, l.opts.StationKey)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("station %q has no %s", station.Name, l.opts.StationKey)
		}
		station.Key = key
		stations = append(stations, station)
	}
	return stations, nil
}
