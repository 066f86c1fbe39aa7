package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-reference-date.sql
var getReferenceDateSQL string

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-station-codes.sql
var getStationCodesSQL string

//go:embed sql/get-station-activity.sql
var getStationActivitySQL string

//go:embed sql/get-temperature-observations.sql
var getTemperatureObservationsSQL string

//go:embed sql/get-temperature-stats-from.sql
var getTemperatureStatsFromSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

//go:embed sql/count-stations.sql
var countStationsSQL string

//go:embed sql/count-measurements.sql
var countMeasurementsSQL string

// ClimateRepository reads the station/measurement dataset. Dates are
// "YYYY-MM-DD" strings and compare lexically the same way they compare
// chronologically.
type ClimateRepository interface {
	// GetReferenceDate returns the latest measurement date; ok is false when there are no measurements.
	GetReferenceDate(ctx context.Context) (date string, ok bool, err error)
	GetPrecipitation(ctx context.Context, from string) ([]types.Precipitation, error)
	GetStationCodes(ctx context.Context) ([]string, error)
	// GetStationActivity returns stations by measurement count, busiest first, ties by station code.
	GetStationActivity(ctx context.Context, limit int) ([]types.StationActivity, error)
	GetTemperatureObservations(ctx context.Context, station string, from string) ([]types.TemperatureObservation, error)
	// GetTemperatureStats aggregates tobs over date >= start and, when end is non-nil, date <= end.
	GetTemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error)
	CountStations(ctx context.Context) (int, error)
	CountMeasurements(ctx context.Context) (int, error)
	VerifySchema(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

// withConn checks a connection out of the pool for the duration of fn and
// always returns it, whatever fn does.
func (r *repositoryImpl) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("release connection", "error", err)
		}
	}()
	return fn(conn)
}

func (r *repositoryImpl) GetReferenceDate(ctx context.Context) (string, bool, error) {
	var date sql.NullString
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, getReferenceDateSQL).Scan(&date)
	})
	if err != nil {
		return "", false, fmt.Errorf("reference date: %w", err)
	}
	return date.String, date.Valid, nil
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context, from string) ([]types.Precipitation, error) {
	out := []types.Precipitation{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getPrecipitationSQL, from)
		if err != nil {
			return err
		}
		defer closeRows(rows, "precipitation")
		for rows.Next() {
			var p types.Precipitation
			var prcp sql.NullFloat64
			if err := rows.Scan(&p.Date, &prcp); err != nil {
				return err
			}
			p.Prcp = nullableFloat(prcp)
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("precipitation since %s: %w", from, err)
	}
	return out, nil
}

func (r *repositoryImpl) GetStationCodes(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getStationCodesSQL)
		if err != nil {
			return err
		}
		defer closeRows(rows, "station codes")
		for rows.Next() {
			var code string
			if err := rows.Scan(&code); err != nil {
				return err
			}
			out = append(out, code)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("station codes: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetStationActivity(ctx context.Context, limit int) ([]types.StationActivity, error) {
	out := []types.StationActivity{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getStationActivitySQL, limit)
		if err != nil {
			return err
		}
		defer closeRows(rows, "station activity")
		for rows.Next() {
			var a types.StationActivity
			if err := rows.Scan(&a.Station, &a.Count); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("station activity: %w", err)
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatureObservations(ctx context.Context, station string, from string) ([]types.TemperatureObservation, error) {
	out := []types.TemperatureObservation{}
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, getTemperatureObservationsSQL, station, from)
		if err != nil {
			return err
		}
		defer closeRows(rows, "temperature observations")
		for rows.Next() {
			var o types.TemperatureObservation
			var tobs sql.NullFloat64
			if err := rows.Scan(&o.Date, &tobs); err != nil {
				return err
			}
			o.Tobs = nullableFloat(tobs)
			out = append(out, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("temperature observations for %s since %s: %w", station, from, err)
	}
	return out, nil
}

func (r *repositoryImpl) GetTemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error) {
	query, args := getTemperatureStatsFromSQL, []any{start}
	if end != nil {
		query, args = getTemperatureStatsRangeSQL, []any{start, *end}
	}

	var tmin, tavg, tmax sql.NullFloat64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, query, args...).Scan(&tmin, &tavg, &tmax)
	})
	if err != nil {
		return types.TemperatureStats{}, fmt.Errorf("temperature stats: %w", err)
	}
	return types.TemperatureStats{
		TMIN: nullableFloat(tmin),
		TAVG: nullableFloat(tavg),
		TMAX: nullableFloat(tmax),
	}, nil
}

func (r *repositoryImpl) CountStations(ctx context.Context) (int, error) {
	return r.count(ctx, countStationsSQL)
}

func (r *repositoryImpl) CountMeasurements(ctx context.Context) (int, error) {
	return r.count(ctx, countMeasurementsSQL)
}

func (r *repositoryImpl) count(ctx context.Context, query string) (int, error) {
	var n int
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, query).Scan(&n)
	})
	return n, err
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close "+what+" rows", "error", err)
	}
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
