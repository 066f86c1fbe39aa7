// Package dataset loads the station and measurement CSV exports into a data
// file created by internal/migrate.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"surfsup-server/internal/modules/climate/types"
)

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

const (
	insertStationSQL     = `INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`
	insertMeasurementSQL = `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`
)

type Result struct {
	Stations     int
	Measurements int
}

// Import loads both files in one transaction; any bad row rolls back everything.
func Import(ctx context.Context, db *sql.DB, stations, measurements io.Reader) (res Result, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if res.Stations, err = importStations(ctx, tx, stations); err != nil {
		return Result{}, fmt.Errorf("stations: %w", err)
	}
	if res.Measurements, err = importMeasurements(ctx, tx, measurements); err != nil {
		return Result{}, fmt.Errorf("measurements: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

func importStations(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertStationSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	return eachRecord(r, stationColumns, func(line int, rec []string) error {
		code := strings.TrimSpace(rec[0])
		if code == "" {
			return fmt.Errorf("line %d: empty station code", line)
		}
		var coords [3]*float64
		for i, col := range stationColumns[2:] {
			v, err := parseNullableFloat(rec[i+2])
			if err != nil {
				return fmt.Errorf("line %d: %s: %w", line, col, err)
			}
			coords[i] = v
		}
		if _, err := stmt.ExecContext(ctx, code, strings.TrimSpace(rec[1]), coords[0], coords[1], coords[2]); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		return nil
	})
}

func importMeasurements(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	return eachRecord(r, measurementColumns, func(line int, rec []string) error {
		code := strings.TrimSpace(rec[0])
		if code == "" {
			return fmt.Errorf("line %d: empty station code", line)
		}
		date := strings.TrimSpace(rec[1])
		if _, err := time.Parse(types.DateLayout, date); err != nil {
			return fmt.Errorf("line %d: date %q is not YYYY-MM-DD", line, date)
		}
		prcp, err := parseNullableFloat(rec[2])
		if err != nil {
			return fmt.Errorf("line %d: prcp: %w", line, err)
		}
		tobs, err := parseNullableFloat(rec[3])
		if err != nil {
			return fmt.Errorf("line %d: tobs: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, code, date, prcp, tobs); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		return nil
	})
}

// eachRecord checks the header against columns and calls fn with each data
// row and its line number in the file.
func eachRecord(r io.Reader, columns []string, fn func(line int, rec []string) error) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("empty file")
	}
	if err != nil {
		return 0, err
	}
	for i, col := range columns {
		if got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))); got != col {
			return 0, fmt.Errorf("header column %d is %q, want %q", i+1, header[i], col)
		}
	}

	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		line, _ := cr.FieldPos(0)
		if err := fn(line, rec); err != nil {
			return n, err
		}
		n++
	}
}

// parseNullableFloat maps an empty cell to NULL.
func parseNullableFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return &v, nil
}
