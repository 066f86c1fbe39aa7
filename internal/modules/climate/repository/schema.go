package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed sql/get-table-columns.sql
var getTableColumnsSQL string

// ErrSchemaMismatch is wrapped by VerifySchema when the data file lacks a
// table or column the queries depend on.
var ErrSchemaMismatch = errors.New("schema mismatch")

type tableSchema struct {
	Name    string
	Columns []string
}

// Schema lists every table and column the embedded queries reference.
var Schema = []tableSchema{
	{Name: "station", Columns: []string{"station", "name", "latitude", "longitude", "elevation"}},
	{Name: "measurement", Columns: []string{"station", "date", "prcp", "tobs"}},
}

// VerifySchema checks the data file against Schema and reports every missing
// table and column in one error.
func (r *repositoryImpl) VerifySchema(ctx context.Context) error {
	var problems []string
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		for _, table := range Schema {
			present, err := tableColumns(ctx, conn, table.Name)
			if err != nil {
				return fmt.Errorf("inspect table %s: %w", table.Name, err)
			}
			if len(present) == 0 {
				problems = append(problems, fmt.Sprintf("table %q missing", table.Name))
				continue
			}
			var missing []string
			for _, col := range table.Columns {
				if !present[col] {
					missing = append(missing, col)
				}
			}
			if len(missing) > 0 {
				problems = append(problems, fmt.Sprintf("table %q missing columns [%s]", table.Name, strings.Join(missing, ", ")))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
	}
	return nil
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, getTableColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "table columns")
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}
