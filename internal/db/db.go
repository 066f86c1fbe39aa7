package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"surfsup-server/internal/config"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Mode selects how the data file is opened.
type Mode int

const (
	// ReadOnly opens an existing data file with mode=ro. The query service only uses this.
	ReadOnly Mode = iota
	// ReadWrite creates the file if needed; used by dataset tooling.
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "rw"
	}
	return "ro"
}

func Open(cfg config.Config, mode Mode, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, mode)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(cfg.Driver, dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(cfg config.Config, mode Mode) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == "" {
		return "", errors.New("no data file configured (set SQLITE_PATH or DB_DSN)")
	}

	if !strings.HasPrefix(path, "file:") {
		switch mode {
		case ReadOnly:
			// mode=ro never creates the file; report a missing dataset clearly instead of "unable to open".
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("data file %s: %w", path, err)
			}
		case ReadWrite:
			dir := filepath.Dir(path)
			if dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return "", fmt.Errorf("mkdir %s: %w", dir, err)
				}
			}
		}
	}

	params, err := driverParams(cfg.Driver, mode)
	if err != nil {
		return "", err
	}

	// Caller may pass "file:/data/app.db?x=y" as the path; don't double-wrap.
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// driverParams returns the URI parameters for each driver's pragma syntax.
// The journal mode is left alone: the data file ships as a single rollback-journal
// file and must stay openable with mode=ro.
func driverParams(driver string, mode Mode) ([]string, error) {
	var params []string
	switch mode {
	case ReadOnly:
		params = append(params, "mode=ro")
	case ReadWrite:
		params = append(params, "mode=rwc")
	}

	switch driver {
	case "sqlite3":
		params = append(params, "_foreign_keys=on", "_busy_timeout=5000")
	case "sqlite":
		params = append(params, "_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)")
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return params, nil
}
