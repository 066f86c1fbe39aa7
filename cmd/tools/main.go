// Command tools builds the dataset file: it applies the schema migrations and
// imports the station and measurement CSV exports.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"surfsup-server/internal/config"
	"surfsup-server/internal/dataset"
	"surfsup-server/internal/db"
	"surfsup-server/internal/logging"
	"surfsup-server/internal/migrate"
)

const appName = "surfsup-tools"

var version = "dev"

const usage = `usage: %s <command>
  migrate                                  apply pending schema migrations
  import <stations.csv> <measurements.csv> migrate, then load both CSV files
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		slog.Error("tools failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string) error {
	switch args[0] {
	case "migrate":
		if len(args) != 1 {
			return fmt.Errorf("migrate takes no arguments")
		}
	case "import":
		if len(args) != 3 {
			return fmt.Errorf("import needs <stations.csv> <measurements.csv>")
		}
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	conn, err := db.Open(cfg, db.ReadWrite, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := migrate.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("migrations applied", "path", cfg.Path)

	if args[0] == "migrate" {
		return nil
	}
	return importFiles(ctx, conn, args[1], args[2])
}

func importFiles(ctx context.Context, conn *sql.DB, stationsPath, measurementsPath string) error {
	stations, err := os.Open(stationsPath)
	if err != nil {
		return err
	}
	defer stations.Close()

	measurements, err := os.Open(measurementsPath)
	if err != nil {
		return err
	}
	defer measurements.Close()

	res, err := dataset.Import(ctx, conn, stations, measurements)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	slog.Info("dataset imported",
		"stations", res.Stations,
		"measurements", res.Measurements,
		"stationsFile", stationsPath,
		"measurementsFile", measurementsPath,
	)
	return nil
}
