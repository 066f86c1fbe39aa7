package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"surfsup-server/internal/config"
	"surfsup-server/internal/db"
	"surfsup-server/internal/httpapi"
	"surfsup-server/internal/modules/climate"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttStatusTopic", cfg.MQTTStatusTopic,
	)

	dbConn, err := db.Open(cfg, db.ReadOnly, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := repository.NewRepository(dbConn).VerifySchema(ctx); err != nil {
		return fmt.Errorf("verify dataset: %w", err)
	}
	slog.Info("dataset schema verified")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	metrics := httpapi.NewMetrics()
	mux := httpapi.NewMux(dbConn, metrics)
	climateService := climate.RegisterFeature(mux, dbConn)

	summary, err := climateService.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summarize dataset: %w", err)
	}
	slog.Info("dataset loaded",
		"referenceDate", summary.ReferenceDate,
		"windowStart", summary.WindowStart,
		"stations", summary.Stations,
		"measurements", summary.Measurements,
	)

	var publisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		publisher = mqtt.NewPublisher(cfg, slog.Default())
		publishStatus(ctx, publisher, summary)
	}

	srv := httpapi.NewServer(cfg, mux, metrics)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if publisher != nil {
		slog.Info("mqtt disconnecting")
		publisher.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// publishStatus never fails startup: the API is served with or without a broker.
func publishStatus(ctx context.Context, publisher *mqtt.Publisher, summary types.Summary) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := publisher.Connect(connectCtx)
	cancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without status publishing)", "error", err)
		return
	}
	if err := publisher.PublishStatus(summary); err != nil {
		slog.Warn("mqtt status publish failed", "error", err)
	}
}
