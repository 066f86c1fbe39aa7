package controller

import (
	"context"
	"net/http"

	"surfsup-server/internal/modules/climate/types"
)

// ClimateService is the query surface the handlers need; *service.Service implements it.
type ClimateService interface {
	Precipitation(ctx context.Context) (map[string]*float64, error)
	Stations(ctx context.Context) ([]string, error)
	MostActiveTemperatures(ctx context.Context) ([]types.TemperatureObservation, error)
	TemperatureStats(ctx context.Context, r types.DateRange) (types.TemperatureStats, error)
}

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service ClimateService
}

func NewClimateController(service ClimateService) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET "+APIPrefix+"/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET "+APIPrefix+"/stations", c.handleStations)
	mux.HandleFunc("GET "+APIPrefix+"/tobs", c.handleTobs)
	mux.HandleFunc("GET "+APIPrefix+"/{start}", c.handleTemperatureFrom)
	mux.HandleFunc("GET "+APIPrefix+"/{start}/{end}", c.handleTemperatureRange)
}
