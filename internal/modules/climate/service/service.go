package service

import (
	"context"
	"fmt"
	"time"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
)

// LookbackDays is the length of the trailing window ending at the reference date.
const LookbackDays = 365

type Service struct {
	repository repository.ClimateRepository
	now        func() time.Time
}

func NewService(repository repository.ClimateRepository) *Service {
	return &Service{repository: repository, now: time.Now}
}

// TrailingWindow returns [reference date - LookbackDays, reference date], where
// the reference date is the latest measurement date in the dataset. ok is
// false when the dataset holds no measurements.
func (s *Service) TrailingWindow(ctx context.Context) (window types.DateRange, ok bool, err error) {
	ref, ok, err := s.repository.GetReferenceDate(ctx)
	if err != nil || !ok {
		return types.DateRange{}, false, err
	}
	end, err := time.Parse(types.DateLayout, ref)
	if err != nil {
		return types.DateRange{}, false, fmt.Errorf("reference date %q: %w", ref, err)
	}
	return types.DateRange{Start: end.AddDate(0, 0, -LookbackDays), End: &end}, true, nil
}

// Precipitation maps each date in the trailing window to its precipitation.
// Several stations report the same date; the last row read wins.
func (s *Service) Precipitation(ctx context.Context) (map[string]*float64, error) {
	out := map[string]*float64{}
	window, ok, err := s.TrailingWindow(ctx)
	if err != nil || !ok {
		return out, err
	}
	rows, err := s.repository.GetPrecipitation(ctx, window.Start.Format(types.DateLayout))
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.Date] = p.Prcp
	}
	return out, nil
}

func (s *Service) Stations(ctx context.Context) ([]string, error) {
	return s.repository.GetStationCodes(ctx)
}

// MostActiveStation returns the station with the most measurement rows; ties
// go to the lowest station code.
func (s *Service) MostActiveStation(ctx context.Context) (types.StationActivity, bool, error) {
	activity, err := s.repository.GetStationActivity(ctx, 1)
	if err != nil {
		return types.StationActivity{}, false, err
	}
	if len(activity) == 0 {
		return types.StationActivity{}, false, nil
	}
	return activity[0], true, nil
}

// MostActiveTemperatures returns the most active station's temperature
// observations over the trailing window.
func (s *Service) MostActiveTemperatures(ctx context.Context) ([]types.TemperatureObservation, error) {
	empty := []types.TemperatureObservation{}

	station, ok, err := s.MostActiveStation(ctx)
	if err != nil || !ok {
		return empty, err
	}
	window, ok, err := s.TrailingWindow(ctx)
	if err != nil || !ok {
		return empty, err
	}
	return s.repository.GetTemperatureObservations(ctx, station.Station, window.Start.Format(types.DateLayout))
}

// TemperatureStats aggregates tobs over the range. An inverted or empty range
// yields all-nil stats, not an error.
func (s *Service) TemperatureStats(ctx context.Context, r types.DateRange) (types.TemperatureStats, error) {
	var end *string
	if r.End != nil {
		e := r.End.Format(types.DateLayout)
		end = &e
	}
	return s.repository.GetTemperatureStats(ctx, r.Start.Format(types.DateLayout), end)
}

// Summary describes the dataset for startup logging and the status publisher.
func (s *Service) Summary(ctx context.Context) (types.Summary, error) {
	summary := types.Summary{GeneratedAt: s.now().UTC()}

	window, ok, err := s.TrailingWindow(ctx)
	if err != nil {
		return types.Summary{}, err
	}
	if ok {
		summary.ReferenceDate = window.End.Format(types.DateLayout)
		summary.WindowStart = window.Start.Format(types.DateLayout)
	}

	if summary.Stations, err = s.repository.CountStations(ctx); err != nil {
		return types.Summary{}, fmt.Errorf("count stations: %w", err)
	}
	if summary.Measurements, err = s.repository.CountMeasurements(ctx); err != nil {
		return types.Summary{}, fmt.Errorf("count measurements: %w", err)
	}

	station, ok, err := s.MostActiveStation(ctx)
	if err != nil {
		return types.Summary{}, err
	}
	if ok {
		summary.MostActive = &station
	}
	return summary, nil
}
