package types

import "time"

// DateLayout is the on-disk and wire format of measurement dates.
const DateLayout = "2006-01-02"

type Station struct {
	ID        int64    `json:"id"`
	Station   string   `json:"station"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

// Measurement is one dated reading. Prcp and Tobs are nil when the source row holds NULL.
type Measurement struct {
	ID      int64    `json:"id"`
	Station string   `json:"station"`
	Date    string   `json:"date"`
	Prcp    *float64 `json:"prcp"`
	Tobs    *float64 `json:"tobs"`
}

type Precipitation struct {
	Date string   `json:"date"`
	Prcp *float64 `json:"prcp"`
}

type TemperatureObservation struct {
	Date string   `json:"date"`
	Tobs *float64 `json:"tobs"`
}

// TemperatureStats is nil-valued in every field when no rows matched.
type TemperatureStats struct {
	TMIN *float64 `json:"TMIN"`
	TAVG *float64 `json:"TAVG"`
	TMAX *float64 `json:"TMAX"`
}

// StationActivity is a station code with its measurement row count.
type StationActivity struct {
	Station string `json:"station"`
	Count   int    `json:"count"`
}

// DateRange bounds a temperature query. End is nil for open-ended queries.
type DateRange struct {
	Start time.Time
	End   *time.Time
}

// Summary describes the loaded dataset.
type Summary struct {
	ReferenceDate string           `json:"reference_date,omitempty"`
	WindowStart   string           `json:"window_start,omitempty"`
	Stations      int              `json:"stations"`
	Measurements  int              `json:"measurements"`
	MostActive    *StationActivity `json:"most_active,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
