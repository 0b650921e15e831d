package models

import (
	"database/sql"
	"time"
)

type Site struct {
	SiteID    string
	Name      string
	Latitude  float64
	Longitude float64
	Zone      string // "north", "west", "east", "south", "rodrigues"
	SiteType  string // "coastal", "lagoon", "reef", "marine_park"
	IsPrimary bool
	Active    bool
}

// Observation is a weather observation for a site, one row per interval.
type Observation struct {
	ID         int64
	SiteID     string
	ObservedAt time.Time
	Temp       sql.NullFloat64
	Humidity   sql.NullInt64
	Pressure   sql.NullFloat64 // MSL, hPa
	WindSpeed  sql.NullFloat64 // km/h
	WindGust   sql.NullFloat64 // km/h
	WindDir    sql.NullInt64
	Precip     sql.NullFloat64 // mm over the observation interval
	CloudCover sql.NullInt64   // percent
	QCFlags    string
	RawJSON    string
	CreatedAt  time.Time
}

// MarineObservation holds ocean-state values for a site. SST, anomaly and
// DHW come from Coral Reef Watch; waves from the marine forecast API;
// chlorophyll and Kd490 from the ocean-colour datasets.
type MarineObservation struct {
	ID          int64
	SiteID      string
	ObservedAt  time.Time
	Source      string          // "open-meteo-marine", "noaa-crw", "noaa-oc"
	SST         sql.NullFloat64 // °C
	SSTAnomaly  sql.NullFloat64 // °C above climatology
	DHW         sql.NullFloat64 // degree heating weeks
	WaveHeight  sql.NullFloat64 // m
	WavePeriod  sql.NullFloat64 // s
	Chlorophyll sql.NullFloat64 // mg/m³
	Kd490       sql.NullFloat64 // diffuse attenuation, m⁻¹ (turbidity proxy)
	RawJSON     string
	CreatedAt   time.Time
}

type Forecast struct {
	ID            int64
	SiteID        string
	Source        string // "open-meteo"
	FetchedAt     time.Time
	ValidDate     time.Time
	DayOfForecast int
	TempMax       sql.NullFloat64
	TempMin       sql.NullFloat64
	PrecipSum     sql.NullFloat64
	PrecipProb    sql.NullInt64
	WindSpeedMax  sql.NullFloat64
	WindGustMax   sql.NullFloat64
	RawJSON       string
}

// TideReading is an hourly sea-level reading from a tide gauge.
type TideReading struct {
	ID         int64
	GaugeID    string
	RecordedAt time.Time
	SeaLevelMM int64
	AnomalyMM  sql.NullInt64 // departure from the trailing mean
	CreatedAt  time.Time
}

// FishingEffort is an aggregated apparent-fishing-hours figure for a zone.
type FishingEffort struct {
	ID          int64
	Zone        string
	Date        time.Time
	Hours       float64
	VesselCount int64
	CreatedAt   time.Time
}

type DailySummary struct {
	Date        time.Time
	SiteID      string
	TempMax     sql.NullFloat64
	TempMin     sql.NullFloat64
	PrecipTotal sql.NullFloat64
	WindMaxGust sql.NullFloat64
	PressureMin sql.NullFloat64
	SSTMax      sql.NullFloat64
	DHWMax      sql.NullFloat64
}
