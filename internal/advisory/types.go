package advisory

import "time"

// Warning classes for sorting advisories, most urgent first.
const (
	SeverityClassFour = iota
	SeverityClassThree
	SeverityClassTwo
	SeverityClassOne
	SeverityInformation
	SeverityUnknown
)

// Advisory is a processed tropical-cyclone advisory relevant to Mauritius.
type Advisory struct {
	ID          string
	Name        string // storm name, e.g. "BELAL"
	Category    string // "cyclone", "storm", "depression"
	Status      string // "active", "dissipating"
	BasinID     string // RSMC La Reunion identifier
	Lat         float64
	Lon         float64
	Distance    float64 // km from Port Louis
	WindKPH     float64 // max sustained wind
	GustKPH     float64
	PressureHPA float64 // central pressure
	Severity    int
	Headline    string
	Body        string
	Issued      time.Time
	Updated     time.Time
}

// GeoJSON structures for the advisory feed.
type GeoJSON struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type Properties struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	Basin       string  `json:"basin"`
	WindKPH     float64 `json:"wind_kph"`
	GustKPH     float64 `json:"gust_kph"`
	PressureHPA float64 `json:"pressure_hpa"`
	Headline    string  `json:"headline"`
	Description string  `json:"description"`
	IssuedAt    string  `json:"issued_at"`
	UpdatedAt   string  `json:"updated_at"`
}
