package risk

import "time"

// The Mauritius cyclone warning system is built around gusts of 120 km/h:
// Class I is issued 36-48 h before they are likely, Class II 12 h before,
// Class III 6 h before, and Class IV while they are occurring. The heuristic
// here grades local observations and advisory proximity onto that ladder.
const (
	gustClassThreshold = 120.0 // km/h, the Class III/IV criterion
	windStormForce     = 89.0  // km/h, 10-minute sustained storm force

	// MSL pressure bands. Normal for the region is ~1013 hPa; a deep
	// drop with a system nearby is the strongest single signal.
	pressureWatch  = 1005.0
	pressureWarn   = 995.0
	pressureDanger = 985.0

	// Advisory distance bands in km from the island.
	advisoryFar  = 800.0
	advisoryNear = 400.0
	advisoryHit  = 200.0
)

type CycloneInput struct {
	PressureHPA float64 // local MSL pressure
	WindKPH     float64 // sustained
	GustKPH     float64
	HasPressure bool
	HasWind     bool

	// Nearest active advisory, if any.
	AdvisoryActive     bool
	AdvisoryDistanceKM float64
	AdvisoryGustKPH    float64
}

type CycloneRisk struct {
	Level              Level     `json:"level"`
	Class              int       `json:"class"` // 0 = no warning, 1-4 per MMS ladder
	Score              float64   `json:"score"` // 0-100
	Probability        float64   `json:"probability"`
	PressureHPA        float64   `json:"pressure_hpa,omitempty"`
	GustKPH            float64   `json:"gust_kph,omitempty"`
	AdvisoryDistanceKM float64   `json:"advisory_distance_km,omitempty"`
	Factors            []string  `json:"factors"`
	Actions            []string  `json:"actions"`
	ModelVersion       string    `json:"model_version"`
	ComputedAt         time.Time `json:"computed_at"`
}

// CycloneRiskFromObservations combines local pressure/wind with advisory
// proximity. Severity is the max of the individual signals, never a dilution
// of the worst one.
func CycloneRiskFromObservations(in CycloneInput) CycloneRisk {
	r := CycloneRisk{
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	severity := 0
	var score float64

	if in.HasPressure {
		r.PressureHPA = in.PressureHPA
		switch {
		case in.PressureHPA <= pressureDanger:
			severity = max(severity, 3)
			score += 35
			r.Factors = append(r.Factors, "pressure below 985 hPa")
		case in.PressureHPA <= pressureWarn:
			severity = max(severity, 2)
			score += 25
			r.Factors = append(r.Factors, "pressure below 995 hPa")
		case in.PressureHPA <= pressureWatch:
			severity = max(severity, 1)
			score += 12
			r.Factors = append(r.Factors, "pressure falling below 1005 hPa")
		}
	}

	if in.HasWind {
		r.GustKPH = in.GustKPH
		switch {
		case in.GustKPH >= gustClassThreshold:
			severity = max(severity, 3)
			score += 35
			r.Factors = append(r.Factors, "gusts at or above 120 km/h")
		case in.WindKPH >= windStormForce:
			severity = max(severity, 2)
			score += 22
			r.Factors = append(r.Factors, "storm-force sustained wind")
		case in.GustKPH >= windStormForce:
			severity = max(severity, 1)
			score += 10
			r.Factors = append(r.Factors, "storm-force gusts")
		}
	}

	if in.AdvisoryActive {
		r.AdvisoryDistanceKM = in.AdvisoryDistanceKM
		intense := in.AdvisoryGustKPH >= gustClassThreshold
		switch {
		case in.AdvisoryDistanceKM <= advisoryHit && intense:
			severity = max(severity, 3)
			score += 30
			r.Factors = append(r.Factors, "intense system within 200 km")
		case in.AdvisoryDistanceKM <= advisoryNear:
			severity = max(severity, 2)
			score += 20
			r.Factors = append(r.Factors, "active system within 400 km")
		case in.AdvisoryDistanceKM <= advisoryFar:
			severity = max(severity, 1)
			score += 10
			r.Factors = append(r.Factors, "active system within 800 km")
		}
	}

	r.Level = levelFromSeverity(severity)
	r.Class = cycloneClass(r.Level, in)
	r.Score = clamp(score, 0, 100)
	r.Probability = clamp(r.Score/100, 0, 1)
	if len(r.Factors) == 0 {
		r.Factors = []string{"no cyclone signal in current observations"}
	}
	r.Actions = cycloneActions(r.Class)
	return r
}

// cycloneClass maps the assessed level onto the MMS warning classes.
// Class IV requires gusts of 120 km/h actually occurring.
func cycloneClass(level Level, in CycloneInput) int {
	if in.HasWind && in.GustKPH >= gustClassThreshold {
		return 4
	}
	switch level {
	case LevelSevere:
		return 3
	case LevelHigh:
		return 2
	case LevelModerate:
		return 1
	default:
		return 0
	}
}

func cycloneActions(class int) []string {
	switch class {
	case 4:
		return []string{
			"Gusts of 120 km/h occurring: stay indoors, away from windows",
			"Do not go outside during the calm of the eye",
		}
	case 3:
		return []string{
			"Complete all precautions: gusts of 120 km/h expected within 6 hours",
			"Remain at home or reach shelter now",
		}
	case 2:
		return []string{
			"Secure premises and stock essentials: dangerous weather within 12 hours",
			"Fishermen and small craft should not put to sea",
		}
	case 1:
		return []string{
			"A cyclone may threaten within 36-48 hours: review your cyclone plan",
		}
	default:
		return []string{"No cyclone action required"}
	}
}
