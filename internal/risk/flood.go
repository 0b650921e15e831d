package risk

import "time"

// Rainfall thresholds in mm. The 100 mm / 24 h figure matches the Mauritius
// Meteorological Services criterion for a torrential rain warning; the lower
// steps grade the approach to it.
const (
	precipModerate24h = 25.0
	precipHigh24h     = 50.0
	precipSevere24h   = 100.0

	// 72 h total beyond which soil is treated as saturated and any further
	// rain runs off instead of infiltrating.
	soilSaturation72h = 150.0
)

type FloodInput struct {
	Precip24h     float64 // mm
	Precip72h     float64 // mm
	ForecastRain  float64 // mm expected over the next 24 h
	HasForecast   bool
}

type FloodRisk struct {
	Level         Level     `json:"level"`
	Score         float64   `json:"score"` // 0-100
	Probability   float64   `json:"probability"`
	Precip24h     float64   `json:"precip_24h"`
	Precip72h     float64   `json:"precip_72h"`
	SoilSaturated bool      `json:"soil_saturated"`
	Actions       []string  `json:"actions"`
	ModelVersion  string    `json:"model_version"`
	ComputedAt    time.Time `json:"computed_at"`
}

// FloodRiskFromPrecip grades flash-flood risk from accumulated rainfall.
// Saturated soil escalates the level one step: the same rain on wet ground
// floods where it would soak in on dry ground.
func FloodRiskFromPrecip(in FloodInput) FloodRisk {
	r := FloodRisk{
		Precip24h:    in.Precip24h,
		Precip72h:    in.Precip72h,
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	switch {
	case in.Precip24h >= precipSevere24h:
		r.Level = LevelSevere
	case in.Precip24h >= precipHigh24h:
		r.Level = LevelHigh
	case in.Precip24h >= precipModerate24h:
		r.Level = LevelModerate
	default:
		r.Level = LevelLow
	}

	r.SoilSaturated = in.Precip72h >= soilSaturation72h
	if r.SoilSaturated && r.Level != LevelSevere {
		r.Level = r.Level.Escalate()
	}

	// Heavy forecast rain on already-wet ground lifts low to moderate.
	if in.HasForecast && in.ForecastRain >= precipHigh24h && r.Level == LevelLow {
		r.Level = LevelModerate
	}

	score := in.Precip24h / precipSevere24h * 80
	if r.SoilSaturated {
		score += 15
	}
	if in.HasForecast {
		score += clamp(in.ForecastRain/precipSevere24h*10, 0, 10)
	}
	r.Score = clamp(score, 0, 100)
	r.Probability = clamp(r.Score/100, 0, 1)
	r.Actions = floodActions(r.Level)
	return r
}

func floodActions(level Level) []string {
	switch level {
	case LevelSevere:
		return []string{
			"Torrential rain criterion met: avoid all travel in flood-prone areas",
			"Keep clear of rivers, canals and mountain streams",
			"Follow Mauritius Meteorological Services bulletins",
		}
	case LevelHigh:
		return []string{
			"Localised flash flooding likely in low-lying areas",
			"Avoid crossing flooded roads",
		}
	case LevelModerate:
		return []string{
			"Accumulating rainfall: monitor drains and underpasses",
		}
	default:
		return []string{"No flood action required"}
	}
}
