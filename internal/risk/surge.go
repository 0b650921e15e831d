package risk

import "time"

// Storm-surge thresholds. Tide anomaly is the residual after removing the
// trailing mean from gauge readings, so a sustained positive anomaly under
// low pressure and onshore wind is the surge signature.
const (
	surgeAnomalyWatchMM  = 150.0
	surgeAnomalySevereMM = 400.0
	surgeWindKPH         = 60.0
	surgePressureHPA     = 1000.0
)

type SurgeInput struct {
	WindKPH       float64
	PressureHPA   float64
	TideAnomalyMM float64
	WaveHeightM   float64

	HasWind     bool
	HasPressure bool
	HasTide     bool
	HasWaves    bool
}

type SurgeRisk struct {
	Level         Level     `json:"level"`
	Score         float64   `json:"score"`
	TideAnomalyMM float64   `json:"tide_anomaly_mm,omitempty"`
	WaveHeightM   float64   `json:"wave_height_m,omitempty"`
	Degraded      bool      `json:"degraded"`
	Actions       []string  `json:"actions"`
	ModelVersion  string    `json:"model_version"`
	ComputedAt    time.Time `json:"computed_at"`
}

// SurgeRiskFromConditions scores coastal inundation risk. This assessment
// never fails: with no usable inputs it returns a low, degraded result so
// the endpoint can always answer.
func SurgeRiskFromConditions(in SurgeInput) SurgeRisk {
	r := SurgeRisk{
		Level:        LevelLow,
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	if !in.HasWind && !in.HasPressure && !in.HasTide && !in.HasWaves {
		r.Degraded = true
		r.Actions = []string{"Insufficient data: defaulting to low surge risk"}
		return r
	}

	var score float64
	if in.HasTide {
		r.TideAnomalyMM = in.TideAnomalyMM
		score += clamp(in.TideAnomalyMM/surgeAnomalySevereMM, 0, 1) * 45
	}
	if in.HasWind && in.WindKPH >= surgeWindKPH {
		score += clamp((in.WindKPH-surgeWindKPH)/60.0, 0, 1) * 25
	}
	if in.HasPressure && in.PressureHPA <= surgePressureHPA {
		score += clamp((surgePressureHPA-in.PressureHPA)/30.0, 0, 1) * 20
	}
	if in.HasWaves {
		r.WaveHeightM = in.WaveHeightM
		score += clamp(in.WaveHeightM/6.0, 0, 1) * 10
	}

	r.Score = clamp(score, 0, 100)
	switch {
	case r.Score >= 65:
		r.Level = LevelSevere
	case r.Score >= 45:
		r.Level = LevelHigh
	case r.Score >= 25 || (in.HasTide && in.TideAnomalyMM >= surgeAnomalyWatchMM):
		r.Level = LevelModerate
	default:
		r.Level = LevelLow
	}
	r.Actions = surgeActions(r.Level)
	return r
}

func surgeActions(level Level) []string {
	switch level {
	case LevelSevere:
		return []string{
			"High risk of coastal inundation: evacuate low-lying coastal zones if advised",
			"Keep away from beaches, jetties and river mouths",
		}
	case LevelHigh:
		return []string{
			"Swells may overtop coastal roads at high tide",
			"Move boats to safe moorings",
		}
	case LevelModerate:
		return []string{"Elevated sea level: avoid exposed reef flats at high tide"}
	default:
		return []string{"No surge action required"}
	}
}
