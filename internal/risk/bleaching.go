package risk

import "time"

// Coral Reef Watch alert ladder. DHW thresholds follow the CRW product:
// 4 DHW is where significant bleaching becomes likely, 8 DHW is where
// widespread bleaching and mortality start, and by 12 DHW severe,
// multi-species mortality is expected.
const (
	dhwWarning = 4.0
	dhwAlert1  = 8.0
	dhwSevere  = 12.0

	// SST anomaly above the bleaching threshold (MMM + 1 °C) that marks
	// active thermal stress even before heat has accumulated.
	hotspotAnomaly = 1.0
)

// BleachingInput holds the thermal-stress observations for a reef site.
type BleachingInput struct {
	DHW        float64 // degree heating weeks
	SST        float64 // °C
	SSTAnomaly float64 // °C above climatology
	HasDHW     bool
	HasAnomaly bool
}

type BleachingRisk struct {
	Level        Level     `json:"level"`
	AlertLevel   string    `json:"alert_level"` // CRW vocabulary
	Score        float64   `json:"score"`       // 0-100
	Probability  float64   `json:"probability"` // 0-1
	DHW          float64   `json:"dhw"`
	SST          float64   `json:"sst"`
	SSTAnomaly   float64   `json:"sst_anomaly"`
	Actions      []string  `json:"actions"`
	ModelVersion string    `json:"model_version"`
	ComputedAt   time.Time `json:"computed_at"`
}

// BleachingRiskFromDHW maps accumulated thermal stress to a bleaching risk
// category. DHW >= 12 is always severe regardless of other inputs.
func BleachingRiskFromDHW(in BleachingInput) BleachingRisk {
	r := BleachingRisk{
		DHW:          in.DHW,
		SST:          in.SST,
		SSTAnomaly:   in.SSTAnomaly,
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	if !in.HasDHW {
		// No accumulation data: fall back to the instantaneous hotspot.
		r.Level = LevelLow
		r.AlertLevel = "watch"
		if in.HasAnomaly && in.SSTAnomaly >= hotspotAnomaly {
			r.Level = LevelModerate
			r.AlertLevel = "warning"
		}
		r.Score = clamp(in.SSTAnomaly*20, 0, 100)
		r.Probability = clamp(in.SSTAnomaly*0.2, 0, 1)
		r.Actions = bleachingActions(r.Level)
		return r
	}

	switch {
	case in.DHW >= dhwSevere:
		r.Level = LevelSevere
		r.AlertLevel = "alert_level_2"
		r.Probability = 0.9
	case in.DHW >= dhwAlert1:
		r.Level = LevelHigh
		r.AlertLevel = "alert_level_1"
		r.Probability = 0.7
	case in.DHW >= dhwWarning:
		r.Level = LevelModerate
		r.AlertLevel = "warning"
		r.Probability = 0.45
	default:
		r.Level = LevelLow
		r.AlertLevel = "watch"
		r.Probability = 0.1
		// An active hotspot with little accumulated stress still warrants
		// a warning: heat is arriving faster than the DHW integral shows.
		if in.HasAnomaly && in.SSTAnomaly >= hotspotAnomaly {
			r.Level = LevelModerate
			r.AlertLevel = "warning"
			r.Probability = 0.35
		}
	}

	r.Score = clamp(in.DHW/16.0*100, 0, 100)
	r.Actions = bleachingActions(r.Level)
	return r
}

func bleachingActions(level Level) []string {
	switch level {
	case LevelSevere:
		return []string{
			"Expect widespread bleaching and significant coral mortality",
			"Suspend non-essential lagoon activities near reef flats",
			"Coordinate with Albion Fisheries Research Centre on reef surveys",
		}
	case LevelHigh:
		return []string{
			"Bleaching likely on sensitive species",
			"Increase reef monitoring frequency",
			"Brief marine park operators on reduced anchoring",
		}
	case LevelModerate:
		return []string{
			"Possible bleaching on the most sensitive corals",
			"Begin weekly visual reef checks",
		}
	default:
		return []string{"No thermal stress action required"}
	}
}
