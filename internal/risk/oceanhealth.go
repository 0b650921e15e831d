package risk

import (
	"time"
)

// Component weights for the ocean health index. They sum to 1; missing
// components are dropped and the rest renormalised so the index stays
// comparable when a provider is down.
const (
	weightThermal       = 0.30
	weightBleaching     = 0.25
	weightWaterQuality  = 0.20
	weightFishing       = 0.15
	weightAcidification = 0.10
)

// Sustained fishing effort above this many apparent hours per day in a zone
// is treated as full pressure.
const fishingHoursSaturation = 120.0

type OceanHealthInput struct {
	SSTAnomaly     float64
	DHW            float64
	PollutionScore float64 // 0-100 from PollutionIndexFromOceanColour
	FishingHours   float64 // apparent fishing hours/day in the zone
	AragoniteState float64 // Ω aragonite saturation state

	HasThermal   bool
	HasDHW       bool
	HasPollution bool
	HasFishing   bool
	HasAragonite bool
}

type HealthComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"` // 0-100, higher is healthier
	Weight float64 `json:"weight"`
}

type OceanHealth struct {
	Index        float64           `json:"index"` // 0-100, higher is healthier
	Grade        string            `json:"grade"` // "good", "fair", "poor", "critical"
	Components   []HealthComponent `json:"components"`
	ModelVersion string            `json:"model_version"`
	ComputedAt   time.Time         `json:"computed_at"`
}

// OceanHealthIndex aggregates the per-concern scores into a single 0-100
// index. The sum is a plain weighted mean: reordering the components cannot
// change the result, and the clamp keeps it in range whatever the inputs.
func OceanHealthIndex(in OceanHealthInput) OceanHealth {
	h := OceanHealth{
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	if in.HasThermal {
		// 0 °C anomaly = 100; +2.5 °C or more = 0.
		score := clamp(100-in.SSTAnomaly/2.5*100, 0, 100)
		h.Components = append(h.Components, HealthComponent{"thermal_stress", score, weightThermal})
	}
	if in.HasDHW {
		// 16 DHW or more zeroes the component.
		score := clamp(100-in.DHW/16.0*100, 0, 100)
		h.Components = append(h.Components, HealthComponent{"bleaching_stress", score, weightBleaching})
	}
	if in.HasPollution {
		score := clamp(100-in.PollutionScore, 0, 100)
		h.Components = append(h.Components, HealthComponent{"water_quality", score, weightWaterQuality})
	}
	if in.HasFishing {
		score := clamp(100-in.FishingHours/fishingHoursSaturation*100, 0, 100)
		h.Components = append(h.Components, HealthComponent{"fishing_pressure", score, weightFishing})
	}
	if in.HasAragonite {
		// Ω >= 3.5 is healthy reef chemistry; Ω <= 2 is critically low.
		score := clamp((in.AragoniteState-2.0)/1.5*100, 0, 100)
		h.Components = append(h.Components, HealthComponent{"acidification", score, weightAcidification})
	}

	var sum, weightSum float64
	for _, c := range h.Components {
		sum += c.Score * c.Weight
		weightSum += c.Weight
	}
	if weightSum > 0 {
		h.Index = clamp(sum/weightSum, 0, 100)
	} else {
		// Nothing observed: report a neutral index rather than zero,
		// which would read as a crisis.
		h.Index = 50
	}

	switch {
	case h.Index >= 75:
		h.Grade = "good"
	case h.Index >= 50:
		h.Grade = "fair"
	case h.Index >= 25:
		h.Grade = "poor"
	default:
		h.Grade = "critical"
	}
	return h
}
