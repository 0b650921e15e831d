package risk

import "time"

// Water-quality proxies from ocean-colour satellites. Oligotrophic lagoon
// water around Mauritius sits near 0.1-0.2 mg/m³ chlorophyll; sustained
// values above 1 mg/m³ indicate nutrient enrichment, above 3 a bloom.
// Kd490 above ~0.15 m⁻¹ marks visibly turbid water.
const (
	chlElevated = 1.0
	chlHigh     = 3.0
	kd490Turbid = 0.15
	kd490Murky  = 0.30
)

type PollutionInput struct {
	Chlorophyll    float64 // mg/m³
	Kd490          float64 // m⁻¹
	HasChlorophyll bool
	HasKd490       bool
}

type PollutionIndex struct {
	Level        Level     `json:"level"`
	Score        float64   `json:"score"` // 0-100, higher is worse
	Chlorophyll  float64   `json:"chlorophyll,omitempty"`
	Kd490        float64   `json:"kd490,omitempty"`
	Factors      []string  `json:"factors"`
	ModelVersion string    `json:"model_version"`
	ComputedAt   time.Time `json:"computed_at"`
}

// PollutionIndexFromOceanColour scores coastal water quality from
// chlorophyll-a and turbidity. Each proxy contributes up to half the score.
func PollutionIndexFromOceanColour(in PollutionInput) PollutionIndex {
	p := PollutionIndex{
		ModelVersion: ModelVersion,
		ComputedAt:   time.Now().UTC(),
	}

	var score float64
	if in.HasChlorophyll {
		p.Chlorophyll = in.Chlorophyll
		score += clamp(in.Chlorophyll/chlHigh, 0, 1) * 50
		switch {
		case in.Chlorophyll >= chlHigh:
			p.Factors = append(p.Factors, "chlorophyll at bloom levels")
		case in.Chlorophyll >= chlElevated:
			p.Factors = append(p.Factors, "elevated chlorophyll")
		}
	}
	if in.HasKd490 {
		p.Kd490 = in.Kd490
		score += clamp(in.Kd490/kd490Murky, 0, 1) * 50
		switch {
		case in.Kd490 >= kd490Murky:
			p.Factors = append(p.Factors, "severely reduced water clarity")
		case in.Kd490 >= kd490Turbid:
			p.Factors = append(p.Factors, "turbid water")
		}
	}

	p.Score = clamp(score, 0, 100)
	switch {
	case p.Score >= 70:
		p.Level = LevelSevere
	case p.Score >= 45:
		p.Level = LevelHigh
	case p.Score >= 20:
		p.Level = LevelModerate
	default:
		p.Level = LevelLow
	}
	if len(p.Factors) == 0 {
		p.Factors = []string{"water quality within normal range"}
	}
	return p
}
