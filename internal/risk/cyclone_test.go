package risk

import "testing"

func TestCycloneRiskQuiet(t *testing.T) {
	r := CycloneRiskFromObservations(CycloneInput{
		PressureHPA: 1014, HasPressure: true,
		WindKPH: 20, GustKPH: 35, HasWind: true,
	})
	if r.Level != LevelLow {
		t.Errorf("Level = %q, want low", r.Level)
	}
	if r.Class != 0 {
		t.Errorf("Class = %d, want 0", r.Class)
	}
}

func TestCycloneRiskPressureBands(t *testing.T) {
	tests := []struct {
		name      string
		pressure  float64
		wantLevel Level
	}{
		{"normal", 1013, LevelLow},
		{"watch band", 1004, LevelModerate},
		{"warning band", 994, LevelHigh},
		{"danger band", 982, LevelSevere},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CycloneRiskFromObservations(CycloneInput{PressureHPA: tt.pressure, HasPressure: true})
			if r.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", r.Level, tt.wantLevel)
			}
		})
	}
}

func TestCycloneClassFourRequiresGusts(t *testing.T) {
	occurring := CycloneRiskFromObservations(CycloneInput{
		PressureHPA: 975, HasPressure: true,
		WindKPH: 110, GustKPH: 140, HasWind: true,
	})
	if occurring.Class != 4 {
		t.Errorf("Class = %d, want 4 with gusts over 120 km/h", occurring.Class)
	}
	if occurring.Level != LevelSevere {
		t.Errorf("Level = %q, want severe", occurring.Level)
	}

	// Deep pressure alone is severe, but without 120 km/h gusts it is
	// Class III at most.
	approaching := CycloneRiskFromObservations(CycloneInput{
		PressureHPA: 975, HasPressure: true,
		WindKPH: 70, GustKPH: 100, HasWind: true,
	})
	if approaching.Class != 3 {
		t.Errorf("Class = %d, want 3 without occurring gusts", approaching.Class)
	}
}

func TestCycloneAdvisoryProximity(t *testing.T) {
	far := CycloneRiskFromObservations(CycloneInput{
		AdvisoryActive: true, AdvisoryDistanceKM: 700, AdvisoryGustKPH: 150,
	})
	if far.Level != LevelModerate {
		t.Errorf("far Level = %q, want moderate", far.Level)
	}

	near := CycloneRiskFromObservations(CycloneInput{
		AdvisoryActive: true, AdvisoryDistanceKM: 350, AdvisoryGustKPH: 150,
	})
	if near.Level != LevelHigh {
		t.Errorf("near Level = %q, want high", near.Level)
	}

	hit := CycloneRiskFromObservations(CycloneInput{
		AdvisoryActive: true, AdvisoryDistanceKM: 150, AdvisoryGustKPH: 150,
	})
	if hit.Level != LevelSevere {
		t.Errorf("hit Level = %q, want severe", hit.Level)
	}
}

func TestCycloneScoreClamped(t *testing.T) {
	r := CycloneRiskFromObservations(CycloneInput{
		PressureHPA: 950, HasPressure: true,
		WindKPH: 180, GustKPH: 250, HasWind: true,
		AdvisoryActive: true, AdvisoryDistanceKM: 50, AdvisoryGustKPH: 280,
	})
	if r.Score != 100 {
		t.Errorf("Score = %f, want clamped to 100", r.Score)
	}
}
