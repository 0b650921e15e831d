package risk

import "testing"

func TestBleachingRiskLadder(t *testing.T) {
	tests := []struct {
		name      string
		dhw       float64
		wantLevel Level
		wantAlert string
	}{
		{"no stress", 0, LevelLow, "watch"},
		{"just below warning", 3.9, LevelLow, "watch"},
		{"warning threshold", 4, LevelModerate, "warning"},
		{"alert level 1", 8, LevelHigh, "alert_level_1"},
		{"just below severe", 11.9, LevelHigh, "alert_level_1"},
		{"severe threshold", 12, LevelSevere, "alert_level_2"},
		{"extreme accumulation", 22, LevelSevere, "alert_level_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BleachingRiskFromDHW(BleachingInput{DHW: tt.dhw, HasDHW: true})
			if r.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", r.Level, tt.wantLevel)
			}
			if r.AlertLevel != tt.wantAlert {
				t.Errorf("AlertLevel = %q, want %q", r.AlertLevel, tt.wantAlert)
			}
			if r.Score < 0 || r.Score > 100 {
				t.Errorf("Score = %f, want [0,100]", r.Score)
			}
			if r.Probability < 0 || r.Probability > 1 {
				t.Errorf("Probability = %f, want [0,1]", r.Probability)
			}
			if r.ModelVersion != "heuristic-v1" {
				t.Errorf("ModelVersion = %q", r.ModelVersion)
			}
		})
	}
}

// Any DHW at or above 12 must be severe regardless of the anomaly input.
func TestBleachingSevereAboveTwelveDHW(t *testing.T) {
	for dhw := 12.0; dhw <= 40; dhw += 0.5 {
		for _, anomaly := range []float64{-2, 0, 3} {
			r := BleachingRiskFromDHW(BleachingInput{
				DHW: dhw, HasDHW: true,
				SSTAnomaly: anomaly, HasAnomaly: true,
			})
			if r.Level != LevelSevere {
				t.Fatalf("DHW=%.1f anomaly=%.1f: Level = %q, want severe", dhw, anomaly, r.Level)
			}
		}
	}
}

func TestBleachingHotspotEscalatesWatch(t *testing.T) {
	r := BleachingRiskFromDHW(BleachingInput{
		DHW: 1, HasDHW: true,
		SSTAnomaly: 1.5, HasAnomaly: true,
	})
	if r.Level != LevelModerate {
		t.Errorf("Level = %q, want moderate for active hotspot", r.Level)
	}
	if r.AlertLevel != "warning" {
		t.Errorf("AlertLevel = %q, want warning", r.AlertLevel)
	}
}

func TestBleachingNoDHWFallsBackToAnomaly(t *testing.T) {
	r := BleachingRiskFromDHW(BleachingInput{SSTAnomaly: 2.0, HasAnomaly: true})
	if r.Level != LevelModerate {
		t.Errorf("Level = %q, want moderate", r.Level)
	}

	calm := BleachingRiskFromDHW(BleachingInput{})
	if calm.Level != LevelLow {
		t.Errorf("Level = %q, want low with no inputs", calm.Level)
	}
}
