package risk

// ModelVersion tags every assessment so API consumers can tell which
// generation of scoring produced a result.
const ModelVersion = "heuristic-v1"

// Level is a discrete risk category shared by all hazards.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelSevere   Level = "severe"
)

// Severity returns a numeric rank for sorting (higher = worse).
func (l Level) Severity() int {
	switch l {
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

// Escalate bumps a level up one step, saturating at severe.
func (l Level) Escalate() Level {
	switch l {
	case LevelLow:
		return LevelModerate
	case LevelModerate:
		return LevelHigh
	default:
		return LevelSevere
	}
}

func levelFromSeverity(s int) Level {
	switch {
	case s >= 3:
		return LevelSevere
	case s == 2:
		return LevelHigh
	case s == 1:
		return LevelModerate
	default:
		return LevelLow
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
