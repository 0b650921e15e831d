package ingest

import (
	"encoding/json"

	"github.com/jlucien/lagoonwatch/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagPrecipNegative     = "precip_negative"
	FlagCloudCoverInvalid  = "cloud_cover_invalid"
	FlagSSTOutOfRange      = "sst_out_of_range"
	FlagDHWNegative        = "dhw_negative"
	FlagWaveHeightUnlikely = "wave_height_unlikely"
)

func ValidateObservation(obs *models.Observation) []string {
	var flags []string

	if obs.Temp.Valid {
		if obs.Temp.Float64 < 5 || obs.Temp.Float64 > 45 {
			flags = append(flags, FlagTempOutOfRange)
		}
	}

	if obs.Humidity.Valid {
		if obs.Humidity.Int64 < 0 || obs.Humidity.Int64 > 100 {
			flags = append(flags, FlagHumidityInvalid)
		}
	}

	if obs.WindDir.Valid {
		if obs.WindDir.Int64 < 0 || obs.WindDir.Int64 > 360 {
			flags = append(flags, FlagWindDirInvalid)
		}
	}

	if obs.WindSpeed.Valid {
		if obs.WindSpeed.Float64 < 0 || obs.WindSpeed.Float64 > 300 {
			flags = append(flags, FlagWindSpeedUnlikely)
		}
	}

	// Intense cyclones can push MSL pressure well below 950 hPa, so the
	// lower bound is generous.
	if obs.Pressure.Valid {
		if obs.Pressure.Float64 < 870 || obs.Pressure.Float64 > 1080 {
			flags = append(flags, FlagPressureOutOfRange)
		}
	}

	if obs.Precip.Valid && obs.Precip.Float64 < 0 {
		flags = append(flags, FlagPrecipNegative)
	}

	if obs.CloudCover.Valid {
		if obs.CloudCover.Int64 < 0 || obs.CloudCover.Int64 > 100 {
			flags = append(flags, FlagCloudCoverInvalid)
		}
	}

	return flags
}

func ValidateMarineObservation(obs *models.MarineObservation) []string {
	var flags []string

	if obs.SST.Valid {
		if obs.SST.Float64 < 15 || obs.SST.Float64 > 36 {
			flags = append(flags, FlagSSTOutOfRange)
		}
	}

	if obs.DHW.Valid && obs.DHW.Float64 < 0 {
		flags = append(flags, FlagDHWNegative)
	}

	if obs.WaveHeight.Valid {
		if obs.WaveHeight.Float64 < 0 || obs.WaveHeight.Float64 > 25 {
			flags = append(flags, FlagWaveHeightUnlikely)
		}
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}
