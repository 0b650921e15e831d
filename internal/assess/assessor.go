// Package assess assembles risk inputs from stored observations and runs
// the scoring heuristics. Both the scheduler and the API build their
// assessments through it so the two always agree.
package assess

import (
	"context"
	"log"
	"time"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/models"
	"github.com/jlucien/lagoonwatch/internal/risk"
	"github.com/jlucien/lagoonwatch/internal/store"
)

const (
	// Observations older than this are too stale to score against.
	obsMaxAge    = 2 * time.Hour
	marineMaxAge = 48 * time.Hour
	tideMaxAge   = 6 * time.Hour

	tideGaugeID = "port-louis"

	fishingWindowDays = 7
)

type Assessor struct {
	store      *store.Store
	advisories *advisory.Client
}

func New(st *store.Store, adv *advisory.Client) *Assessor {
	return &Assessor{store: st, advisories: adv}
}

// Flood scores flash-flood risk for a site from its trailing rainfall and
// the next day of forecast rain.
func (a *Assessor) Flood(siteID string) (risk.FloodRisk, error) {
	now := time.Now().UTC()

	p24, err := a.store.GetPrecipTotal(siteID, now.Add(-24*time.Hour))
	if err != nil {
		return risk.FloodRisk{}, err
	}
	p72, err := a.store.GetPrecipTotal(siteID, now.Add(-72*time.Hour))
	if err != nil {
		return risk.FloodRisk{}, err
	}

	in := risk.FloodInput{Precip24h: p24, Precip72h: p72}

	forecasts, err := a.store.GetLatestForecasts(siteID)
	if err == nil {
		for _, f := range forecasts {
			if f.DayOfForecast <= 1 && f.PrecipSum.Valid {
				in.ForecastRain += f.PrecipSum.Float64
				in.HasForecast = true
			}
		}
	}

	return risk.FloodRiskFromPrecip(in), nil
}

// Cyclone scores cyclone threat from the latest local observation and the
// nearest active advisory.
func (a *Assessor) Cyclone(ctx context.Context, siteID string) (risk.CycloneRisk, error) {
	var in risk.CycloneInput

	obs, err := a.store.GetLatestObservation(siteID)
	if err != nil {
		return risk.CycloneRisk{}, err
	}
	if obs != nil && time.Since(obs.ObservedAt) < obsMaxAge {
		if obs.Pressure.Valid {
			in.PressureHPA = obs.Pressure.Float64
			in.HasPressure = true
		}
		if obs.WindSpeed.Valid {
			in.WindKPH = obs.WindSpeed.Float64
			in.HasWind = true
		}
		if obs.WindGust.Valid {
			in.GustKPH = obs.WindGust.Float64
		}
	}

	if adv := a.nearestAdvisory(ctx); adv != nil {
		in.AdvisoryActive = true
		in.AdvisoryDistanceKM = adv.Distance
		in.AdvisoryGustKPH = adv.GustKPH
	}

	return risk.CycloneRiskFromObservations(in), nil
}

// Bleaching scores thermal stress for a reef site from the latest Coral
// Reef Watch values.
func (a *Assessor) Bleaching(siteID string) (risk.BleachingRisk, error) {
	var in risk.BleachingInput

	marine, err := a.store.GetLatestMarineBySite(siteID)
	if err != nil {
		return risk.BleachingRisk{}, err
	}
	if marine != nil && time.Since(marine.ObservedAt) < marineMaxAge {
		if marine.DHW.Valid {
			in.DHW = marine.DHW.Float64
			in.HasDHW = true
		}
		if marine.SST.Valid {
			in.SST = marine.SST.Float64
		}
		if marine.SSTAnomaly.Valid {
			in.SSTAnomaly = marine.SSTAnomaly.Float64
			in.HasAnomaly = true
		}
	}

	return risk.BleachingRiskFromDHW(in), nil
}

// Surge scores coastal inundation risk. Missing providers degrade the
// result instead of failing it, so this never returns an error for absent
// data.
func (a *Assessor) Surge(siteID string) risk.SurgeRisk {
	var in risk.SurgeInput

	if obs, err := a.store.GetLatestObservation(siteID); err != nil {
		log.Printf("assess: surge observation %s: %v", siteID, err)
	} else if obs != nil && time.Since(obs.ObservedAt) < obsMaxAge {
		if obs.WindSpeed.Valid {
			in.WindKPH = obs.WindSpeed.Float64
			in.HasWind = true
		}
		if obs.Pressure.Valid {
			in.PressureHPA = obs.Pressure.Float64
			in.HasPressure = true
		}
	}

	if tide, err := a.store.GetLatestTideReading(tideGaugeID); err != nil {
		log.Printf("assess: surge tide reading: %v", err)
	} else if tide != nil && tide.AnomalyMM.Valid && time.Since(tide.RecordedAt) < tideMaxAge {
		in.TideAnomalyMM = float64(tide.AnomalyMM.Int64)
		in.HasTide = true
	}

	if marine, err := a.store.GetLatestMarineBySite(siteID); err != nil {
		log.Printf("assess: surge marine %s: %v", siteID, err)
	} else if marine != nil && marine.WaveHeight.Valid && time.Since(marine.ObservedAt) < marineMaxAge {
		in.WaveHeightM = marine.WaveHeight.Float64
		in.HasWaves = true
	}

	return risk.SurgeRiskFromConditions(in)
}

// Pollution scores lagoon water quality from the latest ocean-colour data.
func (a *Assessor) Pollution(siteID string) (risk.PollutionIndex, error) {
	var in risk.PollutionInput

	marine, err := a.store.GetLatestMarineBySite(siteID)
	if err != nil {
		return risk.PollutionIndex{}, err
	}
	if marine != nil && time.Since(marine.ObservedAt) < marineMaxAge {
		if marine.Chlorophyll.Valid {
			in.Chlorophyll = marine.Chlorophyll.Float64
			in.HasChlorophyll = true
		}
		if marine.Kd490.Valid {
			in.Kd490 = marine.Kd490.Float64
			in.HasKd490 = true
		}
	}

	return risk.PollutionIndexFromOceanColour(in), nil
}

// OceanHealth combines thermal stress, water quality and fishing pressure
// for a site into the composite index.
func (a *Assessor) OceanHealth(site models.Site) (risk.OceanHealth, error) {
	var in risk.OceanHealthInput

	marine, err := a.store.GetLatestMarineBySite(site.SiteID)
	if err != nil {
		return risk.OceanHealth{}, err
	}
	if marine != nil && time.Since(marine.ObservedAt) < marineMaxAge {
		if marine.SSTAnomaly.Valid {
			in.SSTAnomaly = marine.SSTAnomaly.Float64
			in.HasThermal = true
		}
		if marine.DHW.Valid {
			in.DHW = marine.DHW.Float64
			in.HasDHW = true
		}
		if marine.Chlorophyll.Valid || marine.Kd490.Valid {
			pol, err := a.Pollution(site.SiteID)
			if err == nil {
				in.PollutionScore = pol.Score
				in.HasPollution = true
			}
		}
	}

	if hours, ok, err := a.store.GetRecentFishingHours(site.Zone, fishingWindowDays); err != nil {
		log.Printf("assess: fishing hours %s: %v", site.Zone, err)
	} else if ok {
		in.FishingHours = hours
		in.HasFishing = true
	}

	return risk.OceanHealthIndex(in), nil
}

func (a *Assessor) nearestAdvisory(ctx context.Context) *advisory.Advisory {
	if a.advisories == nil {
		return nil
	}
	advs, err := a.advisories.Advisories(ctx)
	if err != nil {
		log.Printf("assess: fetch advisories: %v", err)
		advs, err = a.store.GetActiveAdvisories(6 * time.Hour)
		if err != nil || len(advs) == 0 {
			return nil
		}
	}
	if len(advs) == 0 {
		return nil
	}
	nearest := advs[0]
	for _, adv := range advs[1:] {
		if adv.Distance < nearest.Distance {
			nearest = adv
		}
	}
	return &nearest
}
