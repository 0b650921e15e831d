package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/assess"
	"github.com/jlucien/lagoonwatch/internal/metrics"
	"github.com/jlucien/lagoonwatch/internal/models"
	"github.com/jlucien/lagoonwatch/internal/risk"
	"github.com/jlucien/lagoonwatch/internal/store"
)

type Scheduler struct {
	store      *store.Store
	weather    *OpenMeteoClient
	erddap     *ERDDAPClient
	gfw        *GFWClient
	tides      *TideGaugeClient
	advisories *advisory.Client
	assessor   *assess.Assessor
	daily      *DailyJobs
	sites      []models.Site
	loc        *time.Location

	weatherInterval  time.Duration
	marineInterval   time.Duration
	forecastInterval time.Duration
	advisoryInterval time.Duration
	tideInterval     time.Duration
	effortInterval   time.Duration
}

func NewScheduler(st *store.Store, sites []models.Site, loc *time.Location) *Scheduler {
	return &Scheduler{
		store:            st,
		weather:          NewOpenMeteoClient(),
		erddap:           NewERDDAPClient(),
		tides:            NewTideGaugeClient(),
		daily:            NewDailyJobs(st),
		sites:            sites,
		loc:              loc,
		weatherInterval:  15 * time.Minute,
		marineInterval:   1 * time.Hour,
		forecastInterval: 6 * time.Hour,
		advisoryInterval: 15 * time.Minute,
		tideInterval:     1 * time.Hour,
		effortInterval:   12 * time.Hour,
	}
}

// SetGFWClient enables fishing-effort ingestion. A nil client leaves it off.
func (s *Scheduler) SetGFWClient(client *GFWClient) {
	s.gfw = client
}

// SetAdvisoryClient enables cyclone advisory polling.
func (s *Scheduler) SetAdvisoryClient(client *advisory.Client) {
	s.advisories = client
	s.assessor = assess.New(s.store, client)
}

func (s *Scheduler) Run(ctx context.Context) {
	if s.assessor == nil {
		s.assessor = assess.New(s.store, s.advisories)
	}

	s.ingestWeather()
	s.ingestForecasts()
	s.ingestMarine()
	s.ingestAdvisories(ctx)
	s.ingestTides()
	s.ingestFishingEffort()
	s.computeRisks(ctx)
	s.runDailyJobsIfNeeded()

	weatherTicker := time.NewTicker(s.weatherInterval)
	marineTicker := time.NewTicker(s.marineInterval)
	fcTicker := time.NewTicker(s.forecastInterval)
	advisoryTicker := time.NewTicker(s.advisoryInterval)
	tideTicker := time.NewTicker(s.tideInterval)
	effortTicker := time.NewTicker(s.effortInterval)
	dailyTicker := time.NewTicker(1 * time.Hour)
	defer weatherTicker.Stop()
	defer marineTicker.Stop()
	defer fcTicker.Stop()
	defer advisoryTicker.Stop()
	defer tideTicker.Stop()
	defer effortTicker.Stop()
	defer dailyTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-weatherTicker.C:
			s.ingestWeather()
			s.computeRisks(ctx)
		case <-marineTicker.C:
			s.ingestMarine()
		case <-fcTicker.C:
			s.ingestForecasts()
		case <-advisoryTicker.C:
			s.ingestAdvisories(ctx)
		case <-tideTicker.C:
			s.ingestTides()
		case <-effortTicker.C:
			s.ingestFishingEffort()
		case <-dailyTicker.C:
			s.runDailyJobsIfNeeded()
		}
	}
}

func (s *Scheduler) runDailyJobsIfNeeded() {
	localNow := time.Now().In(s.loc)

	if localNow.Hour() >= 6 && localNow.Hour() < 7 {
		yesterday := localNow.AddDate(0, 0, -1)
		s.daily.RunAll(yesterday)
	}
}

func (s *Scheduler) ingestWeather() {
	log.Println("scheduler: ingesting weather observations")
	for _, site := range s.sites {
		run, _ := s.store.StartIngestRun("open-meteo", "v1/forecast/current", &site.SiteID)

		obs, rawJSON, err := s.weather.FetchCurrent(site)

		if run != nil {
			run.Success = err == nil
			if err != nil {
				run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			}
			run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(rawJSON)), Valid: len(rawJSON) > 0}
		}

		if len(rawJSON) > 0 && run != nil {
			if _, err := s.store.StoreRawPayload(&run.ID, "open-meteo", "v1/forecast/current", &site.SiteID, []byte(rawJSON)); err != nil {
				log.Printf("scheduler: store raw payload %s: %v", site.SiteID, err)
			}
		}

		if err != nil {
			log.Printf("scheduler: fetch weather %s: %v", site.SiteID, err)
			if run != nil {
				s.store.CompleteIngestRun(run)
			}
			continue
		}

		obs.QCFlags = QualityFlagsToJSON(ValidateObservation(obs))
		obs.RawJSON = rawJSON
		if err := s.store.InsertObservation(*obs); err != nil {
			log.Printf("scheduler: insert observation %s: %v", site.SiteID, err)
			if run != nil {
				run.Success = false
				run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
				s.store.CompleteIngestRun(run)
			}
			continue
		}
		metrics.ObservationsIngested.WithLabelValues(site.SiteID).Inc()

		if run != nil {
			run.RecordsParsed = sql.NullInt64{Int64: 1, Valid: true}
			run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
			s.store.CompleteIngestRun(run)
		}

		if obs.Temp.Valid {
			log.Printf("scheduler: %s: %.1f°C", site.SiteID, obs.Temp.Float64)
		}
	}
}

func (s *Scheduler) ingestForecasts() {
	log.Println("scheduler: ingesting daily forecasts")
	for _, site := range s.sites {
		run, _ := s.store.StartIngestRun("open-meteo", "v1/forecast/daily", &site.SiteID)

		forecasts, rawJSON, err := s.weather.FetchDailyForecast(site)

		if run != nil {
			run.Success = err == nil
			run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(rawJSON)), Valid: len(rawJSON) > 0}
			run.RecordsParsed = sql.NullInt64{Int64: int64(len(forecasts)), Valid: true}
			if err != nil {
				run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			}
		}

		if len(rawJSON) > 0 && run != nil {
			if _, err := s.store.StoreRawPayload(&run.ID, "open-meteo", "v1/forecast/daily", &site.SiteID, []byte(rawJSON)); err != nil {
				log.Printf("scheduler: store raw payload %s: %v", site.SiteID, err)
			}
		}

		if err != nil {
			log.Printf("scheduler: fetch forecast %s: %v", site.SiteID, err)
		} else {
			inserted := 0
			for _, fc := range forecasts {
				if err := s.store.InsertForecast(fc); err != nil {
					log.Printf("scheduler: insert forecast %s: %v", site.SiteID, err)
					continue
				}
				inserted++
			}
			log.Printf("scheduler: inserted %d forecast days for %s", inserted, site.SiteID)
			if run != nil {
				run.RecordsStored = sql.NullInt64{Int64: int64(inserted), Valid: true}
			}
		}

		if run != nil {
			s.store.CompleteIngestRun(run)
		}
	}
}

func (s *Scheduler) ingestMarine() {
	log.Println("scheduler: ingesting marine observations")
	for _, site := range s.sites {
		s.ingestMarineObs(site, "open-meteo-marine", "v1/marine", func() (*models.MarineObservation, string, error) {
			return s.weather.FetchMarine(site)
		})
		s.ingestMarineObs(site, "noaa-crw", "griddap/NOAA_DHW", func() (*models.MarineObservation, string, error) {
			return s.erddap.FetchCoralReefWatch(site)
		})
		s.ingestMarineObs(site, "noaa-oc", "griddap/ocean-colour", func() (*models.MarineObservation, string, error) {
			return s.erddap.FetchOceanColour(site)
		})
	}
}

func (s *Scheduler) ingestMarineObs(site models.Site, source, endpoint string, fetch func() (*models.MarineObservation, string, error)) {
	run, _ := s.store.StartIngestRun(source, endpoint, &site.SiteID)

	obs, rawJSON, err := fetch()

	if run != nil {
		run.Success = err == nil
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(rawJSON)), Valid: len(rawJSON) > 0}
		if err != nil {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		}
	}

	if len(rawJSON) > 0 && run != nil {
		if _, err := s.store.StoreRawPayload(&run.ID, source, endpoint, &site.SiteID, []byte(rawJSON)); err != nil {
			log.Printf("scheduler: store raw payload %s/%s: %v", source, site.SiteID, err)
		}
	}

	if err != nil {
		log.Printf("scheduler: fetch %s %s: %v", source, site.SiteID, err)
		if run != nil {
			s.store.CompleteIngestRun(run)
		}
		return
	}

	if flags := ValidateMarineObservation(obs); len(flags) > 0 {
		log.Printf("scheduler: %s %s quality flags: %v", source, site.SiteID, flags)
	}

	obs.RawJSON = rawJSON
	if err := s.store.InsertMarineObservation(*obs); err != nil {
		log.Printf("scheduler: insert marine %s %s: %v", source, site.SiteID, err)
		if run != nil {
			run.Success = false
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			s.store.CompleteIngestRun(run)
		}
		return
	}
	metrics.MarineObservationsIngested.WithLabelValues(site.SiteID, source).Inc()

	if run != nil {
		run.RecordsParsed = sql.NullInt64{Int64: 1, Valid: true}
		run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
		s.store.CompleteIngestRun(run)
	}
}

func (s *Scheduler) ingestAdvisories(ctx context.Context) {
	if s.advisories == nil {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	advs, err := s.advisories.Fetch(fetchCtx)
	if err != nil {
		log.Printf("scheduler: fetch advisories: %v", err)
		return
	}

	now := time.Now()
	stored := 0
	for _, adv := range advs {
		if err := s.store.UpsertAdvisory(adv, now); err != nil {
			log.Printf("scheduler: upsert advisory %s: %v", adv.ID, err)
			continue
		}
		stored++
	}
	metrics.AdvisoriesActive.Set(float64(len(advs)))

	if len(advs) > 0 {
		log.Printf("scheduler: stored %d cyclone advisories, nearest %s at %.0f km",
			stored, advs[0].Name, advs[0].Distance)
	}
}

func (s *Scheduler) ingestTides() {
	run, _ := s.store.StartIngestRun("uhslc", "hourly", nil)

	readings, err := s.tides.FetchLatest()

	if run != nil {
		run.Success = err == nil
		run.RecordsParsed = sql.NullInt64{Int64: int64(len(readings)), Valid: true}
		if err != nil {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		}
	}

	if err != nil {
		log.Printf("scheduler: fetch tides: %v", err)
		if run != nil {
			s.store.CompleteIngestRun(run)
		}
		return
	}

	// The gauge file covers years; only the recent tail matters here.
	cutoff := time.Now().UTC().AddDate(0, 0, -14)
	stored := 0
	for _, r := range readings {
		if r.RecordedAt.Before(cutoff) {
			continue
		}
		if err := s.store.InsertTideReading(r); err != nil {
			log.Printf("scheduler: insert tide reading: %v", err)
			continue
		}
		stored++
	}
	log.Printf("scheduler: stored %d tide readings", stored)

	if run != nil {
		run.RecordsStored = sql.NullInt64{Int64: int64(stored), Valid: true}
		s.store.CompleteIngestRun(run)
	}
}

func (s *Scheduler) ingestFishingEffort() {
	if s.gfw == nil {
		return
	}

	zones := make(map[string]bool)
	for _, site := range s.sites {
		zones[site.Zone] = true
	}

	for zone := range zones {
		run, _ := s.store.StartIngestRun("gfw", "4wings/report", nil)

		efforts, rawJSON, err := s.gfw.FetchEffort(zone, 7)

		if run != nil {
			run.Success = err == nil
			run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(rawJSON)), Valid: len(rawJSON) > 0}
			run.RecordsParsed = sql.NullInt64{Int64: int64(len(efforts)), Valid: true}
			if err != nil {
				run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
			}
		}

		if err != nil {
			log.Printf("scheduler: fetch fishing effort %s: %v", zone, err)
			if run != nil {
				s.store.CompleteIngestRun(run)
			}
			continue
		}

		stored := 0
		for _, e := range efforts {
			if err := s.store.UpsertFishingEffort(e); err != nil {
				log.Printf("scheduler: upsert fishing effort %s: %v", zone, err)
				continue
			}
			stored++
		}
		log.Printf("scheduler: stored %d fishing effort days for %s", stored, zone)

		if run != nil {
			run.RecordsStored = sql.NullInt64{Int64: int64(stored), Valid: true}
			s.store.CompleteIngestRun(run)
		}
	}
}

// computeRisks runs every hazard assessment per site, persists the results
// and updates the exported gauges.
func (s *Scheduler) computeRisks(ctx context.Context) {
	for _, site := range s.sites {
		if flood, err := s.assessor.Flood(site.SiteID); err != nil {
			log.Printf("scheduler: flood risk %s: %v", site.SiteID, err)
		} else {
			s.recordRisk(site.SiteID, "flood", flood.Level, flood.Score, flood)
		}

		if cyc, err := s.assessor.Cyclone(ctx, site.SiteID); err != nil {
			log.Printf("scheduler: cyclone risk %s: %v", site.SiteID, err)
		} else {
			s.recordRisk(site.SiteID, "cyclone", cyc.Level, cyc.Score, cyc)
		}

		if bl, err := s.assessor.Bleaching(site.SiteID); err != nil {
			log.Printf("scheduler: bleaching risk %s: %v", site.SiteID, err)
		} else {
			s.recordRisk(site.SiteID, "bleaching", bl.Level, bl.Score, bl)
		}

		surge := s.assessor.Surge(site.SiteID)
		s.recordRisk(site.SiteID, "surge", surge.Level, surge.Score, surge)
	}
}

func (s *Scheduler) recordRisk(siteID, hazard string, level risk.Level, score float64, details any) {
	detailsJSON, _ := json.Marshal(details)

	rec := store.RiskRecord{
		SiteID:       siteID,
		Hazard:       hazard,
		Level:        level,
		Score:        score,
		ModelVersion: risk.ModelVersion,
		DetailsJSON:  string(detailsJSON),
		ComputedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertRiskAssessment(rec); err != nil {
		log.Printf("scheduler: insert %s risk %s: %v", hazard, siteID, err)
		return
	}
	metrics.RiskLevel.WithLabelValues(hazard, siteID).Set(float64(level.Severity()))
}

func (s *Scheduler) IngestOnce(ctx context.Context) error {
	if s.assessor == nil {
		s.assessor = assess.New(s.store, s.advisories)
	}
	s.ingestWeather()
	s.ingestForecasts()
	s.ingestMarine()
	s.ingestAdvisories(ctx)
	s.ingestTides()
	s.ingestFishingEffort()
	s.computeRisks(ctx)
	return nil
}

func (s *Scheduler) RunDailyJobs() error {
	yesterday := time.Now().In(s.loc).AddDate(0, 0, -1)
	return s.daily.RunAll(yesterday)
}

func (s *Scheduler) BackfillDailySummaries() error {
	return s.daily.BackfillSummaries()
}
