package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/models"
	"github.com/jlucien/lagoonwatch/internal/risk"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loc, err := time.LoadLocation("Indian/Mauritius")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	store := New(db, loc)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertAndGetSite(t *testing.T) {
	store := setupTestStore(t)

	site := models.Site{
		SiteID:    "port-louis",
		Name:      "Port Louis Harbour",
		Latitude:  -20.160,
		Longitude: 57.501,
		Zone:      "north",
		SiteType:  "coastal",
		IsPrimary: true,
		Active:    true,
	}

	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite: %v", err)
	}

	sites, err := store.GetActiveSites()
	if err != nil {
		t.Fatalf("GetActiveSites: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("len(sites) = %d, want 1", len(sites))
	}
	if sites[0].SiteID != "port-louis" {
		t.Errorf("SiteID = %q, want port-louis", sites[0].SiteID)
	}

	primary, err := store.GetPrimarySite()
	if err != nil {
		t.Fatalf("GetPrimarySite: %v", err)
	}
	if primary == nil || primary.SiteID != "port-louis" {
		t.Errorf("GetPrimarySite = %+v, want port-louis", primary)
	}
}

func TestUpsertSite_Update(t *testing.T) {
	store := setupTestStore(t)

	site := models.Site{SiteID: "blue-bay", Name: "Blue Bay", Active: true}
	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite: %v", err)
	}

	site.Name = "Blue Bay Marine Park"
	site.SiteType = "marine_park"
	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite update: %v", err)
	}

	got, err := store.GetSite("blue-bay")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got == nil || got.Name != "Blue Bay Marine Park" {
		t.Errorf("GetSite = %+v, want updated name", got)
	}
}

func TestObservationsRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	obs := models.Observation{
		SiteID:     "port-louis",
		ObservedAt: now,
		Temp:       sql.NullFloat64{Float64: 28.4, Valid: true},
		Pressure:   sql.NullFloat64{Float64: 1011.2, Valid: true},
		Precip:     sql.NullFloat64{Float64: 2.5, Valid: true},
	}
	if err := store.InsertObservation(obs); err != nil {
		t.Fatalf("InsertObservation: %v", err)
	}

	// Duplicate timestamps are silently ignored.
	if err := store.InsertObservation(obs); err != nil {
		t.Fatalf("InsertObservation duplicate: %v", err)
	}

	latest, err := store.GetLatestObservation("port-louis")
	if err != nil {
		t.Fatalf("GetLatestObservation: %v", err)
	}
	if latest == nil {
		t.Fatal("GetLatestObservation returned nil")
	}
	if !latest.Temp.Valid || latest.Temp.Float64 != 28.4 {
		t.Errorf("Temp = %+v, want 28.4", latest.Temp)
	}

	history, err := store.GetObservations("port-louis", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetObservations: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(history) = %d, want 1", len(history))
	}
}

func TestGetPrecipTotal(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Hour)
	amounts := []float64{10, 20, 30}
	for i, mm := range amounts {
		obs := models.Observation{
			SiteID:     "port-louis",
			ObservedAt: now.Add(-time.Duration(i) * time.Hour),
			Precip:     sql.NullFloat64{Float64: mm, Valid: true},
		}
		if err := store.InsertObservation(obs); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}
	// Outside the window.
	old := models.Observation{
		SiteID:     "port-louis",
		ObservedAt: now.Add(-48 * time.Hour),
		Precip:     sql.NullFloat64{Float64: 99, Valid: true},
	}
	if err := store.InsertObservation(old); err != nil {
		t.Fatalf("InsertObservation: %v", err)
	}

	total, err := store.GetPrecipTotal("port-louis", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetPrecipTotal: %v", err)
	}
	if total != 60 {
		t.Errorf("total = %f, want 60", total)
	}

	empty, err := store.GetPrecipTotal("unknown", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetPrecipTotal empty: %v", err)
	}
	if empty != 0 {
		t.Errorf("empty total = %f, want 0", empty)
	}
}

func TestMarineObservationsMerge(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	crw := models.MarineObservation{
		SiteID:     "blue-bay",
		ObservedAt: now.Add(-2 * time.Hour),
		Source:     "noaa-crw",
		SST:        sql.NullFloat64{Float64: 29.8, Valid: true},
		SSTAnomaly: sql.NullFloat64{Float64: 1.3, Valid: true},
		DHW:        sql.NullFloat64{Float64: 5.2, Valid: true},
	}
	waves := models.MarineObservation{
		SiteID:     "blue-bay",
		ObservedAt: now,
		Source:     "open-meteo-marine",
		WaveHeight: sql.NullFloat64{Float64: 1.4, Valid: true},
		WavePeriod: sql.NullFloat64{Float64: 9.5, Valid: true},
	}
	for _, obs := range []models.MarineObservation{crw, waves} {
		if err := store.InsertMarineObservation(obs); err != nil {
			t.Fatalf("InsertMarineObservation: %v", err)
		}
	}

	merged, err := store.GetLatestMarineBySite("blue-bay")
	if err != nil {
		t.Fatalf("GetLatestMarineBySite: %v", err)
	}
	if merged == nil {
		t.Fatal("merged is nil")
	}
	if !merged.DHW.Valid || merged.DHW.Float64 != 5.2 {
		t.Errorf("DHW = %+v, want 5.2", merged.DHW)
	}
	if !merged.WaveHeight.Valid || merged.WaveHeight.Float64 != 1.4 {
		t.Errorf("WaveHeight = %+v, want 1.4", merged.WaveHeight)
	}
	if merged.Source != "merged" {
		t.Errorf("Source = %q, want merged", merged.Source)
	}
}

func TestTideReadings(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Hour)
	r := models.TideReading{
		GaugeID:    "port-louis",
		RecordedAt: now,
		SeaLevelMM: 2150,
		AnomalyMM:  sql.NullInt64{Int64: 180, Valid: true},
	}
	if err := store.InsertTideReading(r); err != nil {
		t.Fatalf("InsertTideReading: %v", err)
	}

	// Re-inserting the same hour updates in place.
	r.SeaLevelMM = 2200
	if err := store.InsertTideReading(r); err != nil {
		t.Fatalf("InsertTideReading update: %v", err)
	}

	latest, err := store.GetLatestTideReading("port-louis")
	if err != nil {
		t.Fatalf("GetLatestTideReading: %v", err)
	}
	if latest == nil || latest.SeaLevelMM != 2200 {
		t.Errorf("latest = %+v, want sea level 2200", latest)
	}
}

func TestFishingEffort(t *testing.T) {
	store := setupTestStore(t)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < 3; i++ {
		e := models.FishingEffort{
			Zone:        "west",
			Date:        today.AddDate(0, 0, -i),
			Hours:       float64(30 + 10*i),
			VesselCount: int64(4 + i),
		}
		if err := store.UpsertFishingEffort(e); err != nil {
			t.Fatalf("UpsertFishingEffort: %v", err)
		}
	}

	avg, ok, err := store.GetRecentFishingHours("west", 7)
	if err != nil {
		t.Fatalf("GetRecentFishingHours: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want data")
	}
	if avg != 40 {
		t.Errorf("avg = %f, want 40", avg)
	}

	_, ok, err = store.GetRecentFishingHours("east", 7)
	if err != nil {
		t.Fatalf("GetRecentFishingHours east: %v", err)
	}
	if ok {
		t.Error("ok = true for zone with no data")
	}
}

func TestAdvisoryUpsertAndActive(t *testing.T) {
	store := setupTestStore(t)

	a := advisory.Advisory{
		ID:       "SWIO-2026-03",
		Name:     "BELAL",
		Category: "cyclone",
		Status:   "active",
		Distance: 420,
		GustKPH:  175,
		Severity: advisory.SeverityClassTwo,
	}
	now := time.Now()
	if err := store.UpsertAdvisory(a, now); err != nil {
		t.Fatalf("UpsertAdvisory: %v", err)
	}

	a.Distance = 380
	a.Severity = advisory.SeverityClassThree
	if err := store.UpsertAdvisory(a, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpsertAdvisory update: %v", err)
	}

	active, err := store.GetActiveAdvisories(time.Hour)
	if err != nil {
		t.Fatalf("GetActiveAdvisories: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}
	if active[0].Distance != 380 {
		t.Errorf("Distance = %f, want updated 380", active[0].Distance)
	}

	stale, err := store.GetActiveAdvisories(-time.Hour)
	if err != nil {
		t.Fatalf("GetActiveAdvisories stale: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("len(stale) = %d, want 0", len(stale))
	}
}

func TestRiskHistory(t *testing.T) {
	store := setupTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, level := range []risk.Level{risk.LevelLow, risk.LevelModerate, risk.LevelHigh} {
		rec := RiskRecord{
			SiteID:       "port-louis",
			Hazard:       "flood",
			Level:        level,
			Score:        float64(20 * (i + 1)),
			ModelVersion: risk.ModelVersion,
			ComputedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertRiskAssessment(rec); err != nil {
			t.Fatalf("InsertRiskAssessment: %v", err)
		}
	}
	other := RiskRecord{
		SiteID: "port-louis", Hazard: "cyclone", Level: risk.LevelLow,
		ModelVersion: risk.ModelVersion, ComputedAt: base,
	}
	if err := store.InsertRiskAssessment(other); err != nil {
		t.Fatalf("InsertRiskAssessment: %v", err)
	}

	history, err := store.GetRiskHistory("port-louis", "flood", 10)
	if err != nil {
		t.Fatalf("GetRiskHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[0].Level != risk.LevelHigh {
		t.Errorf("newest Level = %q, want high", history[0].Level)
	}

	all, err := store.GetRiskHistory("port-louis", "", 10)
	if err != nil {
		t.Fatalf("GetRiskHistory all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("len(all) = %d, want 4", len(all))
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	siteID := "port-louis"
	run, err := store.StartIngestRun("open-meteo", "v1/forecast", &siteID)
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("run.ID = 0")
	}

	run.Success = true
	run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	runs, err := store.GetRecentIngestRuns(5)
	if err != nil {
		t.Fatalf("GetRecentIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if !runs[0].Success {
		t.Error("Success = false, want true")
	}
	if !runs[0].FinishedAt.Valid {
		t.Error("FinishedAt not set")
	}
}

func TestRawPayloadDeduplication(t *testing.T) {
	store := setupTestStore(t)

	payload := []byte(`{"current":{"temperature_2m":28.4}}`)
	id, err := store.StoreRawPayload(nil, "open-meteo", "v1/forecast", nil, payload)
	if err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	if id == 0 {
		t.Fatal("id = 0, want stored")
	}

	dup, err := store.StoreRawPayload(nil, "open-meteo", "v1/forecast", nil, payload)
	if err != nil {
		t.Fatalf("StoreRawPayload dup: %v", err)
	}
	if dup != 0 {
		t.Errorf("dup id = %d, want 0 for duplicate", dup)
	}

	p, raw, err := store.GetRawPayload(id)
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if p == nil {
		t.Fatal("payload record is nil")
	}
	if string(raw) != string(payload) {
		t.Errorf("payload = %q, want original round-tripped", raw)
	}
}

func TestDailySummary(t *testing.T) {
	store := setupTestStore(t)

	loc, _ := time.LoadLocation("Indian/Mauritius")
	day := time.Date(2026, 2, 10, 12, 0, 0, 0, loc)

	for hour, temp := range map[int]float64{2: 24.0, 9: 27.5, 14: 31.2} {
		obs := models.Observation{
			SiteID:     "port-louis",
			ObservedAt: time.Date(2026, 2, 10, hour, 0, 0, 0, loc).UTC(),
			Temp:       sql.NullFloat64{Float64: temp, Valid: true},
			Precip:     sql.NullFloat64{Float64: 4, Valid: true},
		}
		if err := store.InsertObservation(obs); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}
	marine := models.MarineObservation{
		SiteID:     "port-louis",
		ObservedAt: time.Date(2026, 2, 10, 10, 0, 0, 0, loc).UTC(),
		Source:     "noaa-crw",
		SST:        sql.NullFloat64{Float64: 29.1, Valid: true},
		DHW:        sql.NullFloat64{Float64: 3.4, Valid: true},
	}
	if err := store.InsertMarineObservation(marine); err != nil {
		t.Fatalf("InsertMarineObservation: %v", err)
	}

	summary, err := store.ComputeDailySummary("port-louis", day)
	if err != nil {
		t.Fatalf("ComputeDailySummary: %v", err)
	}
	if !summary.TempMax.Valid || summary.TempMax.Float64 != 31.2 {
		t.Errorf("TempMax = %+v, want 31.2", summary.TempMax)
	}
	if !summary.PrecipTotal.Valid || summary.PrecipTotal.Float64 != 12 {
		t.Errorf("PrecipTotal = %+v, want 12", summary.PrecipTotal)
	}
	if !summary.DHWMax.Valid || summary.DHWMax.Float64 != 3.4 {
		t.Errorf("DHWMax = %+v, want 3.4", summary.DHWMax)
	}

	if err := store.UpsertDailySummary(*summary); err != nil {
		t.Fatalf("UpsertDailySummary: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version < 1 {
		t.Errorf("MigrationVersion = %d, want >= 1", version)
	}
}

func TestGetObservationDates(t *testing.T) {
	store := setupTestStore(t)

	for _, day := range []int{12, 10, 11} {
		obs := models.Observation{
			SiteID:     "port-louis",
			ObservedAt: time.Date(2026, 2, day, 9, 0, 0, 0, time.UTC),
			Temp:       sql.NullFloat64{Float64: 28, Valid: true},
		}
		if err := store.InsertObservation(obs); err != nil {
			t.Fatalf("InsertObservation: %v", err)
		}
	}

	dates, err := store.GetObservationDates("port-louis")
	if err != nil {
		t.Fatalf("GetObservationDates: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3", len(dates))
	}
	if dates[0].Day() != 10 || dates[2].Day() != 12 {
		t.Errorf("dates not ordered oldest first: %v", dates)
	}
}
