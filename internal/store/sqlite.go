package store

import (
	"database/sql"
	"time"

	"github.com/jlucien/lagoonwatch/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

func (s *Store) UpsertSite(site models.Site) error {
	_, err := s.db.Exec(`
		INSERT INTO sites (site_id, name, latitude, longitude, zone, site_type, is_primary, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id) DO UPDATE SET
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			zone = excluded.zone,
			site_type = excluded.site_type,
			is_primary = excluded.is_primary,
			active = excluded.active
	`, site.SiteID, site.Name, site.Latitude, site.Longitude, site.Zone, site.SiteType, site.IsPrimary, site.Active)
	return err
}

func (s *Store) GetActiveSites() ([]models.Site, error) {
	rows, err := s.db.Query(`SELECT site_id, name, latitude, longitude, zone, site_type, is_primary, active FROM sites WHERE active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.SiteID, &site.Name, &site.Latitude, &site.Longitude, &site.Zone, &site.SiteType, &site.IsPrimary, &site.Active); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *Store) GetSite(siteID string) (*models.Site, error) {
	row := s.db.QueryRow(`SELECT site_id, name, latitude, longitude, zone, site_type, is_primary, active FROM sites WHERE site_id = ?`, siteID)

	var site models.Site
	err := row.Scan(&site.SiteID, &site.Name, &site.Latitude, &site.Longitude, &site.Zone, &site.SiteType, &site.IsPrimary, &site.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Store) GetPrimarySite() (*models.Site, error) {
	row := s.db.QueryRow(`SELECT site_id, name, latitude, longitude, zone, site_type, is_primary, active FROM sites WHERE is_primary = TRUE LIMIT 1`)

	var site models.Site
	err := row.Scan(&site.SiteID, &site.Name, &site.Latitude, &site.Longitude, &site.Zone, &site.SiteType, &site.IsPrimary, &site.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Store) InsertObservation(obs models.Observation) error {
	_, err := s.db.Exec(`
		INSERT INTO observations (site_id, observed_at, temp, humidity, pressure, wind_speed, wind_gust, wind_dir, precip, cloud_cover, qc_flags, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, observed_at) DO NOTHING
	`, obs.SiteID, obs.ObservedAt, obs.Temp, obs.Humidity, obs.Pressure, obs.WindSpeed, obs.WindGust, obs.WindDir, obs.Precip, obs.CloudCover, obs.QCFlags, obs.RawJSON)
	return err
}

func (s *Store) GetLatestObservation(siteID string) (*models.Observation, error) {
	row := s.db.QueryRow(`
		SELECT id, site_id, observed_at, temp, humidity, pressure, wind_speed, wind_gust, wind_dir, precip, cloud_cover, qc_flags, raw_json, created_at
		FROM observations
		WHERE site_id = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, siteID)

	var obs models.Observation
	err := row.Scan(&obs.ID, &obs.SiteID, &obs.ObservedAt, &obs.Temp, &obs.Humidity, &obs.Pressure, &obs.WindSpeed, &obs.WindGust, &obs.WindDir, &obs.Precip, &obs.CloudCover, &obs.QCFlags, &obs.RawJSON, &obs.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func (s *Store) GetObservations(siteID string, start, end time.Time) ([]models.Observation, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, observed_at, temp, humidity, pressure, wind_speed, wind_gust, wind_dir, precip, cloud_cover, qc_flags, raw_json, created_at
		FROM observations
		WHERE site_id = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`, siteID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.Observation
	for rows.Next() {
		var obs models.Observation
		if err := rows.Scan(&obs.ID, &obs.SiteID, &obs.ObservedAt, &obs.Temp, &obs.Humidity, &obs.Pressure, &obs.WindSpeed, &obs.WindGust, &obs.WindDir, &obs.Precip, &obs.CloudCover, &obs.QCFlags, &obs.RawJSON, &obs.CreatedAt); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// GetPrecipTotal sums precipitation for a site over a trailing window.
func (s *Store) GetPrecipTotal(siteID string, since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT SUM(precip)
		FROM observations
		WHERE site_id = ? AND observed_at >= ? AND precip IS NOT NULL
	`, siteID, since).Scan(&total)
	if err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}

func (s *Store) InsertForecast(f models.Forecast) error {
	source := f.Source
	if source == "" {
		source = "open-meteo"
	}
	_, err := s.db.Exec(`
		INSERT INTO forecasts (site_id, source, fetched_at, valid_date, day_of_forecast, temp_max, temp_min, precip_sum, precip_prob, wind_speed_max, wind_gust_max, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, source, fetched_at, valid_date) DO NOTHING
	`, f.SiteID, source, f.FetchedAt, f.ValidDate, f.DayOfForecast, f.TempMax, f.TempMin, f.PrecipSum, f.PrecipProb, f.WindSpeedMax, f.WindGustMax, f.RawJSON)
	return err
}

// GetLatestForecasts returns the most recently fetched forecast set for a
// site, one row per valid date.
func (s *Store) GetLatestForecasts(siteID string) ([]models.Forecast, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, source, fetched_at, valid_date, day_of_forecast, temp_max, temp_min, precip_sum, precip_prob, wind_speed_max, wind_gust_max, raw_json
		FROM forecasts
		WHERE site_id = ? AND fetched_at = (SELECT MAX(fetched_at) FROM forecasts WHERE site_id = ?)
		ORDER BY valid_date ASC
	`, siteID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []models.Forecast
	for rows.Next() {
		var f models.Forecast
		if err := rows.Scan(&f.ID, &f.SiteID, &f.Source, &f.FetchedAt, &f.ValidDate, &f.DayOfForecast, &f.TempMax, &f.TempMin, &f.PrecipSum, &f.PrecipProb, &f.WindSpeedMax, &f.WindGustMax, &f.RawJSON); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}

// GetTodayStats returns aggregates for the local calendar day.
func (s *Store) GetTodayStats(siteID string, day time.Time) (tempMin, tempMax, precipTotal, maxGust sql.NullFloat64, err error) {
	local := day.In(s.loc)
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc).UTC()
	dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc).UTC()

	err = s.db.QueryRow(`
		SELECT MIN(temp), MAX(temp), SUM(precip), MAX(wind_gust)
		FROM observations
		WHERE site_id = ? AND observed_at >= ? AND observed_at < ?
	`, siteID, dayStart, dayEnd).Scan(&tempMin, &tempMax, &precipTotal, &maxGust)
	return
}

func (s *Store) UpsertDailySummary(summary models.DailySummary) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_summaries (date, site_id, temp_max, temp_min, precip_total, wind_max_gust, pressure_min, sst_max, dhw_max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, site_id) DO UPDATE SET
			temp_max = excluded.temp_max,
			temp_min = excluded.temp_min,
			precip_total = excluded.precip_total,
			wind_max_gust = excluded.wind_max_gust,
			pressure_min = excluded.pressure_min,
			sst_max = excluded.sst_max,
			dhw_max = excluded.dhw_max
	`, summary.Date, summary.SiteID, summary.TempMax, summary.TempMin, summary.PrecipTotal, summary.WindMaxGust, summary.PressureMin, summary.SSTMax, summary.DHWMax)
	return err
}

// ComputeDailySummary aggregates a local calendar day of weather and marine
// observations for a site.
func (s *Store) ComputeDailySummary(siteID string, date time.Time) (*models.DailySummary, error) {
	local := date.In(s.loc)
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc).UTC()
	dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc).UTC()

	summary := models.DailySummary{
		Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		SiteID: siteID,
	}

	err := s.db.QueryRow(`
		SELECT MAX(temp), MIN(temp), SUM(precip), MAX(wind_gust), MIN(pressure)
		FROM observations
		WHERE site_id = ? AND observed_at >= ? AND observed_at < ?
	`, siteID, dayStart, dayEnd).Scan(&summary.TempMax, &summary.TempMin, &summary.PrecipTotal, &summary.WindMaxGust, &summary.PressureMin)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
		SELECT MAX(sst), MAX(dhw)
		FROM marine_observations
		WHERE site_id = ? AND observed_at >= ? AND observed_at < ?
	`, siteID, dayStart, dayEnd).Scan(&summary.SSTMax, &summary.DHWMax)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return &summary, nil
}

// GetObservationDates returns the distinct local calendar dates that have
// observations for a site, oldest first.
func (s *Store) GetObservationDates(siteID string) ([]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT date(observed_at) FROM observations
		WHERE site_id = ?
		ORDER BY date(observed_at) ASC
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}
