package store

import (
	"database/sql"
	"time"

	"github.com/jlucien/lagoonwatch/internal/models"
)

func (s *Store) InsertMarineObservation(obs models.MarineObservation) error {
	_, err := s.db.Exec(`
		INSERT INTO marine_observations (site_id, observed_at, source, sst, sst_anomaly, dhw, wave_height, wave_period, chlorophyll, kd490, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, observed_at, source) DO NOTHING
	`, obs.SiteID, obs.ObservedAt, obs.Source, obs.SST, obs.SSTAnomaly, obs.DHW, obs.WaveHeight, obs.WavePeriod, obs.Chlorophyll, obs.Kd490, obs.RawJSON)
	return err
}

func (s *Store) GetLatestMarineObservation(siteID, source string) (*models.MarineObservation, error) {
	row := s.db.QueryRow(`
		SELECT id, site_id, observed_at, source, sst, sst_anomaly, dhw, wave_height, wave_period, chlorophyll, kd490, raw_json, created_at
		FROM marine_observations
		WHERE site_id = ? AND source = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, siteID, source)

	var obs models.MarineObservation
	err := row.Scan(&obs.ID, &obs.SiteID, &obs.ObservedAt, &obs.Source, &obs.SST, &obs.SSTAnomaly, &obs.DHW, &obs.WaveHeight, &obs.WavePeriod, &obs.Chlorophyll, &obs.Kd490, &obs.RawJSON, &obs.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

// GetLatestMarineBySite merges the newest reading from each marine source
// into a single view: CRW wins for thermal fields, the wave model for sea
// state, ocean colour for water quality.
func (s *Store) GetLatestMarineBySite(siteID string) (*models.MarineObservation, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.site_id, m.observed_at, m.source, m.sst, m.sst_anomaly, m.dhw, m.wave_height, m.wave_period, m.chlorophyll, m.kd490, m.raw_json, m.created_at
		FROM marine_observations m
		INNER JOIN (
			SELECT source, MAX(observed_at) AS latest
			FROM marine_observations
			WHERE site_id = ?
			GROUP BY source
		) newest ON m.source = newest.source AND m.observed_at = newest.latest
		WHERE m.site_id = ?
	`, siteID, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merged *models.MarineObservation
	for rows.Next() {
		var obs models.MarineObservation
		if err := rows.Scan(&obs.ID, &obs.SiteID, &obs.ObservedAt, &obs.Source, &obs.SST, &obs.SSTAnomaly, &obs.DHW, &obs.WaveHeight, &obs.WavePeriod, &obs.Chlorophyll, &obs.Kd490, &obs.RawJSON, &obs.CreatedAt); err != nil {
			return nil, err
		}
		if merged == nil {
			o := obs
			merged = &o
			continue
		}
		if obs.SST.Valid {
			merged.SST = obs.SST
		}
		if obs.SSTAnomaly.Valid {
			merged.SSTAnomaly = obs.SSTAnomaly
		}
		if obs.DHW.Valid {
			merged.DHW = obs.DHW
		}
		if obs.WaveHeight.Valid {
			merged.WaveHeight = obs.WaveHeight
		}
		if obs.WavePeriod.Valid {
			merged.WavePeriod = obs.WavePeriod
		}
		if obs.Chlorophyll.Valid {
			merged.Chlorophyll = obs.Chlorophyll
		}
		if obs.Kd490.Valid {
			merged.Kd490 = obs.Kd490
		}
		if obs.ObservedAt.After(merged.ObservedAt) {
			merged.ObservedAt = obs.ObservedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if merged != nil {
		merged.Source = "merged"
	}
	return merged, nil
}

func (s *Store) GetMarineObservations(siteID string, start, end time.Time) ([]models.MarineObservation, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, observed_at, source, sst, sst_anomaly, dhw, wave_height, wave_period, chlorophyll, kd490, raw_json, created_at
		FROM marine_observations
		WHERE site_id = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`, siteID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.MarineObservation
	for rows.Next() {
		var obs models.MarineObservation
		if err := rows.Scan(&obs.ID, &obs.SiteID, &obs.ObservedAt, &obs.Source, &obs.SST, &obs.SSTAnomaly, &obs.DHW, &obs.WaveHeight, &obs.WavePeriod, &obs.Chlorophyll, &obs.Kd490, &obs.RawJSON, &obs.CreatedAt); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func (s *Store) InsertTideReading(r models.TideReading) error {
	_, err := s.db.Exec(`
		INSERT INTO tide_readings (gauge_id, recorded_at, sea_level_mm, anomaly_mm)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(gauge_id, recorded_at) DO UPDATE SET
			sea_level_mm = excluded.sea_level_mm,
			anomaly_mm = excluded.anomaly_mm
	`, r.GaugeID, r.RecordedAt, r.SeaLevelMM, r.AnomalyMM)
	return err
}

func (s *Store) GetLatestTideReading(gaugeID string) (*models.TideReading, error) {
	row := s.db.QueryRow(`
		SELECT id, gauge_id, recorded_at, sea_level_mm, anomaly_mm, created_at
		FROM tide_readings
		WHERE gauge_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, gaugeID)

	var r models.TideReading
	err := row.Scan(&r.ID, &r.GaugeID, &r.RecordedAt, &r.SeaLevelMM, &r.AnomalyMM, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetTideReadings(gaugeID string, start, end time.Time) ([]models.TideReading, error) {
	rows, err := s.db.Query(`
		SELECT id, gauge_id, recorded_at, sea_level_mm, anomaly_mm, created_at
		FROM tide_readings
		WHERE gauge_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC
	`, gaugeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.TideReading
	for rows.Next() {
		var r models.TideReading
		if err := rows.Scan(&r.ID, &r.GaugeID, &r.RecordedAt, &r.SeaLevelMM, &r.AnomalyMM, &r.CreatedAt); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) UpsertFishingEffort(e models.FishingEffort) error {
	_, err := s.db.Exec(`
		INSERT INTO fishing_effort (zone, date, hours, vessel_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(zone, date) DO UPDATE SET
			hours = excluded.hours,
			vessel_count = excluded.vessel_count
	`, e.Zone, e.Date, e.Hours, e.VesselCount)
	return err
}

// GetRecentFishingHours averages daily apparent fishing hours in a zone over
// a trailing window.
func (s *Store) GetRecentFishingHours(zone string, days int) (float64, bool, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var avg sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT AVG(hours)
		FROM fishing_effort
		WHERE zone = ? AND date >= ?
	`, zone, cutoff).Scan(&avg)
	if err != nil {
		return 0, false, err
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}
