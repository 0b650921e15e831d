package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS sites (
    site_id TEXT PRIMARY KEY,
    name TEXT,
    latitude REAL,
    longitude REAL,
    zone TEXT,
    site_type TEXT,
    is_primary BOOLEAN DEFAULT FALSE,
    active BOOLEAN DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    temp REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_gust REAL,
    wind_dir INTEGER,
    precip REAL,
    cloud_cover INTEGER,
    qc_flags TEXT DEFAULT '',
    raw_json TEXT DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(site_id, observed_at)
);

CREATE INDEX IF NOT EXISTS idx_obs_site_time ON observations(site_id, observed_at);

CREATE TABLE IF NOT EXISTS marine_observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    source TEXT NOT NULL,
    sst REAL,
    sst_anomaly REAL,
    dhw REAL,
    wave_height REAL,
    wave_period REAL,
    chlorophyll REAL,
    kd490 REAL,
    raw_json TEXT DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(site_id, observed_at, source)
);

CREATE INDEX IF NOT EXISTS idx_marine_site_time ON marine_observations(site_id, observed_at);

CREATE TABLE IF NOT EXISTS forecasts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'open-meteo',
    fetched_at DATETIME NOT NULL,
    valid_date DATE NOT NULL,
    day_of_forecast INTEGER,
    temp_max REAL,
    temp_min REAL,
    precip_sum REAL,
    precip_prob INTEGER,
    wind_speed_max REAL,
    wind_gust_max REAL,
    raw_json TEXT DEFAULT '',
    UNIQUE(site_id, source, fetched_at, valid_date)
);
`,
	},
	{
		Version:     2,
		Description: "Tide readings and fishing effort",
		SQL: `
CREATE TABLE IF NOT EXISTS tide_readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    gauge_id TEXT NOT NULL,
    recorded_at DATETIME NOT NULL,
    sea_level_mm INTEGER NOT NULL,
    anomaly_mm INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(gauge_id, recorded_at)
);

CREATE INDEX IF NOT EXISTS idx_tide_gauge_time ON tide_readings(gauge_id, recorded_at);

CREATE TABLE IF NOT EXISTS fishing_effort (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    zone TEXT NOT NULL,
    date DATE NOT NULL,
    hours REAL NOT NULL,
    vessel_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(zone, date)
);
`,
	},
	{
		Version:     3,
		Description: "Cyclone advisories",
		SQL: `
CREATE TABLE IF NOT EXISTS cyclone_advisories (
    id TEXT PRIMARY KEY,
    name TEXT,
    category TEXT,
    status TEXT,
    basin_id TEXT,
    lat REAL,
    lon REAL,
    distance_km REAL,
    wind_kph REAL,
    gust_kph REAL,
    pressure_hpa REAL,
    severity INTEGER,
    headline TEXT,
    body TEXT,
    first_seen_at DATETIME,
    last_seen_at DATETIME,
    issued_at DATETIME,
    updated_at DATETIME
);
`,
	},
	{
		Version:     4,
		Description: "Risk assessment history",
		SQL: `
CREATE TABLE IF NOT EXISTS risk_assessments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id TEXT NOT NULL,
    hazard TEXT NOT NULL,
    level TEXT NOT NULL,
    score REAL NOT NULL,
    model_version TEXT NOT NULL,
    details_json TEXT DEFAULT '',
    computed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_risk_site_hazard_time ON risk_assessments(site_id, hazard, computed_at);
`,
	},
	{
		Version:     5,
		Description: "Ingest audit trail and raw payload archive",
		SQL: `
CREATE TABLE IF NOT EXISTS ingest_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    source TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    site_id TEXT,
    http_status INTEGER,
    response_size_bytes INTEGER,
    records_parsed INTEGER,
    records_stored INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS raw_payloads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ingest_run_id INTEGER,
    fetched_at DATETIME NOT NULL,
    source TEXT NOT NULL,
    endpoint TEXT NOT NULL,
    site_id TEXT,
    payload_compressed BLOB NOT NULL,
    payload_hash TEXT NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_raw_payloads_hash ON raw_payloads(payload_hash);
`,
	},
	{
		Version:     6,
		Description: "Daily summaries",
		SQL: `
CREATE TABLE IF NOT EXISTS daily_summaries (
    date DATE NOT NULL,
    site_id TEXT NOT NULL,
    temp_max REAL,
    temp_min REAL,
    precip_total REAL,
    wind_max_gust REAL,
    pressure_min REAL,
    sst_max REAL,
    dhw_max REAL,
    PRIMARY KEY (date, site_id)
);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
