package store

import (
	"time"

	"github.com/jlucien/lagoonwatch/internal/advisory"
)

// UpsertAdvisory inserts or updates a cyclone advisory. last_seen_at tracks
// whether a system is still present in the feed.
func (s *Store) UpsertAdvisory(a advisory.Advisory, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO cyclone_advisories (
			id, name, category, status, basin_id, lat, lon, distance_km,
			wind_kph, gust_kph, pressure_hpa, severity, headline, body,
			first_seen_at, last_seen_at, issued_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			lat = excluded.lat,
			lon = excluded.lon,
			distance_km = excluded.distance_km,
			wind_kph = excluded.wind_kph,
			gust_kph = excluded.gust_kph,
			pressure_hpa = excluded.pressure_hpa,
			severity = excluded.severity,
			headline = excluded.headline,
			body = excluded.body,
			last_seen_at = excluded.last_seen_at,
			updated_at = excluded.updated_at
	`,
		a.ID, a.Name, a.Category, a.Status, a.BasinID, a.Lat, a.Lon, a.Distance,
		a.WindKPH, a.GustKPH, a.PressureHPA, a.Severity, a.Headline, a.Body,
		now, now, a.Issued, a.Updated,
	)
	return err
}

// GetActiveAdvisories returns advisories seen within the given duration,
// most urgent first.
func (s *Store) GetActiveAdvisories(maxAge time.Duration) ([]advisory.Advisory, error) {
	cutoff := time.Now().Add(-maxAge)

	rows, err := s.db.Query(`
		SELECT id, name, category, status, basin_id, lat, lon, distance_km,
		       wind_kph, gust_kph, pressure_hpa, severity, headline, body,
		       issued_at, updated_at
		FROM cyclone_advisories
		WHERE last_seen_at > ?
		ORDER BY severity ASC, distance_km ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var advisories []advisory.Advisory
	for rows.Next() {
		var a advisory.Advisory
		var issued, updated *time.Time
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Category, &a.Status, &a.BasinID, &a.Lat, &a.Lon, &a.Distance,
			&a.WindKPH, &a.GustKPH, &a.PressureHPA, &a.Severity, &a.Headline, &a.Body,
			&issued, &updated,
		); err != nil {
			return nil, err
		}
		if issued != nil {
			a.Issued = *issued
		}
		if updated != nil {
			a.Updated = *updated
		}
		advisories = append(advisories, a)
	}
	return advisories, rows.Err()
}
