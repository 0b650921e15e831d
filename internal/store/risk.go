package store

import (
	"time"

	"github.com/jlucien/lagoonwatch/internal/risk"
)

// RiskRecord is a persisted risk assessment for trend queries.
type RiskRecord struct {
	ID           int64      `json:"id"`
	SiteID       string     `json:"site_id"`
	Hazard       string     `json:"hazard"`
	Level        risk.Level `json:"level"`
	Score        float64    `json:"score"`
	ModelVersion string     `json:"model_version"`
	DetailsJSON  string     `json:"details,omitempty"`
	ComputedAt   time.Time  `json:"computed_at"`
}

func (s *Store) InsertRiskAssessment(r RiskRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO risk_assessments (site_id, hazard, level, score, model_version, details_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.SiteID, r.Hazard, string(r.Level), r.Score, r.ModelVersion, r.DetailsJSON, r.ComputedAt)
	return err
}

// GetRiskHistory returns assessments for a site and hazard, newest first.
// An empty hazard matches all hazards.
func (s *Store) GetRiskHistory(siteID, hazard string, limit int) ([]RiskRecord, error) {
	query := `
		SELECT id, site_id, hazard, level, score, model_version, details_json, computed_at
		FROM risk_assessments
		WHERE site_id = ?`
	args := []any{siteID}
	if hazard != "" {
		query += ` AND hazard = ?`
		args = append(args, hazard)
	}
	query += ` ORDER BY computed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RiskRecord
	for rows.Next() {
		var r RiskRecord
		var level string
		if err := rows.Scan(&r.ID, &r.SiteID, &r.Hazard, &level, &r.Score, &r.ModelVersion, &r.DetailsJSON, &r.ComputedAt); err != nil {
			return nil, err
		}
		r.Level = risk.Level(level)
		records = append(records, r)
	}
	return records, rows.Err()
}
