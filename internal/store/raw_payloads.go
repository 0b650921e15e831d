package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// RawPayload represents a stored API response payload.
type RawPayload struct {
	ID                int64
	IngestRunID       sql.NullInt64
	FetchedAt         time.Time
	Source            string
	Endpoint          string
	SiteID            sql.NullString
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// StoreRawPayload stores a compressed API response payload.
// Returns the payload ID, or 0 if the payload was a duplicate (same hash).
func (s *Store) StoreRawPayload(runID *int64, source, endpoint string, siteID *string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}
	compressed := buf.Bytes()

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_payloads WHERE payload_hash = ?`, hashHex).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, nil
	}

	var ingestRunID sql.NullInt64
	if runID != nil {
		ingestRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}
	var site sql.NullString
	if siteID != nil {
		site = sql.NullString{String: *siteID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads (ingest_run_id, fetched_at, source, endpoint, site_id, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`, ingestRunID, time.Now().UTC(), source, endpoint, site, compressed, hashHex)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRawPayload retrieves and decompresses a stored payload.
func (s *Store) GetRawPayload(id int64) (*RawPayload, []byte, error) {
	var p RawPayload
	err := s.db.QueryRow(`
		SELECT id, ingest_run_id, fetched_at, source, endpoint, site_id, payload_compressed, payload_hash, schema_version
		FROM raw_payloads WHERE id = ?
	`, id).Scan(&p.ID, &p.IngestRunID, &p.FetchedAt, &p.Source, &p.Endpoint, &p.SiteID, &p.PayloadCompressed, &p.PayloadHash, &p.SchemaVersion)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(p.PayloadCompressed))
	if err != nil {
		return nil, nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress payload: %w", err)
	}
	return &p, payload, nil
}
