package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jlucien/lagoonwatch/internal/metrics"
	"github.com/jlucien/lagoonwatch/internal/models"
)

const (
	erddapBaseURL = "https://coastwatch.pfeg.noaa.gov/erddap/griddap"

	// NOAA Coral Reef Watch 5km daily product.
	crwDataset = "NOAA_DHW"

	// ESA OC-CCI ocean colour (chlorophyll-a and Kd490).
	oceanColourDataset = "pmlEsaCCI60OceanColorDaily"
)

// ERDDAPClient reads gridded satellite products from a NOAA ERDDAP server
// using the JSON table response format.
type ERDDAPClient struct {
	client  *http.Client
	baseURL string
}

func NewERDDAPClient() *ERDDAPClient {
	return &ERDDAPClient{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: erddapBaseURL,
	}
}

// SetBaseURL overrides the ERDDAP endpoint, for tests.
func (c *ERDDAPClient) SetBaseURL(u string) {
	c.baseURL = u
}

// erddapTable is the ERDDAP .json response envelope.
type erddapTable struct {
	Table struct {
		ColumnNames []string        `json:"columnNames"`
		Rows        [][]interface{} `json:"rows"`
	} `json:"table"`
}

// FetchCoralReefWatch retrieves the latest SST, anomaly and DHW cell values
// for a site from the CRW 5km product.
func (c *ERDDAPClient) FetchCoralReefWatch(site models.Site) (*models.MarineObservation, string, error) {
	query := fmt.Sprintf(
		"CRW_SST%[1]s,CRW_SSTANOMALY%[1]s,CRW_DHW%[1]s",
		fmt.Sprintf("[(last)][(%.3f)][(%.3f)]", site.Latitude, site.Longitude),
	)
	u := fmt.Sprintf("%s/%s.json?%s", c.baseURL, crwDataset, url.PathEscape(query))

	body, err := c.fetch("coral-reef-watch", u)
	if err != nil {
		return nil, "", err
	}

	table, err := parseERDDAPTable(body)
	if err != nil {
		return nil, "", err
	}

	obs := &models.MarineObservation{
		SiteID: site.SiteID,
		Source: "noaa-crw",
	}
	observedAt, ok := table.timeValue("time")
	if !ok {
		return nil, "", fmt.Errorf("crw response missing time column")
	}
	obs.ObservedAt = observedAt
	if v, ok := table.floatValue("CRW_SST"); ok {
		obs.SST = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := table.floatValue("CRW_SSTANOMALY"); ok {
		obs.SSTAnomaly = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := table.floatValue("CRW_DHW"); ok {
		obs.DHW = sql.NullFloat64{Float64: v, Valid: true}
	}

	return obs, string(body), nil
}

// FetchOceanColour retrieves chlorophyll-a and Kd490 for a site.
func (c *ERDDAPClient) FetchOceanColour(site models.Site) (*models.MarineObservation, string, error) {
	query := fmt.Sprintf(
		"chlor_a%[1]s,kd_490%[1]s",
		fmt.Sprintf("[(last)][(%.3f)][(%.3f)]", site.Latitude, site.Longitude),
	)
	u := fmt.Sprintf("%s/%s.json?%s", c.baseURL, oceanColourDataset, url.PathEscape(query))

	body, err := c.fetch("ocean-colour", u)
	if err != nil {
		return nil, "", err
	}

	table, err := parseERDDAPTable(body)
	if err != nil {
		return nil, "", err
	}

	obs := &models.MarineObservation{
		SiteID: site.SiteID,
		Source: "noaa-oc",
	}
	observedAt, ok := table.timeValue("time")
	if !ok {
		return nil, "", fmt.Errorf("ocean colour response missing time column")
	}
	obs.ObservedAt = observedAt
	if v, ok := table.floatValue("chlor_a"); ok {
		obs.Chlorophyll = sql.NullFloat64{Float64: v, Valid: true}
	}
	if v, ok := table.floatValue("kd_490"); ok {
		obs.Kd490 = sql.NullFloat64{Float64: v, Valid: true}
	}

	return obs, string(body), nil
}

func (c *ERDDAPClient) fetch(endpoint, u string) ([]byte, error) {
	var body []byte
	start := time.Now()
	operation := func() error {
		resp, err := c.client.Get(u)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
		}
		defer resp.Body.Close()

		// ERDDAP returns 503 while regridding recent passes.
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("server busy: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 3 * time.Minute
	err := backoff.Retry(operation, bo)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProviderAPICallsTotal.WithLabelValues("noaa-erddap", endpoint, status).Inc()
	metrics.ProviderAPILatency.WithLabelValues("noaa-erddap", endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}

// parsedTable is a single-row view over an ERDDAP JSON table, which is how
// point extractions come back.
type parsedTable struct {
	columns map[string]int
	row     []interface{}
}

func parseERDDAPTable(body []byte) (*parsedTable, error) {
	var t erddapTable
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("unmarshal erddap table: %w", err)
	}
	if len(t.Table.Rows) == 0 {
		return nil, fmt.Errorf("erddap table has no rows")
	}

	columns := make(map[string]int, len(t.Table.ColumnNames))
	for i, name := range t.Table.ColumnNames {
		columns[name] = i
	}
	// Point extractions return one row; take the last in case the grid
	// stride produced several.
	return &parsedTable{columns: columns, row: t.Table.Rows[len(t.Table.Rows)-1]}, nil
}

func (t *parsedTable) floatValue(column string) (float64, bool) {
	i, ok := t.columns[column]
	if !ok || i >= len(t.row) {
		return 0, false
	}
	v, ok := t.row[i].(float64)
	if !ok {
		return 0, false
	}
	return v, true
}

func (t *parsedTable) timeValue(column string) (time.Time, bool) {
	i, ok := t.columns[column]
	if !ok || i >= len(t.row) {
		return time.Time{}, false
	}
	s, ok := t.row[i].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
