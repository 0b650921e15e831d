package ingest

import (
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

const gfwBaseURL = "https://gateway.api.globalfishingwatch.org/v3/4wings/report"

// Bounding boxes for the monitored fishing zones around Mauritius and
// Rodrigues. Coordinates are minLon, minLat, maxLon, maxLat.
var zoneBounds = map[string][4]float64{
	"north":     {57.3, -20.1, 57.9, -19.7},
	"west":      {57.0, -20.6, 57.5, -20.0},
	"east":      {57.6, -20.5, 58.1, -19.9},
	"south":     {57.2, -20.9, 57.9, -20.4},
	"rodrigues": {63.1, -20.0, 63.7, -19.4},
}

// GFWClient fetches apparent fishing effort from the Global Fishing Watch
// 4Wings report API. Requires an API token; a nil client means fishing
// pressure is simply absent from the ocean health index.
type GFWClient struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewGFWClient returns nil if no token is configured.
func NewGFWClient(token string) *GFWClient {
	if token == "" {
		return nil
	}
	return &GFWClient{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: gfwBaseURL,
		token:   token,
	}
}

// SetBaseURL overrides the provider endpoint, for tests.
func (c *GFWClient) SetBaseURL(u string) {
	c.baseURL = u
}

type gfwReportResponse struct {
	Entries []struct {
		Date    string  `json:"date"`
		Hours   float64 `json:"hours"`
		Vessels int64   `json:"vesselIDs"`
	} `json:"entries"`
}

// FetchEffort retrieves daily apparent fishing hours for a zone over the
// trailing window.
func (c *GFWClient) FetchEffort(zone string, days int) ([]models.FishingEffort, string, error) {
	bounds, ok := zoneBounds[zone]
	if !ok {
		return nil, "", fmt.Errorf("unknown fishing zone %q", zone)
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	q := url.Values{}
	q.Set("datasets[0]", "public-global-fishing-effort:latest")
	q.Set("date-range", start.Format("2006-01-02")+","+end.Format("2006-01-02"))
	q.Set("temporal-resolution", "DAILY")
	q.Set("format", "JSON")
	q.Set("region", fmt.Sprintf("%f,%f,%f,%f", bounds[0], bounds[1], bounds[2], bounds[3]))

	body, err := c.fetch("4wings-report", c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, "", err
	}

	var data gfwReportResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", fmt.Errorf("unmarshal: %w", err)
	}

	var efforts []models.FishingEffort
	for _, e := range data.Entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			continue
		}
		efforts = append(efforts, models.FishingEffort{
			Zone:        zone,
			Date:        date,
			Hours:       e.Hours,
			VesselCount: e.Vessels,
		})
	}

	return efforts, string(body), nil
}

func (c *GFWClient) fetch(endpoint, u string) ([]byte, error) {
	var body []byte
	start := time.Now()
	operation := func() error {
		req, err := http.NewRequest("GET", u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", endpoint, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
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
	bo.MaxElapsedTime = 2 * time.Minute
	err := backoff.Retry(operation, bo)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProviderAPICallsTotal.WithLabelValues("gfw", endpoint, status).Inc()
	metrics.ProviderAPILatency.WithLabelValues("gfw", endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}
