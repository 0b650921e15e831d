package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jlucien/lagoonwatch/internal/httputil"
)

const (
	// Aggregated south-west Indian Ocean cyclone feed (RSMC La Reunion
	// advisories republished as GeoJSON).
	defaultFeedURL = "https://api.meteo.mu/v1/cyclone/advisories-geojson.json"

	// Systems beyond this range have no practical bearing on local risk.
	DefaultRadiusKM = 2000.0
)

// Client fetches and filters tropical-cyclone advisories.
type Client struct {
	httpClient *http.Client
	feedURL    string
	centerLat  float64
	centerLon  float64
	radiusKM   float64

	mu        sync.RWMutex
	cached    []Advisory
	lastFetch time.Time
}

// NewClient creates an advisory client centered on a reference point,
// normally Port Louis.
func NewClient(feedURL string, lat, lon, radiusKM float64) *Client {
	if feedURL == "" {
		feedURL = defaultFeedURL
	}
	return &Client{
		httpClient: httputil.NewClient(),
		feedURL:    feedURL,
		centerLat:  lat,
		centerLon:  lon,
		radiusKM:   radiusKM,
	}
}

// Advisories returns cached advisories, fetching fresh data if stale.
func (c *Client) Advisories(ctx context.Context) ([]Advisory, error) {
	c.mu.RLock()
	if time.Since(c.lastFetch) < 5*time.Minute && c.cached != nil {
		advisories := c.cached
		c.mu.RUnlock()
		return advisories, nil
	}
	c.mu.RUnlock()

	return c.Fetch(ctx)
}

// Fetch retrieves fresh advisories from the feed.
func (c *Client) Fetch(ctx context.Context) ([]Advisory, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "LagoonWatch/1.0 (climate risk monitor for Mauritius)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch advisories: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var geoJSON GeoJSON
	if err := json.NewDecoder(resp.Body).Decode(&geoJSON); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	advisories := c.filterAdvisories(geoJSON.Features)

	c.mu.Lock()
	c.cached = advisories
	c.lastFetch = time.Now()
	c.mu.Unlock()

	return advisories, nil
}

func (c *Client) filterAdvisories(features []Feature) []Advisory {
	var advisories []Advisory

	for _, f := range features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		lon := f.Geometry.Coordinates[0]
		lat := f.Geometry.Coordinates[1]

		dist := haversineKM(c.centerLat, c.centerLon, lat, lon)
		if dist > c.radiusKM {
			continue
		}

		a := Advisory{
			ID:          f.Properties.ID,
			Name:        f.Properties.Name,
			Category:    f.Properties.Category,
			Status:      f.Properties.Status,
			BasinID:     f.Properties.Basin,
			Lat:         lat,
			Lon:         lon,
			Distance:    dist,
			WindKPH:     f.Properties.WindKPH,
			GustKPH:     f.Properties.GustKPH,
			PressureHPA: f.Properties.PressureHPA,
			Headline:    f.Properties.Headline,
			Body:        f.Properties.Description,
			Severity:    severityFor(f.Properties.GustKPH, dist),
		}
		if t, err := time.Parse(time.RFC3339, f.Properties.IssuedAt); err == nil {
			a.Issued = t
		}
		if t, err := time.Parse(time.RFC3339, f.Properties.UpdatedAt); err == nil {
			a.Updated = t
		}

		advisories = append(advisories, a)
	}

	// Most urgent first, nearest breaking ties.
	sort.Slice(advisories, func(i, j int) bool {
		if advisories[i].Severity != advisories[j].Severity {
			return advisories[i].Severity < advisories[j].Severity
		}
		return advisories[i].Distance < advisories[j].Distance
	})

	return advisories
}

// severityFor maps gust strength and distance onto the warning-class ordering.
func severityFor(gustKPH, distKM float64) int {
	switch {
	case gustKPH >= 120 && distKM <= 200:
		return SeverityClassFour
	case gustKPH >= 120 && distKM <= 400:
		return SeverityClassThree
	case distKM <= 400:
		return SeverityClassTwo
	case distKM <= 800:
		return SeverityClassOne
	case gustKPH > 0:
		return SeverityInformation
	default:
		return SeverityUnknown
	}
}

// haversineKM returns the great-circle distance between two points in km.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
