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
	openMeteoBaseURL       = "https://api.open-meteo.com/v1/forecast"
	openMeteoMarineBaseURL = "https://marine-api.open-meteo.com/v1/marine"
)

// OpenMeteoClient fetches weather observations and daily forecasts from the
// Open-Meteo forecast API and sea state from its marine API. No API key is
// required.
type OpenMeteoClient struct {
	client    *http.Client
	baseURL   string
	marineURL string
}

func NewOpenMeteoClient() *OpenMeteoClient {
	return &OpenMeteoClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   openMeteoBaseURL,
		marineURL: openMeteoMarineBaseURL,
	}
}

// SetBaseURLs overrides the provider endpoints, for tests.
func (c *OpenMeteoClient) SetBaseURLs(weather, marine string) {
	if weather != "" {
		c.baseURL = weather
	}
	if marine != "" {
		c.marineURL = marine
	}
}

type currentResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *int     `json:"relative_humidity_2m"`
		PressureMSL   *float64 `json:"pressure_msl"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		WindGusts     *float64 `json:"wind_gusts_10m"`
		WindDirection *int     `json:"wind_direction_10m"`
		Precipitation *float64 `json:"precipitation"`
		CloudCover    *int     `json:"cloud_cover"`
	} `json:"current"`
}

// FetchCurrent retrieves the current weather for a site.
func (c *OpenMeteoClient) FetchCurrent(site models.Site) (*models.Observation, string, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", site.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", site.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,pressure_msl,wind_speed_10m,wind_gusts_10m,wind_direction_10m,precipitation,cloud_cover")
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "UTC")

	body, err := c.fetch("current", c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, "", err
	}

	var data currentResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", fmt.Errorf("unmarshal: %w", err)
	}

	observedAt, err := time.Parse("2006-01-02T15:04", data.Current.Time)
	if err != nil {
		return nil, "", fmt.Errorf("parse time: %w", err)
	}

	result := &models.Observation{
		SiteID:     site.SiteID,
		ObservedAt: observedAt.UTC(),
	}
	if data.Current.Temperature != nil {
		result.Temp = sql.NullFloat64{Float64: *data.Current.Temperature, Valid: true}
	}
	if data.Current.Humidity != nil {
		result.Humidity = sql.NullInt64{Int64: int64(*data.Current.Humidity), Valid: true}
	}
	if data.Current.PressureMSL != nil {
		result.Pressure = sql.NullFloat64{Float64: *data.Current.PressureMSL, Valid: true}
	}
	if data.Current.WindSpeed != nil {
		result.WindSpeed = sql.NullFloat64{Float64: *data.Current.WindSpeed, Valid: true}
	}
	if data.Current.WindGusts != nil {
		result.WindGust = sql.NullFloat64{Float64: *data.Current.WindGusts, Valid: true}
	}
	if data.Current.WindDirection != nil {
		result.WindDir = sql.NullInt64{Int64: int64(*data.Current.WindDirection), Valid: true}
	}
	if data.Current.Precipitation != nil {
		result.Precip = sql.NullFloat64{Float64: *data.Current.Precipitation, Valid: true}
	}
	if data.Current.CloudCover != nil {
		result.CloudCover = sql.NullInt64{Int64: int64(*data.Current.CloudCover), Valid: true}
	}

	return result, string(body), nil
}

type dailyResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		PrecipSum     []*float64 `json:"precipitation_sum"`
		PrecipProbMax []*int     `json:"precipitation_probability_max"`
		WindSpeedMax  []*float64 `json:"wind_speed_10m_max"`
		WindGustsMax  []*float64 `json:"wind_gusts_10m_max"`
	} `json:"daily"`
}

// FetchDailyForecast retrieves the 7-day forecast for a site.
func (c *OpenMeteoClient) FetchDailyForecast(site models.Site) ([]models.Forecast, string, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", site.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", site.Longitude))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,wind_gusts_10m_max")
	q.Set("wind_speed_unit", "kmh")
	q.Set("forecast_days", "7")
	q.Set("timezone", "UTC")

	body, err := c.fetch("forecast", c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, "", err
	}

	var data dailyResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", fmt.Errorf("unmarshal: %w", err)
	}

	fetchedAt := time.Now().UTC()
	var forecasts []models.Forecast
	for i, day := range data.Daily.Time {
		validDate, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		f := models.Forecast{
			SiteID:        site.SiteID,
			Source:        "open-meteo",
			FetchedAt:     fetchedAt,
			ValidDate:     validDate,
			DayOfForecast: i,
		}
		if v := at(data.Daily.TempMax, i); v != nil {
			f.TempMax = sql.NullFloat64{Float64: *v, Valid: true}
		}
		if v := at(data.Daily.TempMin, i); v != nil {
			f.TempMin = sql.NullFloat64{Float64: *v, Valid: true}
		}
		if v := at(data.Daily.PrecipSum, i); v != nil {
			f.PrecipSum = sql.NullFloat64{Float64: *v, Valid: true}
		}
		if v := at(data.Daily.PrecipProbMax, i); v != nil {
			f.PrecipProb = sql.NullInt64{Int64: int64(*v), Valid: true}
		}
		if v := at(data.Daily.WindSpeedMax, i); v != nil {
			f.WindSpeedMax = sql.NullFloat64{Float64: *v, Valid: true}
		}
		if v := at(data.Daily.WindGustsMax, i); v != nil {
			f.WindGustMax = sql.NullFloat64{Float64: *v, Valid: true}
		}
		forecasts = append(forecasts, f)
	}

	return forecasts, string(body), nil
}

type marineResponse struct {
	Current struct {
		Time       string   `json:"time"`
		WaveHeight *float64 `json:"wave_height"`
		WavePeriod *float64 `json:"wave_period"`
		SST        *float64 `json:"sea_surface_temperature"`
	} `json:"current"`
}

// FetchMarine retrieves the current sea state for a site.
func (c *OpenMeteoClient) FetchMarine(site models.Site) (*models.MarineObservation, string, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", site.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", site.Longitude))
	q.Set("current", "wave_height,wave_period,sea_surface_temperature")
	q.Set("timezone", "UTC")

	body, err := c.fetch("marine", c.marineURL+"?"+q.Encode())
	if err != nil {
		return nil, "", err
	}

	var data marineResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", fmt.Errorf("unmarshal: %w", err)
	}

	observedAt, err := time.Parse("2006-01-02T15:04", data.Current.Time)
	if err != nil {
		return nil, "", fmt.Errorf("parse time: %w", err)
	}

	result := &models.MarineObservation{
		SiteID:     site.SiteID,
		ObservedAt: observedAt.UTC(),
		Source:     "open-meteo-marine",
	}
	if data.Current.WaveHeight != nil {
		result.WaveHeight = sql.NullFloat64{Float64: *data.Current.WaveHeight, Valid: true}
	}
	if data.Current.WavePeriod != nil {
		result.WavePeriod = sql.NullFloat64{Float64: *data.Current.WavePeriod, Valid: true}
	}
	if data.Current.SST != nil {
		result.SST = sql.NullFloat64{Float64: *data.Current.SST, Valid: true}
	}

	return result, string(body), nil
}

// fetch runs a GET with exponential backoff. Rate-limit responses are
// retried, everything else fails permanently.
func (c *OpenMeteoClient) fetch(endpoint, u string) ([]byte, error) {
	var body []byte
	start := time.Now()
	operation := func() error {
		resp, err := c.client.Get(u)
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
	metrics.ProviderAPICallsTotal.WithLabelValues("open-meteo", endpoint, status).Inc()
	metrics.ProviderAPILatency.WithLabelValues("open-meteo", endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}

// at safely indexes a parallel array from the daily block.
func at[T any](s []*T, i int) *T {
	if i < 0 || i >= len(s) {
		return nil
	}
	return s[i]
}
