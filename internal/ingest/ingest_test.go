package ingest

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jlucien/lagoonwatch/internal/models"
)

var testSite = models.Site{
	SiteID:    "port-louis",
	Name:      "Port Louis",
	Latitude:  -20.160,
	Longitude: 57.501,
	Zone:      "north",
	SiteType:  "coastal",
}

func TestValidateObservation(t *testing.T) {
	tests := []struct {
		name      string
		obs       *models.Observation
		wantFlags []string
	}{
		{
			name: "valid observation - no flags",
			obs: &models.Observation{
				Temp:       sql.NullFloat64{Float64: 28.0, Valid: true},
				Humidity:   sql.NullInt64{Int64: 75, Valid: true},
				WindDir:    sql.NullInt64{Int64: 120, Valid: true},
				WindSpeed:  sql.NullFloat64{Float64: 22.0, Valid: true},
				Pressure:   sql.NullFloat64{Float64: 1013.0, Valid: true},
				Precip:     sql.NullFloat64{Float64: 2.5, Valid: true},
				CloudCover: sql.NullInt64{Int64: 40, Valid: true},
			},
			wantFlags: nil,
		},
		{
			name: "temp too cold for the tropics",
			obs: &models.Observation{
				Temp: sql.NullFloat64{Float64: 2.0, Valid: true},
			},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name: "humidity over 100",
			obs: &models.Observation{
				Humidity: sql.NullInt64{Int64: 105, Valid: true},
			},
			wantFlags: []string{FlagHumidityInvalid},
		},
		{
			name: "wind direction over 360",
			obs: &models.Observation{
				WindDir: sql.NullInt64{Int64: 400, Valid: true},
			},
			wantFlags: []string{FlagWindDirInvalid},
		},
		{
			name: "cyclonic pressure still accepted",
			obs: &models.Observation{
				Pressure: sql.NullFloat64{Float64: 930.0, Valid: true},
			},
			wantFlags: nil,
		},
		{
			name: "pressure below any recorded cyclone",
			obs: &models.Observation{
				Pressure: sql.NullFloat64{Float64: 850.0, Valid: true},
			},
			wantFlags: []string{FlagPressureOutOfRange},
		},
		{
			name: "negative precip",
			obs: &models.Observation{
				Precip: sql.NullFloat64{Float64: -1.0, Valid: true},
			},
			wantFlags: []string{FlagPrecipNegative},
		},
		{
			name: "cloud cover over 100",
			obs: &models.Observation{
				CloudCover: sql.NullInt64{Int64: 130, Valid: true},
			},
			wantFlags: []string{FlagCloudCoverInvalid},
		},
		{
			name:      "all null - no flags",
			obs:       &models.Observation{},
			wantFlags: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateObservation(tt.obs)
			if !reflect.DeepEqual(got, tt.wantFlags) {
				t.Errorf("ValidateObservation() = %v, want %v", got, tt.wantFlags)
			}
		})
	}
}

func TestValidateMarineObservation(t *testing.T) {
	tests := []struct {
		name      string
		obs       *models.MarineObservation
		wantFlags []string
	}{
		{
			name: "valid marine observation",
			obs: &models.MarineObservation{
				SST:        sql.NullFloat64{Float64: 28.5, Valid: true},
				DHW:        sql.NullFloat64{Float64: 3.2, Valid: true},
				WaveHeight: sql.NullFloat64{Float64: 1.8, Valid: true},
			},
			wantFlags: nil,
		},
		{
			name: "sst implausibly warm",
			obs: &models.MarineObservation{
				SST: sql.NullFloat64{Float64: 40.0, Valid: true},
			},
			wantFlags: []string{FlagSSTOutOfRange},
		},
		{
			name: "negative dhw",
			obs: &models.MarineObservation{
				DHW: sql.NullFloat64{Float64: -0.5, Valid: true},
			},
			wantFlags: []string{FlagDHWNegative},
		},
		{
			name: "wave height beyond cyclonic seas",
			obs: &models.MarineObservation{
				WaveHeight: sql.NullFloat64{Float64: 30.0, Valid: true},
			},
			wantFlags: []string{FlagWaveHeightUnlikely},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateMarineObservation(tt.obs)
			if !reflect.DeepEqual(got, tt.wantFlags) {
				t.Errorf("ValidateMarineObservation() = %v, want %v", got, tt.wantFlags)
			}
		})
	}
}

func TestQualityFlagsToJSON(t *testing.T) {
	if got := QualityFlagsToJSON(nil); got != "" {
		t.Errorf("empty flags should produce empty string, got %q", got)
	}
	got := QualityFlagsToJSON([]string{FlagTempOutOfRange, FlagPrecipNegative})
	want := `["temp_out_of_range","precip_negative"]`
	if got != want {
		t.Errorf("QualityFlagsToJSON() = %q, want %q", got, want)
	}
}

func TestFetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); got != "-20.1600" {
			t.Errorf("latitude = %q, want -20.1600", got)
		}
		w.Write([]byte(`{"current":{"time":"2026-01-15T09:00","temperature_2m":29.4,"relative_humidity_2m":78,"pressure_msl":1008.2,"wind_speed_10m":32.5,"wind_gusts_10m":51.0,"wind_direction_10m":95,"precipitation":4.2,"cloud_cover":85}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient()
	client.SetBaseURLs(server.URL, "")

	obs, rawJSON, err := client.FetchCurrent(testSite)
	if err != nil {
		t.Fatalf("FetchCurrent() error: %v", err)
	}
	if obs.SiteID != "port-louis" {
		t.Errorf("SiteID = %q", obs.SiteID)
	}
	if !obs.Temp.Valid || obs.Temp.Float64 != 29.4 {
		t.Errorf("Temp = %+v, want 29.4", obs.Temp)
	}
	if !obs.WindGust.Valid || obs.WindGust.Float64 != 51.0 {
		t.Errorf("WindGust = %+v, want 51.0", obs.WindGust)
	}
	if !obs.Precip.Valid || obs.Precip.Float64 != 4.2 {
		t.Errorf("Precip = %+v, want 4.2", obs.Precip)
	}
	want := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	if !obs.ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", obs.ObservedAt, want)
	}
	if !strings.Contains(rawJSON, "temperature_2m") {
		t.Error("raw JSON should carry the provider payload")
	}
}

func TestFetchCurrentPartialData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2026-01-15T09:00","temperature_2m":27.0}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient()
	client.SetBaseURLs(server.URL, "")

	obs, _, err := client.FetchCurrent(testSite)
	if err != nil {
		t.Fatalf("FetchCurrent() error: %v", err)
	}
	if !obs.Temp.Valid {
		t.Error("Temp should be valid")
	}
	if obs.Pressure.Valid || obs.WindSpeed.Valid || obs.Precip.Valid {
		t.Error("missing provider fields should stay null")
	}
}

func TestFetchCurrentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenMeteoClient()
	client.SetBaseURLs(server.URL, "")

	if _, _, err := client.FetchCurrent(testSite); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestFetchDailyForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"daily":{
			"time":["2026-01-15","2026-01-16","2026-01-17"],
			"temperature_2m_max":[31.2,30.8,29.5],
			"temperature_2m_min":[24.1,24.5,23.9],
			"precipitation_sum":[12.0,85.5,null],
			"precipitation_probability_max":[60,95,null],
			"wind_speed_10m_max":[35.0,72.0,40.0],
			"wind_gusts_10m_max":[55.0,110.0,60.0]
		}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient()
	client.SetBaseURLs(server.URL, "")

	forecasts, _, err := client.FetchDailyForecast(testSite)
	if err != nil {
		t.Fatalf("FetchDailyForecast() error: %v", err)
	}
	if len(forecasts) != 3 {
		t.Fatalf("got %d forecasts, want 3", len(forecasts))
	}

	day2 := forecasts[1]
	if day2.DayOfForecast != 1 {
		t.Errorf("DayOfForecast = %d, want 1", day2.DayOfForecast)
	}
	if !day2.PrecipSum.Valid || day2.PrecipSum.Float64 != 85.5 {
		t.Errorf("PrecipSum = %+v, want 85.5", day2.PrecipSum)
	}
	if !day2.WindGustMax.Valid || day2.WindGustMax.Float64 != 110.0 {
		t.Errorf("WindGustMax = %+v, want 110.0", day2.WindGustMax)
	}

	day3 := forecasts[2]
	if day3.PrecipSum.Valid || day3.PrecipProb.Valid {
		t.Error("null provider values should stay null")
	}
}

func TestFetchMarine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2026-01-15T09:00","wave_height":2.4,"wave_period":11.5,"sea_surface_temperature":28.9}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient()
	client.SetBaseURLs("", server.URL)

	obs, _, err := client.FetchMarine(testSite)
	if err != nil {
		t.Fatalf("FetchMarine() error: %v", err)
	}
	if obs.Source != "open-meteo-marine" {
		t.Errorf("Source = %q", obs.Source)
	}
	if !obs.WaveHeight.Valid || obs.WaveHeight.Float64 != 2.4 {
		t.Errorf("WaveHeight = %+v, want 2.4", obs.WaveHeight)
	}
	if !obs.SST.Valid || obs.SST.Float64 != 28.9 {
		t.Errorf("SST = %+v, want 28.9", obs.SST)
	}
}

func TestFetchCoralReefWatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "NOAA_DHW") {
			t.Errorf("path = %q, want the CRW dataset", r.URL.Path)
		}
		w.Write([]byte(`{"table":{
			"columnNames":["time","latitude","longitude","CRW_SST","CRW_SSTANOMALY","CRW_DHW"],
			"rows":[["2026-01-14T12:00:00Z",-20.15,57.5,29.8,1.4,6.5]]
		}}`))
	}))
	defer server.Close()

	client := NewERDDAPClient()
	client.SetBaseURL(server.URL)

	obs, _, err := client.FetchCoralReefWatch(testSite)
	if err != nil {
		t.Fatalf("FetchCoralReefWatch() error: %v", err)
	}
	if obs.Source != "noaa-crw" {
		t.Errorf("Source = %q", obs.Source)
	}
	if !obs.DHW.Valid || obs.DHW.Float64 != 6.5 {
		t.Errorf("DHW = %+v, want 6.5", obs.DHW)
	}
	if !obs.SSTAnomaly.Valid || obs.SSTAnomaly.Float64 != 1.4 {
		t.Errorf("SSTAnomaly = %+v, want 1.4", obs.SSTAnomaly)
	}
	want := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)
	if !obs.ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", obs.ObservedAt, want)
	}
}

func TestFetchOceanColourNullCell(t *testing.T) {
	// Cloud-masked cells come back as null; the fields should stay invalid.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"table":{
			"columnNames":["time","latitude","longitude","chlor_a","kd_490"],
			"rows":[["2026-01-14T00:00:00Z",-20.15,57.5,null,0.08]]
		}}`))
	}))
	defer server.Close()

	client := NewERDDAPClient()
	client.SetBaseURL(server.URL)

	obs, _, err := client.FetchOceanColour(testSite)
	if err != nil {
		t.Fatalf("FetchOceanColour() error: %v", err)
	}
	if obs.Chlorophyll.Valid {
		t.Error("null chlor_a should stay invalid")
	}
	if !obs.Kd490.Valid || obs.Kd490.Float64 != 0.08 {
		t.Errorf("Kd490 = %+v, want 0.08", obs.Kd490)
	}
}

func TestParseERDDAPTableEmpty(t *testing.T) {
	if _, err := parseERDDAPTable([]byte(`{"table":{"columnNames":["time"],"rows":[]}}`)); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestGFWClientRequiresToken(t *testing.T) {
	if client := NewGFWClient(""); client != nil {
		t.Fatal("no token should produce a nil client")
	}
}

func TestFetchEffort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"entries":[
			{"date":"2026-01-13","hours":42.5,"vesselIDs":6},
			{"date":"2026-01-14","hours":38.0,"vesselIDs":5}
		]}`))
	}))
	defer server.Close()

	client := NewGFWClient("test-token")
	client.SetBaseURL(server.URL)

	efforts, _, err := client.FetchEffort("north", 7)
	if err != nil {
		t.Fatalf("FetchEffort() error: %v", err)
	}
	if len(efforts) != 2 {
		t.Fatalf("got %d entries, want 2", len(efforts))
	}
	if efforts[0].Zone != "north" || efforts[0].Hours != 42.5 || efforts[0].VesselCount != 6 {
		t.Errorf("unexpected first entry: %+v", efforts[0])
	}
}

func TestFetchEffortUnknownZone(t *testing.T) {
	client := NewGFWClient("test-token")
	if _, _, err := client.FetchEffort("atlantis", 7); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestParseUHSLCHourly(t *testing.T) {
	// One full day split across two half-day records; one gap at hour 3.
	data := strings.Join([]string{
		"108 2026 015 1 5120 5080 5010 9999 4890 4850 4830 4860 4920 5010 5110 5200",
		"108 2026 015 2 5280 5330 5350 5320 5260 5170 5070 4980 4910 4880 4890 4940",
	}, "\n")

	readings, err := parseUHSLCHourly(strings.NewReader(data), "port-louis")
	if err != nil {
		t.Fatalf("parseUHSLCHourly() error: %v", err)
	}
	if len(readings) != 23 {
		t.Fatalf("got %d readings, want 23 (one gap)", len(readings))
	}

	first := readings[0]
	if first.GaugeID != "port-louis" {
		t.Errorf("GaugeID = %q", first.GaugeID)
	}
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !first.RecordedAt.Equal(want) {
		t.Errorf("RecordedAt = %v, want %v", first.RecordedAt, want)
	}
	if first.SeaLevelMM != 5120 {
		t.Errorf("SeaLevelMM = %d, want 5120", first.SeaLevelMM)
	}

	// Hour 12 starts the second record.
	var noon *models.TideReading
	for i := range readings {
		if readings[i].RecordedAt.Hour() == 12 {
			noon = &readings[i]
			break
		}
	}
	if noon == nil || noon.SeaLevelMM != 5280 {
		t.Errorf("noon reading = %+v, want 5280", noon)
	}
}

func TestParseUHSLCHourlySkipsMalformed(t *testing.T) {
	data := strings.Join([]string{
		"garbage line",
		"108 2026 015",
		"108 2026 015 1 5120 5080 5010 9999 4890 4850 4830 4860 4920 5010 5110 5200",
	}, "\n")

	readings, err := parseUHSLCHourly(strings.NewReader(data), "port-louis")
	if err != nil {
		t.Fatalf("parseUHSLCHourly() error: %v", err)
	}
	if len(readings) != 11 {
		t.Errorf("got %d readings, want 11", len(readings))
	}
}

func TestParseUHSLCHourlyEmpty(t *testing.T) {
	if _, err := parseUHSLCHourly(strings.NewReader(""), "port-louis"); err == nil {
		t.Fatal("expected error for empty gauge file")
	}
}

func TestComputeTideAnomalies(t *testing.T) {
	var readings []models.TideReading
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		readings = append(readings, models.TideReading{
			GaugeID:    "port-louis",
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
			SeaLevelMM: 5000,
		})
	}
	readings = append(readings, models.TideReading{
		GaugeID:    "port-louis",
		RecordedAt: base.Add(6 * time.Hour),
		SeaLevelMM: 5300,
	})

	computeTideAnomalies(readings, 6)

	for i := 0; i < 6; i++ {
		if readings[i].AnomalyMM.Valid {
			t.Errorf("reading %d should have no anomaly without full history", i)
		}
	}
	last := readings[6]
	if !last.AnomalyMM.Valid || last.AnomalyMM.Int64 != 300 {
		t.Errorf("anomaly = %+v, want 300", last.AnomalyMM)
	}
}

func TestZoneBoundsCoverAllZones(t *testing.T) {
	for _, zone := range []string{"north", "west", "east", "south", "rodrigues"} {
		bounds, ok := zoneBounds[zone]
		if !ok {
			t.Errorf("missing bounds for zone %q", zone)
			continue
		}
		if bounds[0] >= bounds[2] || bounds[1] >= bounds[3] {
			t.Errorf("degenerate bounds for zone %q: %v", zone, bounds)
		}
	}
}
