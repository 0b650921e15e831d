package ingest

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/jlucien/lagoonwatch/internal/metrics"
	"github.com/jlucien/lagoonwatch/internal/models"
)

const (
	uhslcFTPHost = "ftp.soest.hawaii.edu:21"

	// UHSLC fast-delivery hourly file for the Port Louis gauge.
	uhslcPortLouisFile = "/uhslc/fast/hourly/h108.dat"

	// Sentinel for missing readings in UHSLC hourly records.
	uhslcMissing = 9999

	// Window for the trailing-mean baseline used to compute the anomaly.
	tideBaselineHours = 72
)

// TideGaugeClient retrieves hourly sea-level data from the University of
// Hawaii Sea Level Center fast-delivery FTP archive.
type TideGaugeClient struct {
	host    string
	path    string
	gaugeID string
}

func NewTideGaugeClient() *TideGaugeClient {
	return &TideGaugeClient{
		host:    uhslcFTPHost,
		path:    uhslcPortLouisFile,
		gaugeID: "port-louis",
	}
}

// FetchLatest downloads the gauge file and returns the most recent readings
// with anomalies computed against the trailing mean.
func (t *TideGaugeClient) FetchLatest() ([]models.TideReading, error) {
	start := time.Now()
	readings, err := t.fetchReadings()

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProviderAPICallsTotal.WithLabelValues("uhslc", "hourly", status).Inc()
	metrics.ProviderAPILatency.WithLabelValues("uhslc", "hourly").Observe(time.Since(start).Seconds())

	return readings, err
}

func (t *TideGaugeClient) fetchReadings() ([]models.TideReading, error) {
	conn, err := ftp.Dial(t.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	readings, err := parseUHSLCHourly(resp, t.gaugeID)
	if err != nil {
		return nil, err
	}

	computeTideAnomalies(readings, tideBaselineHours)
	return readings, nil
}

// parseUHSLCHourly reads the UHSLC hourly ASCII format: each record is the
// station code, year, day of year, a half-day index (1 or 2), then twelve
// hourly heights in millimetres, 9999 marking gaps.
func parseUHSLCHourly(r io.Reader, gaugeID string) ([]models.TideReading, error) {
	var readings []models.TideReading

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 16 {
			continue
		}

		year, err1 := strconv.Atoi(fields[1])
		dayOfYear, err2 := strconv.Atoi(fields[2])
		half, err3 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if half != 1 && half != 2 {
			continue
		}

		dayStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, dayOfYear-1)
		hourOffset := 0
		if half == 2 {
			hourOffset = 12
		}

		for i := 0; i < 12; i++ {
			mm, err := strconv.Atoi(fields[4+i])
			if err != nil || mm == uhslcMissing {
				continue
			}
			readings = append(readings, models.TideReading{
				GaugeID:    gaugeID,
				RecordedAt: dayStart.Add(time.Duration(hourOffset+i) * time.Hour),
				SeaLevelMM: int64(mm),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gauge file: %w", err)
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("no readings in gauge file")
	}

	return readings, nil
}

// computeTideAnomalies fills AnomalyMM as the departure from the mean of the
// preceding window. Early readings without enough history are left without
// an anomaly.
func computeTideAnomalies(readings []models.TideReading, window int) {
	for i := range readings {
		start := i - window
		if start < 0 {
			continue
		}
		var sum int64
		for j := start; j < i; j++ {
			sum += readings[j].SeaLevelMM
		}
		mean := sum / int64(window)
		readings[i].AnomalyMM = sql.NullInt64{Int64: readings[i].SeaLevelMM - mean, Valid: true}
	}
}
