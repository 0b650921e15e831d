package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/briefing"
	"github.com/jlucien/lagoonwatch/internal/models"
)

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.GetActiveSites()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sites)
}

type CurrentData struct {
	Site        *models.Site
	Observation *models.Observation
	Today       *TodayStats
	LastUpdated time.Time
}

type TodayStats struct {
	TempMin     float64
	TempMax     float64
	PrecipTotal float64
	MaxGust     float64
	HasTemp     bool
	HasPrecip   bool
	HasWind     bool
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	site, err := s.store.GetSite(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if site == nil {
		writeError(w, http.StatusNotFound, "unknown site: "+siteID)
		return
	}

	obs, err := s.store.GetLatestObservation(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data := CurrentData{
		Site:        site,
		Observation: obs,
		LastUpdated: time.Now(),
	}

	if tempMin, tempMax, precipTotal, maxGust, err := s.store.GetTodayStats(siteID, time.Now()); err != nil {
		log.Printf("api: today stats %s: %v", siteID, err)
	} else {
		today := &TodayStats{}
		if tempMin.Valid && tempMax.Valid {
			today.TempMin = tempMin.Float64
			today.TempMax = tempMax.Float64
			today.HasTemp = true
		}
		if precipTotal.Valid {
			today.PrecipTotal = precipTotal.Float64
			today.HasPrecip = true
		}
		if maxGust.Valid {
			today.MaxGust = maxGust.Float64
			today.HasWind = true
		}
		if today.HasTemp || today.HasPrecip || today.HasWind {
			data.Today = today
		}
	}

	writeJSON(w, data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hours := queryInt(r, "hours", 24)
	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	observations, err := s.store.GetObservations(siteID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, observations)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	forecasts, err := s.store.GetLatestForecasts(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, forecasts)
}

func (s *Server) handleMarineCurrent(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	marine, err := s.store.GetLatestMarineBySite(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, marine)
}

func (s *Server) handleMarineHistory(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	days := queryInt(r, "days", 30)
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	observations, err := s.store.GetMarineObservations(siteID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, observations)
}

func (s *Server) handleTides(w http.ResponseWriter, r *http.Request) {
	gaugeID := r.URL.Query().Get("gauge")
	if gaugeID == "" {
		gaugeID = "port-louis"
	}

	hours := queryInt(r, "hours", 72)
	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	readings, err := s.store.GetTideReadings(gaugeID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, readings)
}

func (s *Server) handleFloodRisk(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flood, err := s.assessor.Flood(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, flood)
}

func (s *Server) handleCycloneRisk(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cyclone, err := s.assessor.Cyclone(r.Context(), siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, cyclone)
}

func (s *Server) handleBleachingRisk(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bl, err := s.assessor.Bleaching(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, bl)
}

// handleSurgeRisk never returns 500 for missing inputs: absent providers
// produce a low, degraded assessment instead.
func (s *Server) handleSurgeRisk(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		log.Printf("api: surge site lookup: %v", err)
		siteID = ""
	}
	writeJSON(w, s.assessor.Surge(siteID))
}

func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hazard := r.URL.Query().Get("hazard")
	limit := queryInt(r, "limit", 50)

	records, err := s.store.GetRiskHistory(siteID, hazard, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}

func (s *Server) handlePollution(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pollution, err := s.assessor.Pollution(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, pollution)
}

func (s *Server) handleOceanHealth(w http.ResponseWriter, r *http.Request) {
	siteID, err := s.siteParam(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	site, err := s.store.GetSite(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if site == nil {
		writeError(w, http.StatusNotFound, "unknown site: "+siteID)
		return
	}

	health, err := s.assessor.OceanHealth(*site)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, health)
}

func (s *Server) handleAdvisories(w http.ResponseWriter, r *http.Request) {
	if s.advisories != nil {
		advs, err := s.advisories.Advisories(r.Context())
		if err == nil {
			writeJSON(w, advisoriesResponse(advs))
			return
		}
		log.Printf("api: live advisories: %v", err)
	}

	// Feed unreachable or not configured: serve recently stored advisories.
	advs, err := s.store.GetActiveAdvisories(6 * time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, advisoriesResponse(advs))
}

// advisoriesResponse keeps the endpoint returning [] rather than null when
// no storms are active.
func advisoriesResponse(advs []advisory.Advisory) []advisory.Advisory {
	if advs == nil {
		return []advisory.Advisory{}
	}
	return advs
}

type BriefingResponse struct {
	Bulletin    string    `json:"bulletin"`
	Source      string    `json:"source"` // "model" or "assembled"
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	if text, ok := s.briefingCache.Get(); ok {
		writeJSON(w, BriefingResponse{Bulletin: text, Source: "cached", GeneratedAt: time.Now()})
		return
	}

	conditions, err := s.buildBriefingConditions(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	source := "assembled"
	text := briefing.FallbackText(conditions)
	if s.briefingGen != nil {
		generated, err := s.briefingGen.Generate(r.Context(), conditions)
		if err != nil {
			log.Printf("api: bulletin generation: %v", err)
		} else {
			text = generated
			source = "model"
		}
	}

	s.briefingCache.Set(text)
	writeJSON(w, BriefingResponse{Bulletin: text, Source: source, GeneratedAt: time.Now()})
}

func (s *Server) buildBriefingConditions(r *http.Request) (briefing.Conditions, error) {
	siteID, err := s.siteParam(r)
	if err != nil {
		return briefing.Conditions{}, err
	}

	site, err := s.store.GetSite(siteID)
	if err != nil {
		return briefing.Conditions{}, err
	}

	c := briefing.Conditions{SiteName: siteID}
	if site != nil {
		c.SiteName = site.Name
	}

	if obs, err := s.store.GetLatestObservation(siteID); err == nil && obs != nil {
		if obs.Temp.Valid {
			c.Temp = obs.Temp.Float64
			c.HasTemp = true
		}
		if obs.WindSpeed.Valid {
			c.WindKPH = obs.WindSpeed.Float64
			c.HasWind = true
		}
	}
	if marine, err := s.store.GetLatestMarineBySite(siteID); err == nil && marine != nil && marine.SST.Valid {
		c.SST = marine.SST.Float64
		c.HasSST = true
	}

	if flood, err := s.assessor.Flood(siteID); err == nil {
		c.Flood = flood.Level
		c.Precip24h = flood.Precip24h
	}
	if cyc, err := s.assessor.Cyclone(r.Context(), siteID); err == nil {
		c.Cyclone = cyc.Level
	}
	if bl, err := s.assessor.Bleaching(siteID); err == nil {
		c.Bleaching = bl.Level
	}
	c.Surge = s.assessor.Surge(siteID).Level

	if advs, err := s.store.GetActiveAdvisories(6 * time.Hour); err == nil && len(advs) > 0 {
		c.CycloneName = advs[0].Name
	}
	if site != nil {
		if health, err := s.assessor.OceanHealth(*site); err == nil {
			c.OceanGrade = health.Grade
		}
	}

	return c, nil
}

// handleIngestRuns exposes the provider fetch audit trail for debugging
// stuck or failing ingestion.
func (s *Server) handleIngestRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	runs, err := s.store.GetRecentIngestRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, runs)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
