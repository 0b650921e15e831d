package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/assess"
	"github.com/jlucien/lagoonwatch/internal/briefing"
	"github.com/jlucien/lagoonwatch/internal/store"
)

type Server struct {
	store         *store.Store
	port          string
	loc           *time.Location
	assessor      *assess.Assessor
	advisories    *advisory.Client
	briefingGen   *briefing.Generator
	briefingCache *briefing.Cache
}

func NewServer(store *store.Store, port string, loc *time.Location) *Server {
	// Bulletin generation is optional, everything else works without a key.
	var gen *briefing.Generator
	if g, err := briefing.NewGenerator(); err != nil {
		log.Printf("api: bulletin generation disabled: %v", err)
	} else {
		gen = g
	}

	return &Server{
		store:         store,
		port:          port,
		loc:           loc,
		assessor:      assess.New(store, nil),
		briefingGen:   gen,
		briefingCache: briefing.NewCache(6 * time.Hour),
	}
}

// SetAdvisoryClient wires the live cyclone advisory feed into the risk
// assessments. Without it, cyclone risk reads stored advisories only.
func (s *Server) SetAdvisoryClient(client *advisory.Client) {
	s.advisories = client
	s.assessor = assess.New(s.store, client)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/sites", s.handleSites)
	mux.HandleFunc("/api/current", s.handleCurrent)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/marine/current", s.handleMarineCurrent)
	mux.HandleFunc("/api/marine/history", s.handleMarineHistory)
	mux.HandleFunc("/api/tides", s.handleTides)
	mux.HandleFunc("/api/risk/flood", s.handleFloodRisk)
	mux.HandleFunc("/api/risk/cyclone", s.handleCycloneRisk)
	mux.HandleFunc("/api/risk/bleaching", s.handleBleachingRisk)
	mux.HandleFunc("/api/risk/surge", s.handleSurgeRisk)
	mux.HandleFunc("/api/risk/history", s.handleRiskHistory)
	mux.HandleFunc("/api/pollution", s.handlePollution)
	mux.HandleFunc("/api/ocean-health", s.handleOceanHealth)
	mux.HandleFunc("/api/advisories", s.handleAdvisories)
	mux.HandleFunc("/api/briefing", s.handleBriefing)
	mux.HandleFunc("/api/ingest-runs", s.handleIngestRuns)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

type HealthStatus struct {
	Status string       `json:"status"`
	Sites  []SiteHealth `json:"sites"`
	Errors []string     `json:"errors,omitempty"`
}

type SiteHealth struct {
	SiteID     string    `json:"site_id"`
	LastSeen   time.Time `json:"last_seen"`
	AgeMinutes int       `json:"age_minutes"`
	Stale      bool      `json:"stale"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sites, err := s.store.GetActiveSites()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	health := HealthStatus{
		Status: "ok",
		Sites:  make([]SiteHealth, 0, len(sites)),
	}

	staleThreshold := 45 * time.Minute
	now := time.Now()

	for _, site := range sites {
		obs, err := s.store.GetLatestObservation(site.SiteID)
		if err != nil {
			health.Errors = append(health.Errors, site.SiteID+": "+err.Error())
			continue
		}

		sh := SiteHealth{SiteID: site.SiteID}
		if obs != nil {
			sh.LastSeen = obs.ObservedAt
			sh.AgeMinutes = int(now.Sub(obs.ObservedAt).Minutes())
			sh.Stale = now.Sub(obs.ObservedAt) > staleThreshold
		} else {
			sh.Stale = true
			sh.AgeMinutes = -1
		}

		if sh.Stale {
			health.Status = "degraded"
		}
		health.Sites = append(health.Sites, sh)
	}

	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		log.Printf("health: write response: %v", err)
	}
}

// siteParam resolves the site query parameter, defaulting to the primary
// monitoring site.
func (s *Server) siteParam(r *http.Request) (string, error) {
	siteID := r.URL.Query().Get("site")
	if siteID != "" {
		return siteID, nil
	}
	primary, err := s.store.GetPrimarySite()
	if err != nil {
		return "", err
	}
	if primary == nil {
		return "", nil
	}
	return primary.SiteID, nil
}
