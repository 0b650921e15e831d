package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lagoonwatch_provider_api_calls_total",
			Help: "Total outbound provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lagoonwatch_provider_api_latency_seconds",
			Help:    "Provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	ObservationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lagoonwatch_observations_ingested_total",
			Help: "Total weather observations successfully ingested",
		},
		[]string{"site"},
	)

	MarineObservationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lagoonwatch_marine_observations_ingested_total",
			Help: "Total marine observations successfully ingested",
		},
		[]string{"site", "source"},
	)

	AdvisoriesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lagoonwatch_cyclone_advisories_active",
			Help: "Cyclone advisories currently within the monitoring radius",
		},
	)

	RiskLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lagoonwatch_risk_level",
			Help: "Latest assessed risk severity per hazard (0=low .. 3=severe)",
		},
		[]string{"hazard", "site"},
	)
)
