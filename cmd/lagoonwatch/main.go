package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/jlucien/lagoonwatch/internal/advisory"
	"github.com/jlucien/lagoonwatch/internal/api"
	"github.com/jlucien/lagoonwatch/internal/ingest"
	"github.com/jlucien/lagoonwatch/internal/models"
	"github.com/jlucien/lagoonwatch/internal/store"
)

var defaultSites = []models.Site{
	{SiteID: "port-louis", Name: "Port Louis", Latitude: -20.160, Longitude: 57.501, Zone: "north", SiteType: "coastal", IsPrimary: true, Active: true},
	{SiteID: "grand-baie", Name: "Grand Baie", Latitude: -20.013, Longitude: 57.581, Zone: "north", SiteType: "lagoon", IsPrimary: false, Active: true},
	{SiteID: "flic-en-flac", Name: "Flic en Flac", Latitude: -20.274, Longitude: 57.363, Zone: "west", SiteType: "lagoon", IsPrimary: false, Active: true},
	{SiteID: "blue-bay", Name: "Blue Bay", Latitude: -20.444, Longitude: 57.709, Zone: "south", SiteType: "marine_park", IsPrimary: false, Active: true},
	{SiteID: "belle-mare", Name: "Belle Mare", Latitude: -20.189, Longitude: 57.776, Zone: "east", SiteType: "lagoon", IsPrimary: false, Active: true},
	{SiteID: "le-morne", Name: "Le Morne", Latitude: -20.457, Longitude: 57.312, Zone: "west", SiteType: "reef", IsPrimary: false, Active: true},
	{SiteID: "port-mathurin", Name: "Port Mathurin (Rodrigues)", Latitude: -19.683, Longitude: 63.425, Zone: "rodrigues", SiteType: "coastal", IsPrimary: false, Active: true},
}

// Advisory feed is centred on Port Louis; storms beyond this radius are
// not a near-term threat to Mauritius.
const (
	portLouisLat = -20.160
	portLouisLon = 57.501
)

type CLI struct {
	DB            string `name:"db" default:"data/lagoonwatch.db" help:"Path to SQLite database."`
	Port          string `default:"8080" help:"HTTP server port."`
	NoPoll        bool   `help:"Disable provider polling (server only, for local dev)."`
	Once          bool   `help:"Ingest once and exit (for testing)."`
	Daily         bool   `help:"Run daily jobs (summaries) and exit."`
	BackfillDaily bool   `help:"Backfill all daily summaries and exit."`
	GFWToken      string `name:"gfw-token" env:"GFW_API_TOKEN" help:"Global Fishing Watch API token. Fishing pressure is skipped without it."`
	AdvisoryFeed  string `env:"ADVISORY_FEED_URL" help:"Override the cyclone advisory GeoJSON feed URL."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("lagoonwatch"),
		kong.Description("Climate and ocean risk monitoring for Mauritius."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation("Indian/Mauritius")
	if err != nil {
		log.Printf("Warning: could not load Indian/Mauritius timezone, using UTC: %v", err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	for _, site := range defaultSites {
		if err := st.UpsertSite(site); err != nil {
			log.Fatalf("upsert site %s: %v", site.SiteID, err)
		}
	}
	log.Println("sites seeded")

	sites, err := st.GetActiveSites()
	if err != nil {
		log.Fatalf("load sites: %v", err)
	}

	advisories := advisory.NewClient(cli.AdvisoryFeed, portLouisLat, portLouisLon, advisory.DefaultRadiusKM)

	scheduler := ingest.NewScheduler(st, sites, loc)
	scheduler.SetAdvisoryClient(advisories)
	if gfw := ingest.NewGFWClient(cli.GFWToken); gfw != nil {
		scheduler.SetGFWClient(gfw)
	} else {
		log.Println("fishing effort ingestion disabled (no GFW_API_TOKEN)")
	}

	server := api.NewServer(st, cli.Port, loc)
	server.SetAdvisoryClient(advisories)

	if cli.BackfillDaily {
		log.Println("backfilling daily summaries")
		if err := scheduler.BackfillDailySummaries(); err != nil {
			log.Fatalf("backfill summaries: %v", err)
		}
		log.Println("done")
		return
	}

	if cli.Daily {
		log.Println("running daily jobs")
		if err := scheduler.RunDailyJobs(); err != nil {
			log.Fatalf("daily jobs: %v", err)
		}
		log.Println("done")
		return
	}

	if cli.Once {
		log.Println("running single ingestion")
		if err := scheduler.IngestOnce(context.Background()); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
