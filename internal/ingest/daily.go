package ingest

import (
	"log"
	"time"

	"github.com/jlucien/lagoonwatch/internal/store"
)

type DailyJobs struct {
	store *store.Store
}

func NewDailyJobs(store *store.Store) *DailyJobs {
	return &DailyJobs{store: store}
}

func (d *DailyJobs) RunAll(forDate time.Time) error {
	log.Printf("daily: running jobs for %s", forDate.Format("2006-01-02"))
	return d.ComputeDailySummaries(forDate)
}

func (d *DailyJobs) ComputeDailySummaries(forDate time.Time) error {
	sites, err := d.store.GetActiveSites()
	if err != nil {
		return err
	}

	computed := 0
	for _, site := range sites {
		summary, err := d.store.ComputeDailySummary(site.SiteID, forDate)
		if err != nil {
			log.Printf("daily: compute summary %s: %v", site.SiteID, err)
			continue
		}
		if summary == nil || (!summary.TempMax.Valid && !summary.SSTMax.Valid) {
			continue
		}

		if err := d.store.UpsertDailySummary(*summary); err != nil {
			log.Printf("daily: upsert summary %s: %v", site.SiteID, err)
			continue
		}
		computed++
	}

	log.Printf("daily: computed %d summaries for %s", computed, forDate.Format("2006-01-02"))
	return nil
}

func (d *DailyJobs) BackfillSummaries() error {
	log.Println("daily: backfilling all daily summaries")

	sites, err := d.store.GetActiveSites()
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		return nil
	}

	dates, err := d.store.GetObservationDates(sites[0].SiteID)
	if err != nil {
		return err
	}

	for _, date := range dates {
		if err := d.ComputeDailySummaries(date); err != nil {
			log.Printf("daily: backfill %s: %v", date.Format("2006-01-02"), err)
		}
	}

	return nil
}
