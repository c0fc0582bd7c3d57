package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"finn_scraper/config"
	"finn_scraper/fetch"
	"finn_scraper/models"
	"finn_scraper/storage"
)

// delistKeywords are matched against the extracted title to spot listings
// that are still reachable but already sold. The check is a plain substring
// scan; anything subtler (withdrawn, expired) is not detected.
var delistKeywords = []string{"solgt", "sold"}

// LifecycleManager drives listing records through their state machine:
// pending on discovery, success/failed/error after a detail scrape, and
// active/inactive for visibility.
type LifecycleManager struct {
	store    storage.Store
	property *PropertyService
	cfg      *config.ScraperConfig
}

func NewLifecycleManager(store storage.Store, property *PropertyService, cfg *config.ScraperConfig) *LifecycleManager {
	return &LifecycleManager{
		store:    store,
		property: property,
		cfg:      cfg,
	}
}

// SweepInactive marks every active record whose last check is older than
// the threshold as inactive. It is the only transition that downgrades
// visibility without a detail-scrape signal.
func (m *LifecycleManager) SweepInactive(ctx context.Context, days int) (int, error) {
	records, err := m.store.FetchListingRecords(ctx, models.FilterActive)
	if err != nil {
		return 0, fmt.Errorf("fetch active records: %w", err)
	}

	run := &models.ScrapeRun{
		ID:        uuid.New(),
		Kind:      "sweep",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
		Total:     len(records),
	}
	if err := m.store.SaveRun(ctx, run); err != nil {
		log.Printf("Sweep: failed to record run start: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	inactive := models.ListingInactive

	swept := 0
	failed := 0
	for _, rec := range records {
		if !rec.LastChecked.Before(cutoff) {
			continue
		}
		err := m.store.UpdateListingFields(ctx, rec.FinnCode, storage.ListingFieldUpdate{
			ListingStatus: &inactive,
		})
		if err != nil {
			log.Printf("Sweep: mark %s inactive: %v", rec.FinnCode, err)
			failed++
			continue
		}
		swept++
	}

	m.finishSweepRun(ctx, run, swept, failed, models.RunStatusCompleted)
	if swept > 0 {
		log.Printf("Sweep: marked %d of %d active listings inactive (threshold %dd)", swept, len(records), days)
	}
	return swept, nil
}

func (m *LifecycleManager) finishSweepRun(ctx context.Context, run *models.ScrapeRun, swept, failed int, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	run.Processed = swept + failed
	run.Succeeded = swept
	run.Errored = failed
	if err := m.store.SaveRun(ctx, run); err != nil {
		log.Printf("Sweep: failed to record run finish: %v", err)
	}
}

// ProcessAll runs a detail scrape over every tracked listing. Inactive
// listings are skipped untouched unless processInactive is set. A limit of
// zero means no limit. One listing's failure never aborts the batch.
func (m *LifecycleManager) ProcessAll(ctx context.Context, limit int, processInactive bool) (models.ProcessStats, error) {
	var stats models.ProcessStats

	records, err := m.store.FetchListingRecords(ctx, models.FilterAll)
	if err != nil {
		return stats, fmt.Errorf("fetch listing records: %w", err)
	}
	stats.Total = len(records)

	run := &models.ScrapeRun{
		ID:        uuid.New(),
		Kind:      "properties",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
		Total:     stats.Total,
	}
	if err := m.store.SaveRun(ctx, run); err != nil {
		log.Printf("Process: failed to record run start: %v", err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			m.finishRun(ctx, run, &stats, models.RunStatusFailed)
			return stats, err
		}
		if limit > 0 && stats.Processed >= limit {
			break
		}

		if rec.ListingStatus == models.ListingInactive && !processInactive {
			stats.Skipped++
			continue
		}

		stats.Processed++
		if m.processOne(ctx, rec.FinnCode) {
			stats.Success++
		} else {
			stats.Error++
		}

		fetch.Throttle(ctx, m.cfg.DelayMin, m.cfg.DelayMax)
	}

	m.finishRun(ctx, run, &stats, models.RunStatusCompleted)
	log.Printf("Process: total %d, processed %d, success %d, error %d, skipped %d",
		stats.Total, stats.Processed, stats.Success, stats.Error, stats.Skipped)
	return stats, nil
}

// processOne scrapes a single listing and applies the resulting state
// transition. Returns true when the scrape succeeded.
func (m *LifecycleManager) processOne(ctx context.Context, finnCode string) bool {
	rec, err := m.property.Scrape(ctx, finnCode)
	if err != nil {
		status := models.ScrapeError
		if errors.Is(err, fetch.ErrNotFound) {
			status = models.ScrapeFailed
		}
		log.Printf("Process: %s scrape %s: %v", finnCode, status, err)
		if uerr := m.store.UpdateScrapeStatus(ctx, finnCode, status); uerr != nil {
			log.Printf("Process: %s status update failed: %v", finnCode, uerr)
		}
		return false
	}

	now := time.Now()
	rec.ScrapeStatus = models.ScrapeSuccess
	rec.LastChecked = now
	if err := m.property.Save(ctx, rec); err != nil {
		log.Printf("Process: %s save failed: %v", finnCode, err)
		if uerr := m.store.UpdateScrapeStatus(ctx, finnCode, models.ScrapeError); uerr != nil {
			log.Printf("Process: %s status update failed: %v", finnCode, uerr)
		}
		return false
	}

	listingStatus := models.ListingActive
	if isDelisted(rec.Title) {
		listingStatus = models.ListingInactive
		log.Printf("Process: %s looks sold, marking inactive (title %q)", finnCode, rec.Title)
	}

	success := models.ScrapeSuccess
	update := storage.ListingFieldUpdate{
		ScrapeStatus:  &success,
		ListingStatus: &listingStatus,
	}
	// The check time only moves for listings confirmed live; delisting
	// leaves it at the last moment the ad was actually seen active.
	if listingStatus == models.ListingActive {
		update.LastChecked = &now
	}
	err = m.store.UpdateListingFields(ctx, finnCode, update)
	if err != nil {
		log.Printf("Process: %s listing update failed: %v", finnCode, err)
		return false
	}
	return true
}

// isDelisted reports whether the title carries a sold marker.
func isDelisted(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range delistKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (m *LifecycleManager) finishRun(ctx context.Context, run *models.ScrapeRun, stats *models.ProcessStats, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	run.Processed = stats.Processed
	run.Succeeded = stats.Success
	run.Errored = stats.Error
	run.Skipped = stats.Skipped
	if err := m.store.SaveRun(ctx, run); err != nil {
		log.Printf("Process: failed to record run finish: %v", err)
	}
}
