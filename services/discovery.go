package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"finn_scraper/config"
	"finn_scraper/fetch"
	"finn_scraper/models"
	"finn_scraper/storage"
)

var finnCodeRe = regexp.MustCompile(`finnkode=(\d+)`)

// DiscoveryService walks the paginated search index and reconciles the finn
// codes it finds into listing records.
type DiscoveryService struct {
	store   storage.Store
	fetcher fetch.Fetcher
	cfg     *config.ScraperConfig
}

func NewDiscoveryService(store storage.Store, fetcher fetch.Fetcher, cfg *config.ScraperConfig) *DiscoveryService {
	return &DiscoveryService{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// Discover crawls index pages starting at page 1 and stops at the first
// page that yields no finn codes, fails to fetch, or exceeds MaxPage.
// Every code found is reconciled into storage: unknown codes become
// pending/active records, known codes are re-marked active with a bumped
// check time.
func (s *DiscoveryService) Discover(ctx context.Context) (models.DiscoveryStats, error) {
	var stats models.DiscoveryStats

	run := &models.ScrapeRun{
		ID:        uuid.New(),
		Kind:      "discovery",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		log.Printf("Discovery: failed to record run start: %v", err)
	}

	seen := make(map[string]bool)
	for page := 1; page <= s.cfg.MaxPage; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		codes, err := s.discoverPage(ctx, page)
		if err != nil {
			// A broken page ends the crawl but the codes already collected
			// still get reconciled.
			log.Printf("Discovery: page %d fetch failed, stopping crawl: %v", page, err)
			break
		}

		fresh := 0
		for _, code := range codes {
			if !seen[code] {
				seen[code] = true
				fresh++
			}
		}
		log.Printf("Discovery: page %d yielded %d codes (%d new)", page, len(codes), fresh)

		if len(codes) == 0 {
			break
		}
		fetch.Throttle(ctx, s.cfg.DelayMin, s.cfg.DelayMax)
	}

	stats.TotalFound = len(seen)
	if err := s.reconcile(ctx, seen, &stats); err != nil {
		s.finishRun(ctx, run, &stats, models.RunStatusFailed)
		return stats, err
	}

	s.finishRun(ctx, run, &stats, models.RunStatusCompleted)
	log.Printf("Discovery: found %d codes, %d new, %d updated", stats.TotalFound, stats.New, stats.Updated)
	return stats, nil
}

func (s *DiscoveryService) discoverPage(ctx context.Context, page int) ([]string, error) {
	url := s.cfg.BaseURL
	if strings.Contains(url, "?") {
		url = fmt.Sprintf("%s&page=%d", url, page)
	} else {
		url = fmt.Sprintf("%s?page=%d", url, page)
	}

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return extractFinnCodes(doc, s.cfg.FinnCodeSelector), nil
}

// extractFinnCodes pulls finn codes out of ad links, deduplicated in
// document order.
func extractFinnCodes(doc *goquery.Document, selector string) []string {
	var codes []string
	seen := make(map[string]bool)

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		m := finnCodeRe.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true
		codes = append(codes, m[1])
	})

	return codes
}

// reconcile writes discovered codes back to storage. A code we have never
// seen starts pending and active; a code we already track is confirmed
// active and its check time bumped, with the scrape status left alone.
func (s *DiscoveryService) reconcile(ctx context.Context, discovered map[string]bool, stats *models.DiscoveryStats) error {
	existing, err := s.store.FetchListingRecords(ctx, models.FilterAll)
	if err != nil {
		return fmt.Errorf("fetch existing records: %w", err)
	}
	known := make(map[string]models.ListingRecord, len(existing))
	for _, rec := range existing {
		known[rec.FinnCode] = rec
	}

	now := time.Now()
	var batch []models.ListingRecord
	for code := range discovered {
		if prev, ok := known[code]; ok {
			prev.ListingStatus = models.ListingActive
			prev.LastChecked = now
			batch = append(batch, prev)
			stats.Updated++
			continue
		}
		batch = append(batch, models.ListingRecord{
			FinnCode:      code,
			FetchedAt:     now,
			ScrapeStatus:  models.ScrapePending,
			ListingStatus: models.ListingActive,
			LastChecked:   now,
		})
		stats.New++
	}

	if len(batch) == 0 {
		return nil
	}
	if err := s.store.SaveListingRecords(ctx, batch); err != nil {
		return fmt.Errorf("save listing records: %w", err)
	}
	return nil
}

func (s *DiscoveryService) finishRun(ctx context.Context, run *models.ScrapeRun, stats *models.DiscoveryStats, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	run.Total = stats.TotalFound
	run.Processed = stats.New + stats.Updated
	run.Succeeded = stats.New + stats.Updated
	if err := s.store.SaveRun(ctx, run); err != nil {
		log.Printf("Discovery: failed to record run finish: %v", err)
	}
}
