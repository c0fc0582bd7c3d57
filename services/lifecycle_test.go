package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/config"
	"finn_scraper/fetch"
	"finn_scraper/models"
	"finn_scraper/parser"
	"finn_scraper/storage"
)

// fakeFetcher serves canned HTML per URL and records every request.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) Close() error { return nil }

func listingHTML(title string) string {
	return fmt.Sprintf(`<html><head><title>%s | FINN eiendom</title></head>
<body><p>Prisantydning 2 500 000 kr</p>
<h2>Nøkkelinfo</h2>
<p>Boligtype Leilighet</p><p>Eieform Eier</p><p>Soverom 2</p>
</body></html>`, title)
}

func testScraperConfig() *config.ScraperConfig {
	return &config.ScraperConfig{
		BaseURL:          "https://finn.test/search?q=oslo",
		AdURL:            "https://finn.test/ad?finnkode=%s",
		MaxPage:          5,
		FinnCodeSelector: `a[href*="finnkode="]`,
	}
}

func newTestLifecycle(t *testing.T, fetcher fetch.Fetcher) (*LifecycleManager, storage.Store) {
	t.Helper()
	store, err := storage.NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine, err := parser.NewEngine(parser.DefaultSpec())
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	cfg := testScraperConfig()
	property := NewPropertyService(store, fetcher, engine, nil, cfg)
	return NewLifecycleManager(store, property, cfg), store
}

func seedListing(t *testing.T, store storage.Store, finnCode string, status models.ListingStatus, lastChecked time.Time) {
	t.Helper()
	err := store.SaveListingRecords(context.Background(), []models.ListingRecord{{
		FinnCode:      finnCode,
		FetchedAt:     lastChecked,
		ScrapeStatus:  models.ScrapePending,
		ListingStatus: status,
		LastChecked:   lastChecked,
	}})
	if err != nil {
		t.Fatalf("seed %s: %v", finnCode, err)
	}
}

func TestProcessAll_SuccessfulScrape(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://finn.test/ad?finnkode=111": listingHTML("Fin leilighet sentralt"),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now().Add(-time.Hour))

	stats, err := lifecycle.ProcessAll(ctx, 0, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Processed != 1 || stats.Success != 1 || stats.Error != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ScrapeStatus != models.ScrapeSuccess {
		t.Fatalf("expected success, got %s", all[0].ScrapeStatus)
	}
	if all[0].ListingStatus != models.ListingActive {
		t.Fatalf("expected active, got %s", all[0].ListingStatus)
	}

	exists, err := store.PropertyExists(ctx, "111")
	if err != nil || !exists {
		t.Fatalf("expected saved property (err=%v)", err)
	}
}

func TestProcessAll_SoldTitleMarksInactive(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://finn.test/ad?finnkode=111": listingHTML("SOLGT - Fin leilighet"),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	checked := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	seedListing(t, store, "111", models.ListingActive, checked)

	if _, err := lifecycle.ProcessAll(ctx, 0, false); err != nil {
		t.Fatalf("process: %v", err)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ListingStatus != models.ListingInactive {
		t.Fatalf("expected inactive after sold title, got %s", all[0].ListingStatus)
	}
	if all[0].ScrapeStatus != models.ScrapeSuccess {
		t.Fatalf("scrape itself succeeded, got %s", all[0].ScrapeStatus)
	}
	// The check time marks when the ad was last seen live, so delisting
	// must leave it alone.
	if !all[0].LastChecked.Equal(checked) {
		t.Fatalf("delisting must not bump last checked, got %v", all[0].LastChecked)
	}
}

func TestProcessAll_NotFoundMarksFailed(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://finn.test/ad?finnkode=111": fmt.Errorf("status 404: %w", fetch.ErrNotFound),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now())

	stats, err := lifecycle.ProcessAll(ctx, 0, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Error != 1 {
		t.Fatalf("expected 1 errored listing, got %+v", stats)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ScrapeStatus != models.ScrapeFailed {
		t.Fatalf("expected failed, got %s", all[0].ScrapeStatus)
	}
	if all[0].ListingStatus != models.ListingActive {
		t.Fatalf("listing status must be unchanged, got %s", all[0].ListingStatus)
	}
}

func TestProcessAll_TransportErrorMarksError(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://finn.test/ad?finnkode=111": fmt.Errorf("connection refused"),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now())

	if _, err := lifecycle.ProcessAll(ctx, 0, false); err != nil {
		t.Fatalf("process: %v", err)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ScrapeStatus != models.ScrapeError {
		t.Fatalf("expected error status, got %s", all[0].ScrapeStatus)
	}
}

func TestProcessAll_OneFailureDoesNotAbortBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://finn.test/ad?finnkode=222": listingHTML("Enebolig med hage"),
		},
		errs: map[string]error{
			"https://finn.test/ad?finnkode=111": fmt.Errorf("connection refused"),
		},
	}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now())
	seedListing(t, store, "222", models.ListingActive, time.Now())

	stats, err := lifecycle.ProcessAll(ctx, 0, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Processed != 2 || stats.Success != 1 || stats.Error != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestProcessAll_InactiveSkippedUntouched(t *testing.T) {
	fetcher := &fakeFetcher{}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	checked := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	seedListing(t, store, "111", models.ListingInactive, checked)

	stats, err := lifecycle.ProcessAll(ctx, 0, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("skipped listing must not be fetched, got %v", fetcher.calls)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if !all[0].LastChecked.Equal(checked) {
		t.Fatalf("skip must not touch last checked, got %v", all[0].LastChecked)
	}
	if all[0].ScrapeStatus != models.ScrapePending {
		t.Fatalf("skip must not touch scrape status, got %s", all[0].ScrapeStatus)
	}
}

func TestProcessAll_InactiveProcessedWithOverride(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://finn.test/ad?finnkode=111": listingHTML("Fortsatt til salgs"),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingInactive, time.Now().Add(-48*time.Hour))

	stats, err := lifecycle.ProcessAll(ctx, 0, true)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Processed != 1 || stats.Success != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ListingStatus != models.ListingActive {
		t.Fatalf("live page must re-activate the listing, got %s", all[0].ListingStatus)
	}
}

func TestProcessAll_LimitBoundsBatch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://finn.test/ad?finnkode=111": listingHTML("A"),
		"https://finn.test/ad?finnkode=222": listingHTML("B"),
		"https://finn.test/ad?finnkode=333": listingHTML("C"),
	}}
	lifecycle, store := newTestLifecycle(t, fetcher)
	ctx := context.Background()
	for _, code := range []string{"111", "222", "333"} {
		seedListing(t, store, code, models.ListingActive, time.Now())
	}

	stats, err := lifecycle.ProcessAll(ctx, 1, false)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("expected 1 processed, got %+v", stats)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(fetcher.calls))
	}
}

func TestSweepInactive_Threshold(t *testing.T) {
	lifecycle, store := newTestLifecycle(t, &fakeFetcher{})
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now().AddDate(0, 0, -2))

	// Checked 2 days ago: a 1-day threshold downgrades it.
	swept, err := lifecycle.SweepInactive(ctx, 1)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept, got %d", swept)
	}
	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ListingStatus != models.ListingInactive {
		t.Fatalf("expected inactive, got %s", all[0].ListingStatus)
	}

	run, err := store.LastRun(ctx, "sweep")
	if err != nil || run == nil {
		t.Fatalf("expected sweep run record (err=%v)", err)
	}
	if run.Status != models.RunStatusCompleted || run.Processed != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
}

// flakyUpdateStore fails field updates for one finn code and delegates
// everything else.
type flakyUpdateStore struct {
	storage.Store
	failCode string
}

func (s *flakyUpdateStore) UpdateListingFields(ctx context.Context, finnCode string, update storage.ListingFieldUpdate) error {
	if finnCode == s.failCode {
		return fmt.Errorf("write failed")
	}
	return s.Store.UpdateListingFields(ctx, finnCode, update)
}

func TestSweepInactive_UpdateFailureDoesNotAbort(t *testing.T) {
	backing, err := storage.NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { backing.Close() })
	store := &flakyUpdateStore{Store: backing, failCode: "111"}
	lifecycle := NewLifecycleManager(store, nil, testScraperConfig())
	ctx := context.Background()

	stale := time.Now().AddDate(0, 0, -2)
	seedListing(t, store, "111", models.ListingActive, stale)
	seedListing(t, store, "222", models.ListingActive, stale)

	swept, err := lifecycle.SweepInactive(ctx, 1)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected the healthy record swept, got %d", swept)
	}

	records, _ := store.FetchListingRecords(ctx, models.FilterAll)
	for _, rec := range records {
		switch rec.FinnCode {
		case "111":
			if rec.ListingStatus != models.ListingActive {
				t.Fatalf("failed update must leave 111 active, got %s", rec.ListingStatus)
			}
		case "222":
			if rec.ListingStatus != models.ListingInactive {
				t.Fatalf("222 must still be swept, got %s", rec.ListingStatus)
			}
		}
	}

	run, err := store.LastRun(ctx, "sweep")
	if err != nil || run == nil {
		t.Fatalf("expected sweep run record (err=%v)", err)
	}
	if run.Status != models.RunStatusCompleted || run.Succeeded != 1 || run.Errored != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestSweepInactive_WithinThresholdLeftActive(t *testing.T) {
	lifecycle, store := newTestLifecycle(t, &fakeFetcher{})
	ctx := context.Background()
	seedListing(t, store, "111", models.ListingActive, time.Now().AddDate(0, 0, -2))

	swept, err := lifecycle.SweepInactive(ctx, 3)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("expected nothing swept, got %d", swept)
	}
	all, _ := store.FetchListingRecords(ctx, models.FilterAll)
	if all[0].ListingStatus != models.ListingActive {
		t.Fatalf("expected active, got %s", all[0].ListingStatus)
	}
}

func TestIsDelisted(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"Solgt - Fin leilighet", true},
		{"SOLGT", true},
		{"Sold out development", true},
		{"Fin leilighet sentralt", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isDelisted(tc.title); got != tc.want {
			t.Fatalf("isDelisted(%q): expected %v, got %v", tc.title, tc.want, got)
		}
	}
}
