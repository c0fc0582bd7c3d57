package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finn_scraper/api"
	"finn_scraper/config"
	"finn_scraper/fetch"
	"finn_scraper/geocode"
	"finn_scraper/httputil"
	"finn_scraper/logging"
	"finn_scraper/parser"
	"finn_scraper/retry"
	"finn_scraper/scheduler"
	"finn_scraper/services"
	"finn_scraper/storage"
	"finn_scraper/workers"
)

var (
	discoverNow     = flag.Bool("discover", false, "Run discovery once and exit")
	scrapeNow       = flag.Bool("scrape", false, "Run a detail-scrape pass once and exit")
	sweepNow        = flag.Bool("sweep", false, "Run the inactivity sweep once and exit")
	exportNow       = flag.Bool("export", false, "Export CSV snapshots once and exit")
	limit           = flag.Int("limit", 0, "Max listings to process per run (0 = no limit)")
	processInactive = flag.Bool("process-inactive", false, "Also scrape listings marked inactive")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting finn_scraper...")

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage (%s): %v", cfg.Storage.Backend, err)
	}
	defer store.Close()
	log.Printf("Storage backend: %s", cfg.Storage.Backend)

	engine, err := parser.NewEngine(cfg.FieldSpec)
	if err != nil {
		log.Fatalf("Invalid field spec: %v", err)
	}

	clients := httputil.NewClients(cfg.Scraper.FetchTimeout, cfg.Geocoder.Timeout)
	fetcher := fetch.New(&cfg.Scraper, clients)
	defer fetcher.Close()
	log.Printf("Fetcher: %s", cfg.Scraper.Fetcher)

	geocoder := geocode.New(clients.Geocode, cfg.Geocoder.UserAgent, retry.Config{
		MaxAttempts:   cfg.Geocoder.MaxAttempts,
		BaseDelay:     cfg.Geocoder.BaseDelay,
		BackoffFactor: 2,
	})

	var uploader *storage.S3Uploader
	if cfg.Export.S3Bucket != "" {
		uploader, err = storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.Export.S3Bucket,
			Region:          cfg.Export.S3Region,
			Endpoint:        cfg.Export.S3Endpoint,
			AccessKeyID:     cfg.Export.S3AccessKey,
			SecretAccessKey: cfg.Export.S3SecretKey,
		})
		if err != nil {
			log.Fatalf("Failed to set up S3 uploader: %v", err)
		}
		log.Printf("Exports upload to s3://%s", cfg.Export.S3Bucket)
	}

	discovery := services.NewDiscoveryService(store, fetcher, &cfg.Scraper)
	property := services.NewPropertyService(store, fetcher, engine, geocoder, &cfg.Scraper)
	lifecycle := services.NewLifecycleManager(store, property, &cfg.Scraper)
	export := services.NewExportService(store, uploader, cfg.Storage.CSVDir)

	batchLimit := cfg.Lifecycle.BatchLimit
	if *limit > 0 {
		batchLimit = *limit
	}

	// One-shot commands
	switch {
	case *discoverNow:
		if _, err := discovery.Discover(ctx); err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		return
	case *scrapeNow:
		if _, err := lifecycle.ProcessAll(ctx, batchLimit, *processInactive); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		return
	case *sweepNow:
		if _, err := lifecycle.SweepInactive(ctx, cfg.Lifecycle.InactiveDays); err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		return
	case *exportNow:
		if err := export.Export(ctx); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipeline := func(ctx context.Context) error {
		if _, err := discovery.Discover(ctx); err != nil {
			return err
		}
		if _, err := lifecycle.SweepInactive(ctx, cfg.Lifecycle.InactiveDays); err != nil {
			return err
		}
		_, err := lifecycle.ProcessAll(ctx, batchLimit, *processInactive)
		return err
	}

	sched := scheduler.New(&cfg.Scheduler, pipeline)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	sweepWorker := workers.NewSweepWorker(lifecycle, cfg.Lifecycle.InactiveDays)
	go sweepWorker.Run(ctx, 6*time.Hour)
	log.Println("Sweep worker started")

	server := api.NewServer(cfg.API.Addr, store)
	server.Start()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Status API shutdown: %v", err)
	}
	log.Println("Goodbye!")
}
