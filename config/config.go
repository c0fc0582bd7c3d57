package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"finn_scraper/parser"
)

type Config struct {
	Storage   StorageConfig
	Scraper   ScraperConfig
	Geocoder  GeocoderConfig
	Lifecycle LifecycleConfig
	Scheduler SchedulerConfig
	Export    ExportConfig
	API       APIConfig
	FieldSpec parser.Spec
	LogPath   string
}

type StorageConfig struct {
	Backend     string // sqlite, postgres, csv
	SQLitePath  string
	PostgresDSN string
	CSVDir      string
}

type ScraperConfig struct {
	BaseURL          string // listing index URL, paginated with &page=N
	AdURL            string // detail page URL template, finn code appended
	MaxPage          int
	FinnCodeSelector string
	Fetcher          string // http or browser
	UserAgent        string
	FetchTimeout     time.Duration
	DelayMin         time.Duration
	DelayMax         time.Duration
}

type GeocoderConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

type LifecycleConfig struct {
	InactiveDays int
	BatchLimit   int
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type ExportConfig struct {
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

type APIConfig struct {
	Addr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "sqlite"),
			SQLitePath:  getEnv("SQLITE_PATH", "finn_properties.db"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			CSVDir:      getEnv("CSV_DIR", "data"),
		},
		Scraper: ScraperConfig{
			BaseURL:          os.Getenv("BASE_URL"),
			AdURL:            getEnv("AD_URL", "https://www.finn.no/realestate/homes/ad.html?finnkode=%s"),
			MaxPage:          getEnvInt("MAX_PAGE", 50),
			FinnCodeSelector: getEnv("FINN_CODE_SELECTOR", `a[href*="finnkode="]`),
			Fetcher:          getEnv("FETCHER", "http"),
			UserAgent:        getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			DelayMin:         getEnvDuration("SCRAPE_DELAY_MIN", 1*time.Second),
			DelayMax:         getEnvDuration("SCRAPE_DELAY_MAX", 3*time.Second),
		},
		Geocoder: GeocoderConfig{
			UserAgent:   getEnv("GEOCODE_USER_AGENT", "finn_property_scraper"),
			Timeout:     getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),
			MaxAttempts: getEnvInt("GEOCODE_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("GEOCODE_RETRY_DELAY", 2*time.Second),
		},
		Lifecycle: LifecycleConfig{
			InactiveDays: getEnvInt("INACTIVE_DAYS", 1),
			BatchLimit:   getEnvInt("BATCH_LIMIT", 0),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Export: ExportConfig{
			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3Region:    getEnv("S3_REGION", "eu-north-1"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
			S3SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		API: APIConfig{
			Addr: getEnv("API_ADDR", ":8090"),
		},
		LogPath: getEnv("LOG_PATH", "scraper.log"),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	spec, err := parser.LoadSpec(getEnv("FIELD_SPEC_PATH", "config/fields.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.FieldSpec = spec

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
