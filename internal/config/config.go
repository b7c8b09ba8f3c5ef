package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Input and output locations.
	AgentsFile    string
	RawDataDir    string
	OutputDir     string
	CountriesPath string
	RegionsPath   string

	Workers int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Meteostat configuration.
	MeteostatAPIKey     string
	MeteostatAPIURL     string
	MeteostatBulkURL    string
	MeteostatTimeout    time.Duration
	MeteostatMaxRetries int
	ClimateCacheSize    int
	StationDirectoryTTL time.Duration

	// Optional sinks. Empty GCSBucket or KafkaBrokers disables the sink.
	GCSBucket    string
	GCSPrefix    string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	meteostatTimeout, err := parsePositiveDuration("METEOSTAT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	directoryTTL, err := parsePositiveDuration("STATION_DIRECTORY_TTL", "24h")
	if err != nil {
		return nil, err
	}

	workers, err := parseIntInRange("WORKERS", 16, 1, 256)
	if err != nil {
		return nil, err
	}

	maxRetries, err := parseIntInRange("METEOSTAT_MAX_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		AgentsFile:      sharedcfg.EnvOrDefault("AGENTS_FILE", "agents_list.txt"),
		RawDataDir:      sharedcfg.EnvOrDefault("RAW_DATA_DIR", "raw_data"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "clean_data"),
		CountriesPath:   sharedcfg.EnvOrDefault("COUNTRIES_PATH", "data/countries.json"),
		RegionsPath:     sharedcfg.EnvOrDefault("REGIONS_PATH", "data/regions.json"),
		Workers:         workers,
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MeteostatAPIKey:     os.Getenv("METEOSTAT_API_KEY"),
		MeteostatAPIURL:     sharedcfg.EnvOrDefault("METEOSTAT_API_URL", "https://meteostat.p.rapidapi.com"),
		MeteostatBulkURL:    sharedcfg.EnvOrDefault("METEOSTAT_BULK_URL", "https://bulk.meteostat.net/v2"),
		MeteostatTimeout:    meteostatTimeout,
		MeteostatMaxRetries: maxRetries,
		ClimateCacheSize:    parseCacheSize(),
		StationDirectoryTTL: directoryTTL,

		GCSBucket:    os.Getenv("GCS_BUCKET"),
		GCSPrefix:    sharedcfg.EnvOrDefault("GCS_PREFIX", "data"),
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "agent-precipitation"),
	}
	if _, set := os.LookupEnv("HTTP_ADDR"); !set {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.MeteostatAPIKey == "" {
		return nil, errors.New("METEOSTAT_API_KEY is required")
	}
	if cfg.AgentsFile == "" {
		return nil, errors.New("AGENTS_FILE is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether rows are published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// GCSEnabled reports whether parquet files are uploaded to Cloud Storage.
func (c *Config) GCSEnabled() bool { return c.GCSBucket != "" }

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("CLIMATE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
