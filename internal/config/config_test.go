package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "rapidapi-test-key"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("METEOSTAT_API_KEY", testAPIKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "agents_list.txt", cfg.AgentsFile)
	assert.Equal(t, "raw_data", cfg.RawDataDir)
	assert.Equal(t, "clean_data", cfg.OutputDir)
	assert.Equal(t, "data/countries.json", cfg.CountriesPath)
	assert.Equal(t, "data/regions.json", cfg.RegionsPath)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testAPIKey, cfg.MeteostatAPIKey)
	assert.Equal(t, "https://meteostat.p.rapidapi.com", cfg.MeteostatAPIURL)
	assert.Equal(t, "https://bulk.meteostat.net/v2", cfg.MeteostatBulkURL)
	assert.Equal(t, 10*time.Second, cfg.MeteostatTimeout)
	assert.Equal(t, 3, cfg.MeteostatMaxRetries)
	assert.Equal(t, 1000, cfg.ClimateCacheSize)
	assert.Equal(t, 24*time.Hour, cfg.StationDirectoryTTL)
	assert.False(t, cfg.GCSEnabled())
	assert.Equal(t, "data", cfg.GCSPrefix)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "agent-precipitation", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("METEOSTAT_API_KEY", testAPIKey)
	t.Setenv("AGENTS_FILE", "/in/agents.txt")
	t.Setenv("RAW_DATA_DIR", "/in/raw")
	t.Setenv("OUTPUT_DIR", "/out")
	t.Setenv("COUNTRIES_PATH", "/etc/etl/countries.json")
	t.Setenv("REGIONS_PATH", "/etc/etl/regions.json")
	t.Setenv("WORKERS", "4")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("METEOSTAT_API_URL", "http://meteostat.local")
	t.Setenv("METEOSTAT_BULK_URL", "http://bulk.local/v2")
	t.Setenv("METEOSTAT_TIMEOUT", "3s")
	t.Setenv("METEOSTAT_MAX_RETRIES", "0")
	t.Setenv("CLIMATE_CACHE_SIZE", "50")
	t.Setenv("STATION_DIRECTORY_TTL", "1h")
	t.Setenv("GCS_BUCKET", "agents-precip")
	t.Setenv("GCS_PREFIX", "clean")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "rows")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/in/agents.txt", cfg.AgentsFile)
	assert.Equal(t, "/in/raw", cfg.RawDataDir)
	assert.Equal(t, "/out", cfg.OutputDir)
	assert.Equal(t, "/etc/etl/countries.json", cfg.CountriesPath)
	assert.Equal(t, "/etc/etl/regions.json", cfg.RegionsPath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://meteostat.local", cfg.MeteostatAPIURL)
	assert.Equal(t, "http://bulk.local/v2", cfg.MeteostatBulkURL)
	assert.Equal(t, 3*time.Second, cfg.MeteostatTimeout)
	assert.Equal(t, 0, cfg.MeteostatMaxRetries)
	assert.Equal(t, 50, cfg.ClimateCacheSize)
	assert.Equal(t, time.Hour, cfg.StationDirectoryTTL)
	assert.True(t, cfg.GCSEnabled())
	assert.Equal(t, "agents-precip", cfg.GCSBucket)
	assert.Equal(t, "clean", cfg.GCSPrefix)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "rows", cfg.KafkaTopic)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METEOSTAT_API_KEY")
}

func TestLoad_EmptyHTTPAddrDisablesServer(t *testing.T) {
	t.Setenv("METEOSTAT_API_KEY", testAPIKey)
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTPAddr)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("METEOSTAT_API_KEY", testAPIKey)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"WORKERS", "0"},
		{"WORKERS", "1000"},
		{"WORKERS", "many"},
		{"METEOSTAT_MAX_RETRIES", "-1"},
		{"METEOSTAT_TIMEOUT", "bad"},
		{"METEOSTAT_TIMEOUT", "-5s"},
		{"STATION_DIRECTORY_TTL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("METEOSTAT_API_KEY", testAPIKey)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidCacheSizeFallsBack(t *testing.T) {
	t.Setenv("METEOSTAT_API_KEY", testAPIKey)
	t.Setenv("CLIMATE_CACHE_SIZE", "-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ClimateCacheSize)
}
