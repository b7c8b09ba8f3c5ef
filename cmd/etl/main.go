package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/agent-precip-etl/internal/adapter/gcs"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/agent-precip-etl/internal/adapter/kafka"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/lookup"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/meteostat"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/parquet"
	"github.com/couchcryptid/agent-precip-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/agent-precip-etl/internal/config"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	"github.com/couchcryptid/agent-precip-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agents, err := rawfile.ReadAgents(cfg.AgentsFile)
	if err != nil {
		return err
	}
	tables, err := lookup.LoadTables(cfg.CountriesPath, cfg.RegionsPath)
	if err != nil {
		return err
	}
	countries, regions := tables.Len()
	logger.Info("lookup tables loaded", "countries", countries, "regions", regions, "agents", len(agents))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	stations := meteostat.NewStationDirectory(cfg.MeteostatBulkURL, cfg.StationDirectoryTTL,
		cfg.MeteostatTimeout, cfg.MeteostatMaxRetries, clock, metrics, logger)
	client := meteostat.NewClient(cfg.MeteostatAPIKey, cfg.MeteostatAPIURL,
		cfg.MeteostatTimeout, cfg.MeteostatMaxRetries, metrics, logger)
	climate, err := meteostat.NewCachedClimateSource(client, cfg.ClimateCacheSize, metrics)
	if err != nil {
		return err
	}
	logger.Info("meteostat configured", "cache_size", cfg.ClimateCacheSize, "timeout", cfg.MeteostatTimeout, "max_retries", cfg.MeteostatMaxRetries)

	// Loaders run in order; the GCS upload reads the file the parquet writer produced.
	loaders := []pipeline.TableLoader{parquet.NewWriter(cfg.OutputDir, logger)}
	if cfg.GCSEnabled() {
		uploader, err := gcs.NewUploader(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.OutputDir, logger)
		if err != nil {
			return err
		}
		defer closeWithLog(logger, "gcs client", uploader.Close)
		loaders = append(loaders, uploader)
		logger.Info("gcs upload enabled", "bucket", cfg.GCSBucket, "prefix", cfg.GCSPrefix)
	} else {
		logger.Info("gcs upload disabled")
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer closeWithLog(logger, "kafka writer", writer.Close)
		loaders = append(loaders, writer)
		logger.Info("kafka publish enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publish disabled")
	}

	transformer := pipeline.NewTransformer(tables, stations, climate)
	p := pipeline.New(rawfile.NewSource(cfg.RawDataDir), transformer, loaders, cfg.Workers, clock, logger, metrics)

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	err = p.Run(ctx, agents)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func closeWithLog(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error(name+" close error", "error", err)
	}
}
