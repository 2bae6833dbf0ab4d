package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/kafka"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/archive"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/config"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/observability"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Site geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.SiteGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var decodeOpts []domain.Option
	if len(cfg.FieldAliases) > 0 {
		decodeOpts = append(decodeOpts, domain.WithFieldAliases(cfg.FieldAliases))
		logger.Info("field aliases configured", "count", len(cfg.FieldAliases))
	}
	decoder := domain.NewDecoder(netcdf.Open, logger, decodeOpts...)
	stager := archive.NewStager(cfg.StagingDir, logger)
	scans := pipeline.NewScanIndex()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(stager, decoder, geocoder, scans, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize, cfg.DecodeConcurrency)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, scans, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Let in-flight decodes finish so staged files are cleaned up.
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
