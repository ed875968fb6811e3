package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/forest-stress-etl/internal/adapter/catalog"
	httpadapter "github.com/couchcryptid/forest-stress-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/forest-stress-etl/internal/adapter/kafka"
	"github.com/couchcryptid/forest-stress-etl/internal/config"
	"github.com/couchcryptid/forest-stress-etl/internal/domain"
	"github.com/couchcryptid/forest-stress-etl/internal/observability"
	"github.com/couchcryptid/forest-stress-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Catalog: remote API when CATALOG_URL is set, otherwise a fixture file.
	var source domain.Catalog
	if cfg.CatalogURL != "" {
		source = catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout, cfg.CatalogMaxAttempts, metrics, logger)
		logger.Info("using remote catalog", "url", cfg.CatalogURL, "max_attempts", cfg.CatalogMaxAttempts, "timeout", cfg.CatalogTimeout)
	} else {
		fc, err := catalog.OpenFixture(cfg.CatalogFixture)
		if err != nil {
			return err
		}
		source = fc
		logger.Info("using catalog fixture", "path", cfg.CatalogFixture)
	}
	source = catalog.NewCachedCatalog(source, cfg.CatalogCacheSize, cfg.CatalogCacheTTL, metrics)

	// Sink (feature-flagged via KAFKA_ENABLED).
	var sink pipeline.Sink
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled")
	}

	p := pipeline.New(source, sink, pipeline.OptionsFromConfig(cfg), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// A single run keeps serving its result until a signal arrives.
	runErr := make(chan error, 1)
	go func() {
		err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline error", "error", err)
			stop()
		}
		runErr <- err
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// The pipeline may still be publishing; wait before closing the writer.
	var pipelineErr error
	select {
	case pipelineErr = <-runErr:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return pipelineErr
}
