package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"

	"github.com/oceanbound/floodline/internal/adapter/httpapi"
	kafkaadapter "github.com/oceanbound/floodline/internal/adapter/kafka"
	"github.com/oceanbound/floodline/internal/config"
	"github.com/oceanbound/floodline/internal/flood"
	"github.com/oceanbound/floodline/internal/geoid"
	"github.com/oceanbound/floodline/internal/observability"
	"github.com/oceanbound/floodline/internal/service"
	"github.com/oceanbound/floodline/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open run store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve the geoid grid once at startup; a zero lookup is the fallback.
	lookup := geoid.Resolve(ctx, cfg.GeoidURL, cfg.GeoidPath, cfg.GeoidTimeout, logger)
	if _, ok := lookup.(geoid.Zero); ok {
		metrics.GeoidFallback.Set(1)
	}

	session := flood.NewSession(lookup, flood.ClearPolicy(cfg.ClearPolicy), clock, logger)
	go session.Run(ctx, cfg.TickInterval)

	// Run-event publishing is feature-flagged via KAFKA_BROKERS.
	var publisher service.Publisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("run event publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("run event publishing disabled")
	}

	svc := service.New(db, publisher, logger, metrics, clock, cfg.Iterations, cfg.BaseSeed)

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, session, metrics, svc, logger)

	// Retention pruning on a schedule, if configured.
	scheduler := gocron.NewScheduler(time.UTC)
	if cfg.MaxRunAge > 0 {
		_, err := scheduler.Every(cfg.PruneInterval).Do(func() {
			if err := svc.PruneRuns(ctx, cfg.MaxRunAge); err != nil {
				logger.Error("run pruning failed", "error", err)
			}
		})
		if err != nil {
			logger.Error("failed to schedule run pruning", "error", err)
			os.Exit(1)
		}
		scheduler.StartAsync()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
