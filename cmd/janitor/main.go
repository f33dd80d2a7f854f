// janitor sweeps Postgres device storage on a cron schedule. Run it as a
// single replica next to the shell servers.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/sultan-shell/config"
	"github.com/ErlanBelekov/sultan-shell/internal/health"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/sultan-shell/internal/janitor"
	ctxlog "github.com/ErlanBelekov/sultan-shell/internal/log"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StorageDriver != "postgres" {
		log.Fatal("janitor needs STORAGE_DRIVER=postgres; the memory store is swept by the server itself")
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	store := postgres.NewDeviceStore(pool)
	jan, err := janitor.New(store, janitor.Config{
		Schedule:        cfg.JanitorCron,
		SelectionTTL:    cfg.SelectionTTL,
		DeviceRetention: cfg.DeviceRetention,
		Batch:           cfg.JanitorBatch,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}

	metrics.Register()

	if *once {
		res, err := jan.Sweep(ctx)
		stop()
		if err != nil {
			log.Fatalf("sweep: %v", err)
		}
		logger.Info("sweep done", "selections", res.Selections, "devices", res.Devices)
		return
	}

	checker := health.NewChecker(store, logger, prometheus.DefaultRegisterer)
	go jan.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("janitor shut down")
}
