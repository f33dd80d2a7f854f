package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/sultan-shell/config"
	"github.com/ErlanBelekov/sultan-shell/internal/device"
	"github.com/ErlanBelekov/sultan-shell/internal/health"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/genai"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/memory"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/sultan-shell/internal/janitor"
	ctxlog "github.com/ErlanBelekov/sultan-shell/internal/log"
	"github.com/ErlanBelekov/sultan-shell/internal/metrics"
	"github.com/ErlanBelekov/sultan-shell/internal/repository"
	"github.com/ErlanBelekov/sultan-shell/internal/screen"
	"github.com/ErlanBelekov/sultan-shell/internal/shell"
	httptransport "github.com/ErlanBelekov/sultan-shell/internal/transport/http"
	"github.com/ErlanBelekov/sultan-shell/internal/transport/http/handler"
	"github.com/ErlanBelekov/sultan-shell/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), cfg.LogFile)
	slog.SetDefault(logger)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Device storage
	var store repository.DeviceStore
	switch cfg.StorageDriver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
		store = postgres.NewDeviceStore(pool)
	default:
		mem := memory.NewDeviceStore()
		store = mem
		// nothing else sweeps process memory
		jan, err := janitor.New(mem, janitor.Config{
			Schedule:        cfg.JanitorCron,
			SelectionTTL:    cfg.SelectionTTL,
			DeviceRetention: cfg.DeviceRetention,
			Batch:           cfg.JanitorBatch,
		}, logger)
		if err != nil {
			stop()
			log.Fatalf("janitor: %v", err)
		}
		go jan.Start(ctx)
	}
	logger.Info("device storage ready", "driver", cfg.StorageDriver)

	metrics.Register()
	checker := health.NewChecker(store, logger, prometheus.DefaultRegisterer)

	// Collaborators. A rejected customer token logs out the device the
	// request was made for.
	var registry *shell.Registry
	api := customerapi.New(cfg.APIBaseURL, logger, customerapi.OnUnauthenticated(func(ctx context.Context, token string) {
		registry.Expire(ctx, token)
	}))
	gen, err := genai.New(ctx, genai.Config{
		APIKey:     cfg.GenAIAPIKey,
		BaseURL:    cfg.GenAIBaseURL,
		TextModel:  cfg.GenAITextModel,
		ImageModel: cfg.GenAIImageModel,
		Timeout:    cfg.GenAITimeout,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("genai: %v", err)
	}
	if !gen.Enabled() {
		logger.Warn("GENAI_API_KEY not set; concierge and studio will apologise")
	}

	// Shell
	bus := shell.NewBus(logger)
	registry = shell.NewRegistry(store, screen.NewLoaders(logger), func(token string) screen.API {
		return api.WithToken(token)
	}, bus, logger)
	go registry.Start(ctx, cfg.EvictInterval, cfg.DeviceIdleTTL)

	// Usecases
	authUsecase := usecase.NewAuthUsecase(api, logger)
	shopUsecase := usecase.NewShopUsecase(func(token string) usecase.ShopAPI {
		return api.WithToken(token)
	}, logger)
	studioUsecase := usecase.NewStudioUsecase(gen, logger)

	tokens := device.NewTokens([]byte(cfg.DeviceJWTSecret), cfg.DeviceTokenTTL)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Shell:  handler.NewShellHandler(registry, bus, cfg.AllowedOrigins, logger),
			Auth:   handler.NewAuthHandler(authUsecase, registry, logger),
			Shop:   handler.NewShopHandler(shopUsecase, registry, logger),
			Studio: handler.NewStudioHandler(studioUsecase, registry, logger),
		}, tokens, cfg.Env != "local"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	logger.Info("server shut down", "devices_live", registry.Live())
}
