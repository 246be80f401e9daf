package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/einkcast/einkcast/pkg/browser"
	"github.com/einkcast/einkcast/pkg/config"
	"github.com/einkcast/einkcast/pkg/logging"
	"github.com/einkcast/einkcast/pkg/render"
	"github.com/einkcast/einkcast/pkg/scheduler"
	"github.com/einkcast/einkcast/pkg/server"
	"github.com/einkcast/einkcast/pkg/status"
	"github.com/einkcast/einkcast/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := logging.New("production")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.AppEnv)
	logger.Info().Str("config", *configPath).Int("jobs", len(cfg.Jobs)).Msg("starting einkcast")

	store, err := storage.NewFileStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure output storage")
	}

	launcher, err := browser.NewPlaywrightLauncher()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start browser engine")
	}

	scripts := browser.DefaultScripts(cfg.BaseURL, cfg.AccessToken)
	controller := browser.NewController(launcher, scripts, cfg.BaseURL, logger)

	outcomes := status.NewMemorySink()
	sinks := []scheduler.Sink{outcomes}
	if cfg.RedisAddr != "" {
		redisSink := status.NewRedisSink(cfg.RedisAddr, logger)
		defer redisSink.Close()
		sinks = append(sinks, redisSink)
	}

	sched := scheduler.New(controller, render.Process, store, logger, sinks...)
	if err := sched.Configure(cfg.Jobs, cfg.OffHours); err != nil {
		logger.Fatal().Err(err).Msg("invalid job configuration")
	}
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	srv := server.New(cfg.Port, store, outcomes, logger)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown incomplete")
	}
}
