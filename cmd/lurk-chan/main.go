package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/webmsgr/lurk-chan/internal/config"
	"github.com/webmsgr/lurk-chan/internal/database/sqlitestore"
	"github.com/webmsgr/lurk-chan/internal/moderation"
	"github.com/webmsgr/lurk-chan/internal/tasks"
	"github.com/webmsgr/lurk-chan/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting Lurk Chan")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Failed to shut down tracer provider")
			}
		}()
		log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("Tracing enabled")
	}

	store, err := sqlitestore.Open(sqlitestore.Options{
		Path: cfg.DBPath,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	defer store.Close()

	log.Info().Str("path", cfg.DBPath).Msg("Database opened")

	svc := moderation.NewService(store, moderation.Config{
		ExpiryAge: cfg.ExpiryAge,
	})

	supervisor := tasks.NewSupervisor(svc, store, tasks.Config{
		ExpiryInterval:   cfg.ExpiryInterval,
		OptimizeInterval: cfg.OptimizeInterval,
		BackupInterval:   cfg.BackupInterval,
		StatsInterval:    cfg.StatsInterval,
		BackupDir:        cfg.BackupDir,
		BackupKeep:       cfg.BackupKeep,
	})

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Info().Str("address", cfg.MetricsAddr).Msg("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	if err := supervisor.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Task supervisor exited with error")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to shut down metrics server")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// setupLogging configures the global zerolog logger. Level defaults to info
// on anything unrecognized; format "json" emits JSON logs, anything else
// gets pretty console output for development.
func setupLogging(level, format string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}
