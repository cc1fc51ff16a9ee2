package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"grateful.app/notifier/internal/application"
	"grateful.app/notifier/internal/config"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/infrastructure/grateful"
	"grateful.app/notifier/internal/infrastructure/postgres"
	kafkaconsumer "grateful.app/notifier/internal/kafka"
	"grateful.app/notifier/internal/metrics"
	"grateful.app/notifier/internal/syncbus"
	transporthttp "grateful.app/notifier/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Str("api", cfg.API.BaseURL).Msg("starting grateful-notifier")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// ── Grateful API client ──────────────────────────────────────────────────
	var tokens grateful.TokenSource = grateful.StaticToken(cfg.API.Token)
	if cfg.API.TokenFile != "" {
		tokens = grateful.FileToken{Path: cfg.API.TokenFile}
	}
	api := grateful.New(cfg.API.BaseURL, tokens, cfg.API.Timeout)

	// ── Read ledger ──────────────────────────────────────────────────────────
	var ledger domain.ReadLedger
	if cfg.Database.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		pg, err := postgres.New(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to prepare read ledger")
		}
		ledger = pg
		log.Info().Msg("postgres read ledger connected")
	} else {
		log.Info().Msg("no database configured, read ledger kept in memory")
	}

	// ── Store, bus & poller ──────────────────────────────────────────────────
	bus := syncbus.New()
	store := application.NewStore(api, ledger, m)
	if err := store.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore read state, starting fresh")
	}
	store.Attach(bus)

	poller := application.NewPoller(store, api, cfg.Poll.Interval, m)
	poller.Start(ctx)

	// ── Kafka Consumer ───────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := kafkaconsumer.New(
			cfg.Kafka.Brokers,
			cfg.Kafka.ConsumerGroupID,
			cfg.Kafka.Topics,
			bus,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka consumer")
		}
		go consumer.Start(ctx)
		log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")
	}

	// ── Ledger purge job (every 24h) ─────────────────────────────────────────
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.PurgeLedger(context.Background(), cfg.Ledger.RetentionDays)
			case <-ctx.Done():
				return
			}
		}
	}()

	// ── HTTP Server ──────────────────────────────────────────────────────────
	hub := transporthttp.NewHub(m)
	handler := transporthttp.NewHandler(store, poller, bus, hub)
	router := transporthttp.NewRouter(handler, m, cfg.Server.ViewToken, cfg.Server.AllowOrigins)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	poller.Stop()
	<-poller.Done()
	handler.Close()
	store.Dispose()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("grateful-notifier stopped")
}
