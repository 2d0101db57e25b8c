package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/api"
	"github.com/eldtechnologies/hookcase/internal/config"
	"github.com/eldtechnologies/hookcase/internal/handlers"
	"github.com/eldtechnologies/hookcase/internal/optimistic"
	"github.com/eldtechnologies/hookcase/internal/store"
)

const (
	sessionIdleTimeout = 30 * time.Minute
	sweepInterval      = 5 * time.Minute
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()
	memStore := store.NewMemoryStore()

	// Posts and carts: PostgreSQL, then SQLite, then memory
	var dataStore store.DataStore = memStore
	dataDriver := "memory"
	switch {
	case cfg.DatabaseURL != "":
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		defer pgStore.Close()
		dataStore, dataDriver = pgStore, "postgres"
		logger.Info().Msg("connected to PostgreSQL")

	case cfg.SQLitePath != "":
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		defer sqliteStore.Close()
		dataStore, dataDriver = sqliteStore, "sqlite"
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite database")
	}

	// Confirmed messages: Redis, then memory
	var messageStore store.MessageStore = memStore
	messageDriver := "memory"
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		messageStore, messageDriver = redisStore, "redis"
		redisClient = redisStore.Client()
		logger.Info().Msg("connected to Redis")
	}

	sender := optimistic.DelaySender{Delay: cfg.SendDelay, FailMarker: cfg.FailMarker}
	hub := optimistic.NewHub(messageStore, sender, logger)

	h := handlers.NewHandler(handlers.Deps{
		Data:          dataStore,
		DataDriver:    dataDriver,
		Messages:      messageStore,
		MessageDriver: messageDriver,
		Hub:           hub,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		Config:        cfg,
		Logger:        logger,
	})

	// Create router
	router := api.NewRouter(logger, cfg, h, redisClient)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Event streams would otherwise keep Shutdown waiting
	srv.RegisterOnShutdown(h.StopStreams)

	// Drop idle sessions periodically
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := h.Sweep(sessionIdleTimeout); n > 0 {
					logger.Debug().Int("evicted", n).Msg("swept idle state")
				}
			}
		}
	}()

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("data", dataDriver).
			Str("messages", messageDriver).
			Msg("starting hookcase server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	// In-flight sends are rolled back; per-session timers and renders stop
	stopSweep()
	hub.Close()
	h.Close()

	logger.Info().Msg("server stopped")
}
