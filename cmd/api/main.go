// Package main is the entry point for the fleet logbook API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/fleet-logbook/backend/internal/advisor"
	"github.com/pkordes/fleet-logbook/backend/internal/config"
	"github.com/pkordes/fleet-logbook/backend/internal/gemini"
	"github.com/pkordes/fleet-logbook/backend/internal/geo"
	"github.com/pkordes/fleet-logbook/backend/internal/handler"
	"github.com/pkordes/fleet-logbook/backend/internal/middleware"
	"github.com/pkordes/fleet-logbook/backend/internal/repo"
	"github.com/pkordes/fleet-logbook/backend/internal/service"
	"github.com/pkordes/fleet-logbook/backend/internal/session"
	"github.com/pkordes/fleet-logbook/backend/internal/store"
	"github.com/pkordes/fleet-logbook/backend/internal/stream"
	"github.com/pkordes/fleet-logbook/backend/openapi"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	// pgxpool.New does not open connections immediately; the ping does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("database connection established")

	// --- Redis ------------------------------------------------------------
	// Optional. Without it the live trip is kept in memory and the fleet
	// feed only reaches clients of this instance.
	rdb := store.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
	var tripStore session.Store = store.NewMemory()
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		tripStore = store.NewRedis(rdb, cfg.DeviceID)
		logger.Info("redis connection established", "device_id", cfg.DeviceID)
	}

	// --- Fleet archive ----------------------------------------------------
	hub := stream.NewHub(rdb, logger)
	fleet := service.NewFleetService(repo.NewTripRepo(pool), repo.NewStopRepo(pool), hub, logger)

	// --- Live session -----------------------------------------------------
	fixes := geo.NewFeed(logger)
	opts := session.Options{
		Store:      tripStore,
		Archive:    fleet,
		Geolocator: fixes,
		Logger:     logger,
		AITimeout:  cfg.AITimeout,
		FixTimeout: cfg.FixTimeout,
	}
	if cfg.Gemini.APIKey != "" {
		client := gemini.New(gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			BaseURL:     cfg.Gemini.BaseURL,
			TextModel:   cfg.Gemini.TextModel,
			SpeechModel: cfg.Gemini.SpeechModel,
			Voice:       cfg.Gemini.Voice,
			MaxRetries:  cfg.Gemini.MaxRetries,
		}, logger)
		opts.Advisor = advisor.New(client)
		opts.Speaker = client
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI features will answer with fallback texts")
	}
	sess, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srv := handler.NewServer(handler.Deps{
		Driver:  sess,
		Fleet:   fleet,
		Fixes:   fixes,
		Feed:    stream.ServeFeed(hub, logger),
		OpenAPI: openapi.Document,
		Logger:  logger,
	})
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is left to the handlers: websocket feeds and AI calls
	// outlive a fixed write deadline.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		// In-flight requests get up to 15 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
