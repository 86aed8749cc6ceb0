// Package main is the entry point for the trip conversation API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
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
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tripchat/backend/internal/config"
	"github.com/pkordes/tripchat/backend/internal/generator"
	"github.com/pkordes/tripchat/backend/internal/geocode"
	"github.com/pkordes/tripchat/backend/internal/handler"
	"github.com/pkordes/tripchat/backend/internal/intent"
	"github.com/pkordes/tripchat/backend/internal/mapcache"
	"github.com/pkordes/tripchat/backend/internal/middleware"
	"github.com/pkordes/tripchat/backend/internal/mutation"
	"github.com/pkordes/tripchat/backend/internal/repo"
	"github.com/pkordes/tripchat/backend/internal/service"
	"github.com/pkordes/tripchat/backend/internal/session"
	"github.com/pkordes/tripchat/backend/migrations"
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
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Geocoding --------------------------------------------------------
	tables, err := geocode.LoadTables()
	if err != nil {
		slog.Error("failed to load geocode tables", "error", err)
		os.Exit(1)
	}
	var remote geocode.RemoteCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The shared cache is an optimization; run without it.
			slog.Warn("redis unavailable, geocode cache is per-session only", "error", err)
		} else {
			remote = geocode.NewRedisCache(rdb, cfg.GeocodeCacheTTL)
			slog.Info("redis geocode cache enabled")
		}
	}
	nominatim := geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderUserAgent, &http.Client{Timeout: cfg.GeocodeTimeout})

	// --- Generator --------------------------------------------------------
	model, err := generator.NewGeminiModel(ctx, generator.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeneratorTimeout,
		RPS:     cfg.GeneratorRPS,
	})
	if err != nil {
		slog.Error("failed to create generator", "error", err)
		os.Exit(1)
	}
	gen := generator.NewClient(model)

	// --- Services ---------------------------------------------------------
	repos := repo.NewRepos(pool)
	tripSvc := service.NewTripService(repos.Trips)
	itinerarySvc := service.NewItineraryService(repos, repo.NewTransactor(pool))

	// Each trip's map cache gets its own resolver so the in-memory geocode
	// cache lives exactly as long as the trip's session.
	maps := mapcache.NewRegistry(itinerarySvc, func() mapcache.Geocoder {
		return geocode.NewResolver(geocode.Options{
			Provider: nominatim,
			Tables:   tables,
			Timeout:  cfg.GeocodeTimeout,
			Remote:   remote,
			Logger:   logger,
		})
	}, logger)
	defer maps.Close()

	executor := mutation.NewExecutor(itinerarySvc, gen, maps, mutation.NewKeywordPolicy(), logger)
	exportSvc := service.NewExportService(repos.Trips, repos.Days, executor)

	sessions := session.NewManager(session.Deps{
		Store:        itinerarySvc,
		Executor:     executor,
		Classifier:   intent.NewClassifier(gen, logger),
		Alternatives: gen,
		Transcript:   repos.Messages,
		Maps:         maps,
	}, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → body limit.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP, which the
	// chat rate limiter keys on.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	api := handler.NewServer(tripSvc, itinerarySvc, exportSvc, handler.NewSessions(sessions), executor).
		WithChatMiddleware(middleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst).Handler)
	r.Mount("/", api.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout must outlast a full itinerary regeneration.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GeneratorTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies every pending migration from the embedded FS.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}
