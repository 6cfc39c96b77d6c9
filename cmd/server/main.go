package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/barrybecker4/applets-sub001/internal/analysis"
	"github.com/barrybecker4/applets-sub001/internal/audit"
	"github.com/barrybecker4/applets-sub001/internal/auth"
	"github.com/barrybecker4/applets-sub001/internal/cachestore"
	"github.com/barrybecker4/applets-sub001/internal/config"
	"github.com/barrybecker4/applets-sub001/internal/db"
	"github.com/barrybecker4/applets-sub001/internal/eventbus"
	"github.com/barrybecker4/applets-sub001/internal/handlers"
	"github.com/barrybecker4/applets-sub001/internal/metrics"
	"github.com/barrybecker4/applets-sub001/internal/middleware"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.Environment == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := log.With().Str("component", "server").Logger()
	logger.Info().Str("env", cfg.Environment).Msg("starting game search server")

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)
	serviceOpts := []analysis.Option{
		analysis.WithMetrics(m),
		analysis.WithInstance(hostname),
	}

	// Connect to MongoDB when configured; without it analyses live in memory
	var (
		mongodb    *db.MongoDB
		eventsColl *mongo.Collection
		health     handlers.Pinger
	)
	if cfg.MongoDB.URI != "" {
		mongodb, err = db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongodb.Close(ctx)
		}()
		logger.Info().Str("database", cfg.MongoDB.Database).Msg("connected to MongoDB")

		serviceOpts = append(serviceOpts, analysis.WithRepository(analysis.NewMongoRepository(mongodb)))
		eventsColl = mongodb.AnalysisEvents()
		health = mongodb
	} else {
		logger.Warn().Msg("no MongoDB configured, analyses will not be persisted")
	}

	svc, err := analysis.NewService(cfg.AnalysisConfig(), serviceOpts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create analysis service")
	}

	// Restore score caches saved by the previous run
	store, err := cachestore.Open(cfg.CacheStore, log.Logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open cache store")
	}
	defer store.Close()
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), time.Minute)
	if n, err := svc.RestoreCaches(restoreCtx, store); err != nil {
		logger.Warn().Err(err).Msg("failed to restore score caches")
	} else {
		logger.Info().Int("entries", n).Msg("score caches restored")
	}
	cancelRestore()

	// Fail analyses orphaned by a previous crash, then keep reaping
	reaper := analysis.NewReaper(svc)
	reaper.RunImmediateCleanup()
	reaper.Start()

	// Websocket fan-out, local and across instances
	hub := handlers.NewHub(m)
	go hub.Run()
	bus := eventbus.New(eventsColl, hub.BroadcastToAnalysis)
	bus.Start()
	var publish func(string, []byte)
	if eventsColl != nil {
		publish = bus.Publish
	}
	relay := handlers.NewEventRelay(hub, publish)
	svc.AddListener(relay.OnEvent)

	jwtService := auth.NewJWTService(cfg.JWT.AccessSecret, cfg.AccessTTL())
	clients := make([]auth.Client, 0, len(cfg.Clients))
	for _, c := range cfg.Clients {
		clients = append(clients, auth.Client{ID: c.ID, Name: c.Name, SecretHash: c.SecretHash})
	}
	registry := auth.NewClientRegistry(clients)
	logger.Info().Int("clients", registry.Len()).Msg("API clients loaded")

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	defer limiter.Stop()

	// Set up router
	router := mux.NewRouter()
	handlers.RegisterRoutes(router, handlers.Routes{
		Auth:        handlers.NewAuthHandler(registry, jwtService, audit.NewLogger(mongodb)),
		Analyses:    handlers.NewAnalysisHandler(svc, 10*time.Second),
		WebSocket:   handlers.NewWebSocketHandler(hub, svc, cfg.Frontend.URL),
		AuthMW:      middleware.NewAuthMiddleware(jwtService),
		RateLimiter: limiter,
		Health:      handlers.Health(health),
	})
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	reaper.Stop()
	if err := svc.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("analyses did not stop in time")
	}
	relay.Close()
	bus.Stop()
	hub.Stop()

	if n, err := svc.SaveCaches(ctx, store); err != nil {
		logger.Error().Err(err).Msg("failed to save score caches")
	} else {
		logger.Info().Int("entries", n).Msg("score caches saved")
	}

	logger.Info().Msg("server stopped")
}
