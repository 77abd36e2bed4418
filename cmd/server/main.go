package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"okrdrift/internal/cache"
	"okrdrift/internal/config"
	"okrdrift/internal/model"
	"okrdrift/internal/platform/logger"
	"okrdrift/internal/repository"
	"okrdrift/internal/service"
	"okrdrift/internal/transport/rest"
	"okrdrift/internal/transport/ws"
)

// @title OKR Drift Report API
// @version 1.0
// @description Drift analysis sessions backed by the OKR analysis service
// @host localhost:8080
// @BasePath /v1
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	log.Info("starting",
		"port", cfg.Port,
		"analysis_url", cfg.Analysis.BaseURL,
		"submit_timeout", cfg.Analysis.SubmitTimeout.String(),
		"progress_cadence", cfg.Analysis.ProgressCadence.String())

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("failed to ping MongoDB", "error", err)
	}
	log.Info("connected to MongoDB", "db", cfg.MongoDB)

	db := mongoClient.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(pingCtx, db); err != nil {
		log.Warn("failed to ensure indexes", "error", err)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to ping Redis", "error", err)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	// Initialize WebSocket hub
	wsHub := ws.NewHub(log)
	defer wsHub.Close()

	// Initialize services
	client := service.NewAnalysisClient(cfg.Analysis.BaseURL, nil, log)
	orchestrator := service.NewOrchestrator(client, cfg.Analysis, log)
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.SessionTTL)
	sessionSvc := service.NewSessionService(
		orchestrator,
		cache.NewSessionCache(rdb, cfg.SessionTTL),
		repository.NewOutcomeRepo(db),
		authSvc,
		log,
	)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionSvc.SetBroadcaster(wsHub)

	// Sessions idle past their token lifetime are dropped from memory and the cache
	sessionSvc.SetIdleTTL(cfg.SessionTTL)
	sessionSvc.StartEviction(cfg.SessionSweep)

	if status := orchestrator.CheckHealth(ctx); status != model.HealthHealthy {
		log.Warn("analysis service not healthy, submissions will use synthetic reports", "status", status)
	}

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		Orchestrator:   orchestrator,
		WSHub:          wsHub,
		Log:            log,
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	sessionSvc.Close()

	log.Info("server exited")
}
