package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/Mudassar864/yaopets-sub001/internal/config"
	"github.com/Mudassar864/yaopets-sub001/internal/handler"
	"github.com/Mudassar864/yaopets-sub001/internal/publisher"
	"github.com/Mudassar864/yaopets-sub001/internal/repository"
	"github.com/Mudassar864/yaopets-sub001/internal/service"
	"github.com/Mudassar864/yaopets-sub001/pkg/db"
	"github.com/Mudassar864/yaopets-sub001/pkg/logger"
	"github.com/Mudassar864/yaopets-sub001/pkg/metrics"
	"github.com/Mudassar864/yaopets-sub001/pkg/validation"
)

func main() {
	log := logger.NewLogger("interaction-service")
	log.Info("Starting Interaction Service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	database, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatal("Failed to apply schema: ", err)
	}
	log.Info("Database connected and schema applied")

	m := metrics.NewMetrics("interaction_service")

	// Event bus is optional; without it writes still succeed
	var pub publisher.EventPublisher = publisher.NopPublisher{}
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(publisher.Config{
			URL:           cfg.NATSURL,
			MaxReconnects: cfg.NATSMaxReconnects,
			ReconnectWait: cfg.NATSReconnectWait,
			ClientID:      "interaction-service",
		}, log)
		if err != nil {
			log.Warn("NATS unavailable, events disabled: ", err)
			pub = publisher.NopPublisher{}
		}
	}
	defer pub.Close()

	var interactionRepo repository.InteractionRepository = repository.NewInteractionRepository(database)
	var postRepo repository.PostRepository = repository.NewPostRepository(database)

	// Counter reads go through redis when configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		postRepo = repository.NewCachedPostRepository(postRepo, redisClient, cfg.RedisCountersTTL, log)
		interactionRepo = repository.NewCachedInteractionRepository(interactionRepo, redisClient, log)
		log.Info("Redis counter cache enabled")
	}

	svc := service.NewInteractionService(interactionRepo, postRepo, pub, m, log)
	h := handler.NewInteractionHandler(svc, validation.New(), log)

	router := mux.NewRouter()
	router.Use(logger.Middleware(log))
	router.Use(metrics.Middleware(m))
	h.Register(router)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metrics.Handler(),
	}

	go func() {
		log.Info("Metrics listening on :", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server error: ", err)
		}
	}()

	go func() {
		log.Info("HTTP listening on :", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: ", err)
		}
	}()

	// Report DB pool stats alongside the scrape endpoint
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := database.Stats()
			m.RecordDBPoolStats(stats.OpenConnections, stats.InUse, stats.Idle, stats.WaitCount, stats.WaitDuration)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown error: ", err)
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Error("Metrics shutdown error: ", err)
	}
	log.Info("Interaction Service stopped")
}
