package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	redis_adapter "tezui.dashboard/internal/adapters/cache/redis"
	http_handler "tezui.dashboard/internal/adapters/handler/http"
	"tezui.dashboard/internal/adapters/handler/mqtt"
	"tezui.dashboard/internal/adapters/repository/pg"
	"tezui.dashboard/internal/adapters/timeline"
	"tezui.dashboard/internal/config"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/services"
	"tezui.dashboard/internal/core/tracing"
	"tezui.dashboard/internal/syncer"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize structured logger
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Tez UI dashboard server", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	if cfg.EnableTracing {
		shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
		} else {
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracing", "error", err)
				}
			}()
		}
	}

	// Initialize adapters
	backend, err := timeline.New(timeline.Options{
		TimelineURL:       cfg.TimelineURL,
		RMURL:             cfg.RMURL,
		Timeout:           cfg.TimelineTimeout,
		RequestsPerSecond: cfg.TimelineRPS,
	})
	if err != nil {
		log.Fatalf("failed to init timeline client: %v", err)
	}

	repo, err := pg.NewRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to init postgres", "error", err)
		log.Fatalf("failed to init postgres: %v", err)
	}

	cache, redisClient, err := redis_adapter.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to init redis", "error", err)
		log.Fatalf("failed to init redis: %v", err)
	}
	failures := redis_adapter.NewFailedFetches(redisClient)

	// Initialize domain services
	store := services.NewStore(backend,
		services.WithCache(cache, cfg.CacheTTL),
		services.WithRepository(repo),
		services.WithPubSub(cache),
	)
	views := services.NewViews(store, clock.New())
	healthService := services.NewHealthService(repo.DB(), redisClient, backend, version)

	hub := http_handler.NewHub(cache)
	go hub.Run(ctx)
	go hub.ChangeConsumer(ctx)

	if cfg.EnableMQTT {
		mqttPublisher, err := mqtt.NewPublisher(cache, cfg.MQTTBroker)
		if err != nil {
			logger.Error("Failed to init MQTT publisher", "error", err)
		} else {
			mqttPublisher.Start(ctx)
			defer mqttPublisher.Close()
			logger.Info("MQTT publisher started", "broker", cfg.MQTTBroker)
		}
	}

	if cfg.EnableSyncer && len(cfg.SyncApps) > 0 {
		s := syncer.New(store, repo, failures, syncer.Options{
			Apps:        cfg.SyncApps,
			Interval:    cfg.SyncInterval,
			Concurrency: cfg.SyncConcurrency,
		})
		go s.Run(ctx)
	}

	httpServer := http_handler.NewServer(views, healthService, hub)

	// Start HTTP Server
	go func() {
		logger.Info("HTTP Server starting", "port", cfg.HTTPPort)
		if err := httpServer.Run(":" + cfg.HTTPPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			log.Fatalf("failed to serve http: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn("Redis close failed", "error", err)
	}
}
