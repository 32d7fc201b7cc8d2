package main

import (
	"context"

	"github.com/campusnet/backend/internal/router"
	"github.com/campusnet/backend/pkg/cache"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/config"
	"github.com/campusnet/backend/pkg/firebase"
	"github.com/campusnet/backend/pkg/logger"
)

func main() {
	log := logger.NewLogger()
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to databases")
	}
	defer db.CloseDB()

	ctx := context.Background()

	var fbApp *firebase.App
	if cfg.StorageBucket != "" {
		fbApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket)
		if err != nil {
			log.WithError(err).Warn("Firebase unavailable, auth token exchange and uploads disabled")
			fbApp = nil
		}
	}

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisClient.Ping(ctx); err != nil {
		log.WithError(err).Warn("Redis unavailable, caching and realtime stream disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	producer := changefeed.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	e, err := router.New(router.Deps{
		Cfg:      cfg,
		DB:       db,
		Firebase: fbApp,
		Redis:    redisClient,
		Feed:     producer,
		Log:      log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize server")
	}

	log.WithField("port", cfg.Port).Info("Starting API server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
