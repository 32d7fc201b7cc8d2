package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/campusnet/backend/internal/repositories"
	"github.com/campusnet/backend/internal/services"
	"github.com/campusnet/backend/pkg/cache"
	"github.com/campusnet/backend/pkg/changefeed"
	"github.com/campusnet/backend/pkg/config"
	"github.com/campusnet/backend/pkg/logger"
	"github.com/campusnet/backend/pkg/realtime"
)

// The dispatcher consumes the change feed and materializes notifications,
// pushing live updates over the realtime hub.
func main() {
	log := logger.NewLogger()
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to databases")
	}
	defer db.CloseDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisClient.Ping(ctx); err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	notifRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	convRepo := repositories.NewPostgresConversationRepository(db.Postgres)
	hub := realtime.NewHub(redisClient.Client())

	dispatcher := services.NewDispatcher(notifRepo, userRepo, convRepo, hub, log)

	consumer := changefeed.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	log.WithField("topic", cfg.KafkaTopic).Info("Dispatcher consuming change feed")
	err = consumer.Consume(ctx, func(event changefeed.Event) error {
		return dispatcher.HandleEvent(ctx, event)
	}, func(err error) {
		log.WithError(err).Error("Failed to handle change event")
	})
	if err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("Consumer stopped")
	}
	log.Info("Dispatcher shut down")
}
