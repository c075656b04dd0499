package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/duitrumah/household_backend/budgetworker"
	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/workflow"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultTopic        = "household-events"
	defaultSubscription = "budget-worker"
)

func main() {
	_ = godotenv.Load()

	logger := config.NewLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	db := config.ConnectDatabaseWithRetry()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	rdb, locker := config.ConnectRedisWithRetry()
	defer func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable(db)
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	psClient, err := config.NewPubSubClient(sigCtx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub"}).Error(err)
		os.Exit(1)
	}
	defer psClient.Close()

	topicName := envOrDefault("PUBSUB_TOPIC", defaultTopic)
	subName := envOrDefault("PUBSUB_SUBSCRIPTION", defaultSubscription)

	topic, err := config.CreateTopicIfNotExists(psClient, topicName)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub", "topic": topicName}).Error(err)
		os.Exit(1)
	}
	sub, err := config.CreateSubscriptionIfNotExists(psClient, subName, topic)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub", "subscription": subName}).Error(err)
		os.Exit(1)
	}

	dispatcher := workflow.NewOutboxDispatcher(db, logger, psClient, topicName)
	go dispatcher.Run(sigCtx)

	tracker := workflow.NewSpendTracker(db, logger, rdb)
	worker := budgetworker.NewWorker(db, logger, locker, sub, tracker)

	logger.WithFields(logrus.Fields{
		"topic":        topicName,
		"subscription": subName,
	}).Info("budget worker started")

	if err := worker.Run(sigCtx); err != nil && sigCtx.Err() == nil {
		logger.WithFields(logrus.Fields{"field": "worker"}).Error(err)
		os.Exit(1)
	}
}

func envOrDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}
