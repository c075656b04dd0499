package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/workflow"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultTopic = "household-events"

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

	psClient, err := config.NewPubSubClient(sigCtx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub"}).Error(err)
		os.Exit(1)
	}
	defer psClient.Close()

	topicName := strings.TrimSpace(os.Getenv("PUBSUB_TOPIC"))
	if topicName == "" {
		topicName = defaultTopic
	}
	if _, err := config.CreateTopicIfNotExists(psClient, topicName); err != nil {
		logger.WithFields(logrus.Fields{"field": "pubsub", "topic": topicName}).Error(err)
		os.Exit(1)
	}

	dispatcher := workflow.NewOutboxDispatcher(db, logger, psClient, topicName)

	logger.WithFields(logrus.Fields{
		"topic":         topicName,
		"dispatcher_id": dispatcher.DispatcherID,
	}).Info("outbox dispatcher started")

	dispatcher.Run(sigCtx)
}
