// Package budgetworker consumes transaction lifecycle events from the bus and
// feeds them to the spend tracker. Delivery is at-least-once; durable
// idempotency keys make redelivery safe, and handler failures are logged and
// nacked without ever propagating back to the transaction write path.
package budgetworker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/duitrumah/household_backend/config"
	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/duitrumah/household_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Worker struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Locker       *redislock.Client
	Subscription *pubsub.Subscription
	Tracker      *workflow.SpendTracker
}

func NewWorker(db *gorm.DB, logger *logrus.Logger, locker *redislock.Client, sub *pubsub.Subscription, tracker *workflow.SpendTracker) *Worker {
	return &Worker{
		DB:           db,
		Logger:       logger,
		Locker:       locker,
		Subscription: sub,
		Tracker:      tracker,
	}
}

var handledEvents = map[string]models.EventAction{
	models.EventTransactionCreated: models.EventActionCreate,
	models.EventTransactionUpdated: models.EventActionUpdate,
	models.EventTransactionDeleted: models.EventActionDelete,
}

// Run blocks on the subscription until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	return w.Subscription.Receive(ctx, func(msgCtx context.Context, m *pubsub.Message) {
		if err := w.handleMessage(msgCtx, m); err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

func (w *Worker) handleMessage(ctx context.Context, m *pubsub.Message) error {
	var envelope config.EventMessage
	if err := json.Unmarshal(m.Data, &envelope); err != nil {
		// Malformed envelope: ack, a redelivery cannot fix it.
		config.LogError(w.Logger, "worker.go", "handleMessage", "Unmarshal envelope", string(m.Data), err)
		return nil
	}

	action, handled := handledEvents[envelope.EventName]
	if !handled {
		return nil
	}
	if envelope.HouseholdId == "" {
		config.LogError(w.Logger, "worker.go", "handleMessage", "envelope", envelope.EventName, errors.New("household id missing"))
		return nil
	}

	var ev workflow.TransactionEvent
	if err := json.Unmarshal(envelope.Payload, &ev); err != nil {
		config.LogError(w.Logger, "worker.go", "handleMessage", "Unmarshal payload", envelope.EventName, err)
		return nil
	}
	ev.HouseholdId = envelope.HouseholdId
	ev.Action = action

	ctx = utils.SetHouseholdIdInContext(ctx, envelope.HouseholdId)
	if envelope.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, envelope.CorrelationId)
	}

	// Serialize handling per household so concurrent deliveries cannot
	// interleave inside handlers for the same budgets.
	if w.Locker != nil {
		lock, err := w.Locker.Obtain(ctx, "SpendTracker:"+envelope.HouseholdId, 30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 50),
		})
		if err != nil {
			config.LogError(w.Logger, "worker.go", "handleMessage", "Obtain lock", envelope.HouseholdId, err)
			return err
		}
		defer lock.Release(ctx)
	}

	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, err := workflow.BeginIdempotency(tx, envelope.HouseholdId, envelope.EventName, m.ID)
		if err != nil {
			return err
		}
		if skip {
			return nil
		}
		if err := w.Tracker.Process(ctx, tx, ev); err != nil {
			return err
		}
		return workflow.MarkIdempotencySucceeded(tx, envelope.HouseholdId, envelope.EventName, m.ID)
	})
	if err != nil {
		// Best-effort semantics: the failure never reaches the transaction
		// writer. Record it, let the bus redeliver.
		config.LogError(w.Logger, "worker.go", "handleMessage", "Process", envelope.EventName, err)
		_ = workflow.MarkIdempotencyFailed(w.DB.WithContext(ctx), envelope.HouseholdId, envelope.EventName, m.ID, err)
		return err
	}
	return nil
}
