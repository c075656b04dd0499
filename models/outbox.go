package models

import (
	"time"

	"github.com/duitrumah/household_backend/config"
)

// EventRecord is the transactional outbox row. It is inserted in the same DB
// transaction as the state change it describes; a dispatcher publishes it to
// the bus after commit.
type EventRecord struct {
	ID          int       `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	HouseholdId string    `gorm:"size:64;not null;index" json:"household_id"`
	EventName   string    `gorm:"size:64;not null;index" json:"event_name"`
	OccurredAt  time.Time `gorm:"index;not null" json:"occurred_at"`
	Payload     []byte    `gorm:"type:blob" json:"payload"`
	// Publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToEventMessage(record EventRecord) config.EventMessage {
	return config.EventMessage{
		ID:            record.ID,
		HouseholdId:   record.HouseholdId,
		EventName:     record.EventName,
		OccurredAt:    record.OccurredAt,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}
