package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for LifecycleEvent.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// LifecycleEvent is the transactional outbox row of a committed transition.
// It is written in the same transaction as the change it describes; the
// dispatcher publishes it after commit.
type LifecycleEvent struct {
	ID               int        `gorm:"primary_key;index:idx_lifecycle_dispatch,priority:3" json:"id"`
	EventId          string     `gorm:"size:64;not null;uniqueIndex" json:"event_id"`
	EventType        string     `gorm:"size:50;not null;index" json:"event_type"`
	ReferenceType    string     `gorm:"size:20;not null;index:idx_lifecycle_reference,priority:1" json:"reference_type"`
	ReferenceId      int        `gorm:"not null;index:idx_lifecycle_reference,priority:2" json:"reference_id"`
	ActorId          int        `json:"actor_id"`
	OccurredAt       time.Time  `gorm:"not null;index" json:"occurred_at"`
	Payload          []byte     `gorm:"type:blob" json:"payload"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_lifecycle_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_lifecycle_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordLifecycleEvent writes the outbox row using the caller's transaction.
// It does NOT publish.
func RecordLifecycleEvent(ctx context.Context, tx *gorm.DB, eventType string, refType string, refId int, actorId int, occurredAt time.Time, payload any) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}
	event := LifecycleEvent{
		EventId:       uuid.NewString(),
		EventType:     eventType,
		ReferenceType: refType,
		ReferenceId:   refId,
		ActorId:       actorId,
		OccurredAt:    occurredAt.UTC(),
		Payload:       data,
		CorrelationId: correlationIdFromContextOrNew(ctx),
		PublishStatus: OutboxPublishStatusPending,
	}
	return tx.WithContext(ctx).Create(&event).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToLifecycleMessage(event LifecycleEvent) config.LifecycleMessage {
	return config.LifecycleMessage{
		EventId:       event.EventId,
		EventType:     event.EventType,
		ReferenceType: event.ReferenceType,
		ReferenceId:   event.ReferenceId,
		ActorId:       event.ActorId,
		OccurredAt:    event.OccurredAt,
		Payload:       json.RawMessage(event.Payload),
		CorrelationId: event.CorrelationId,
	}
}
