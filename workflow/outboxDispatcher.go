package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publisher delivers a lifecycle message and returns the broker's message ID.
// config.PubSubPublisher is the production implementation.
type Publisher interface {
	Publish(ctx context.Context, msg config.LifecycleMessage) (string, error)
}

// OutboxDispatcher publishes committed LifecycleEvent rows. Rows are claimed
// with FOR UPDATE SKIP LOCKED so several instances can run side by side;
// failures back off exponentially and go DEAD after MaxAttempts.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Publisher    Publisher
	Logger       *logrus.Logger
	DispatcherID string
	Now          func() time.Time

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, publisher Publisher, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Publisher:      publisher,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		Now:            time.Now,
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. It returns how many events were sent.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.DB == nil || d.Publisher == nil {
		return 0
	}
	now := d.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)

	var claimed []models.LifecycleEvent
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// PENDING/FAILED rows that are due, plus PROCESSING rows whose claimer died.
		q := tx.
			Where(`
				(
					publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				)
				OR
				(
					publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?
				)
			`, []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now, models.OutboxPublishStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].PublishAttempts >= d.MaxAttempts {
				msg := "max publish attempts exceeded"
				claimed[i].PublishStatus = models.OutboxPublishStatusDead
				if err := tx.Model(&models.LifecycleEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"publish_status":     models.OutboxPublishStatusDead,
					"last_publish_error": &msg,
					"next_attempt_at":    nil,
					"locked_at":          nil,
					"locked_by":          nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].PublishStatus = models.OutboxPublishStatusProcessing
			claimed[i].PublishAttempts++
			if err := tx.Model(&models.LifecycleEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          now,
				"locked_by":          d.DispatcherID,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "DispatchOnce", "claim batch", nil, err)
		return 0
	}

	sent := 0
	for _, event := range claimed {
		if event.PublishStatus == models.OutboxPublishStatusDead {
			continue
		}
		msgID, pubErr := d.Publisher.Publish(ctx, models.ConvertToLifecycleMessage(event))
		if pubErr != nil {
			d.markPublishFailed(ctx, event, pubErr)
			continue
		}
		d.markPublishSent(ctx, event.ID, msgID)
		sent++
	}
	return sent
}

func (d *OutboxDispatcher) markPublishSent(ctx context.Context, eventID int, msgID string) {
	now := d.Now().UTC()
	err := d.DB.WithContext(ctx).Model(&models.LifecycleEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusSent,
			"published_at":       now,
			"pub_sub_message_id": msgID,
			"locked_at":          nil,
			"locked_by":          nil,
			"next_attempt_at":    nil,
		}).Error
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "markPublishSent", "update event", eventID, err)
	}
}

func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, event models.LifecycleEvent, pubErr error) {
	db := d.DB.WithContext(ctx)
	msg := pubErr.Error()
	attempt := event.PublishAttempts

	if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
		err := db.Model(&models.LifecycleEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusDead,
				"last_publish_error": msg,
				"next_attempt_at":    nil,
				"locked_at":          nil,
				"locked_by":          nil,
			}).Error
		if err != nil {
			config.LogError(d.Logger, "OutboxDispatcher", "markPublishFailed", "update event to DEAD", event.ID, err)
		}
		config.LogError(d.Logger, "OutboxDispatcher", "markPublishFailed", "moved to DEAD after max attempts", map[string]any{
			"event_id": event.EventId,
			"attempt":  attempt,
		}, pubErr)
		return
	}

	next := d.Now().UTC().Add(publishBackoff(d.InitialBackoff, attempt))
	err := db.Model(&models.LifecycleEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusFailed,
			"last_publish_error": msg,
			"next_attempt_at":    next,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
	if err != nil {
		// The row stays PROCESSING until the stale-lock reclaim picks it up.
		config.LogError(d.Logger, "OutboxDispatcher", "markPublishFailed", "update event to FAILED", event.ID, err)
		return
	}

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":           "OutboxDispatcher",
			"event_id":        event.EventId,
			"event_type":      event.EventType,
			"attempt":         attempt,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		}).Warn("outbox publish failed: " + msg)
	}
}

// publishBackoff doubles per attempt, capped at ten minutes.
func publishBackoff(initial time.Duration, attempt int) time.Duration {
	backoff := initial
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}
