// Package workflow drives the brokerage state machines: RFQ to policy
// conversion, broking slips, renewal, cancellation, auto-expiry and
// endorsements. Every operation runs in one gorm transaction; rows are locked
// with SELECT ... FOR UPDATE and written with a version compare-and-swap.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/numbering"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("brokerage-workflow")

// Engine carries the collaborators of every workflow operation. Locker is
// optional: when set, transitions take a short per-entity lock before opening
// their transaction.
type Engine struct {
	DB            *gorm.DB
	Codes         *numbering.Allocator
	Ratings       RatingSource
	Locker        EntityLocker
	Logger        *logrus.Logger
	Now           func() time.Time
	OverrideRoles []string
	SlipValidity  time.Duration
}

func NewEngine(db *gorm.DB, logger *logrus.Logger) *Engine {
	e := &Engine{
		DB:            db,
		Ratings:       DBRatingSource{},
		Logger:        logger,
		Now:           time.Now,
		OverrideRoles: config.OverrideAuthorityRoles(),
		SlipValidity:  time.Duration(config.SlipValidityDays()) * 24 * time.Hour,
	}
	codes := numbering.NewAllocator(numbering.NewSequenceStore(db, logger))
	codes.Now = e.now
	e.Codes = codes
	return e
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

const (
	maxTxAttempts  = 3
	txRetryBackoff = 25 * time.Millisecond
)

// run executes fn in a transaction and reports the outcome: business-rule
// rejections at info level, everything else as an error. A transaction the
// database aborted (deadlock victim, lock wait timeout) is rerun from the
// start, so fn must not keep state across calls.
func (e *Engine) run(ctx context.Context, op string, lockKey string, attrs []attribute.KeyValue, fn func(tx *gorm.DB) error) error {
	ctx, span := tracer.Start(ctx, "workflow."+op, trace.WithAttributes(attrs...))
	defer span.End()

	if e.Locker != nil && lockKey != "" {
		release := e.Locker.Lock(ctx, lockKey)
		defer release()
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = e.DB.WithContext(ctx).Transaction(fn)
		if err == nil || !numbering.IsTransactionAborted(err) || attempt >= maxTxAttempts {
			break
		}
		span.AddEvent("transaction retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		timer := time.NewTimer(txRetryBackoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			e.report(span, op, lockKey, ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		e.report(span, op, lockKey, err)
	}
	return err
}

func (e *Engine) report(span trace.Span, op string, ref string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if utils.IsInfrastructureError(err) {
		config.LogError(e.Logger, "Workflow", op, "operation failed", ref, err)
		return
	}
	code, _ := utils.ErrorCodeOf(err)
	span.SetAttributes(attribute.String("error.code", string(code)))
	config.LogRejection(e.Logger, "Workflow", op, string(code), map[string]any{
		"ref":     ref,
		"details": utils.ErrorDetailsOf(err),
	})
}

// loadForUpdate locks the row and maps a missing row to NOT_FOUND.
func loadForUpdate[T any](tx *gorm.DB, entity string, id int) (*T, error) {
	var row T
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// load reads without locking.
func load[T any](tx *gorm.DB, entity string, id int) (*T, error) {
	var row T
	err := tx.First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// casUpdate applies updates only if the row still has the version that was read.
func casUpdate(tx *gorm.DB, model any, entity string, id int, version int, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewDomainError(utils.ErrCodeConflict,
			fmt.Sprintf("%s %d was modified concurrently", entity, id),
			map[string]any{"entity": entity, "id": id, "version": version})
	}
	return nil
}

func notFound(entity string, id int) error {
	return utils.NewDomainError(utils.ErrCodeNotFound,
		fmt.Sprintf("%s %d not found", entity, id),
		map[string]any{"entity": entity, "id": id})
}

func entityLockKey(entity string, id int) string {
	return fmt.Sprintf("%s:%d", entity, id)
}
