// Package numbering allocates the year-scoped business codes (client codes,
// policy, slip and endorsement numbers) from durable counters.
package numbering

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceKey identifies one counter. Subtype is "" when the scope has none.
type SequenceKey struct {
	Scope   models.SequenceScope
	Year    int
	Subtype string
}

// SequenceStore hands out strictly increasing, gapless values per key.
//
// Each attempt runs in its own transaction (a savepoint when the store is bound
// to a caller's transaction through WithTx): lock the counter row, create it
// with last_allocated=1 if absent, else bump it with a compare-and-swap.
// Conflicting attempts are retried up to MaxRetries times. A bound store does
// not retry deadlocks or lock wait timeouts: InnoDB may already have rolled
// back the caller's transaction, so the caller must rerun its whole unit of
// work (see IsTransactionAborted).
type SequenceStore struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	MaxRetries   int
	RetryBackoff time.Duration

	bound bool
}

func NewSequenceStore(db *gorm.DB, logger *logrus.Logger) *SequenceStore {
	return &SequenceStore{
		DB:           db,
		Logger:       logger,
		MaxRetries:   config.SequenceMaxRetries(),
		RetryBackoff: 20 * time.Millisecond,
	}
}

// WithTx returns a copy of the store bound to tx. Values allocated through it
// are rolled back together with tx.
func (s *SequenceStore) WithTx(tx *gorm.DB) *SequenceStore {
	c := *s
	c.DB = tx
	c.bound = true
	return &c
}

// errSequenceConflict marks an attempt that lost a race and may be retried.
var errSequenceConflict = errors.New("sequence counter conflict")

func (s *SequenceStore) Allocate(ctx context.Context, key SequenceKey) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("sequence store has no database")
	}
	if key.Scope == "" || key.Year <= 0 {
		return 0, utils.ValidationFailed("sequence_key", "scope and year are required")
	}
	maxRetries := s.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		value, err := s.allocateOnce(ctx, key)
		if err == nil {
			return value, nil
		}
		if s.bound && IsTransactionAborted(err) {
			return 0, err
		}
		if !isConflictErr(err) {
			return 0, err
		}
		lastErr = err
		if attempt < maxRetries && s.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(s.RetryBackoff * time.Duration(attempt)):
			}
		}
	}

	exhausted := &utils.SequenceExhaustedError{
		Scope:    string(key.Scope),
		Year:     key.Year,
		Subtype:  key.Subtype,
		Attempts: maxRetries,
		Err:      lastErr,
	}
	config.LogError(s.Logger, "SequenceStore", "Allocate", "sequence exhausted", key, exhausted)
	return 0, exhausted
}

func (s *SequenceStore) allocateOnce(ctx context.Context, key SequenceKey) (int64, error) {
	var allocated int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter models.SequenceCounter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("scope = ? AND year = ? AND subtype = ?", key.Scope, key.Year, key.Subtype).
			Limit(1).
			Find(&counter).Error
		if err != nil {
			return err
		}

		if counter.ID == 0 {
			counter = models.SequenceCounter{
				Scope:         key.Scope,
				Year:          key.Year,
				Subtype:       key.Subtype,
				LastAllocated: 1,
			}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
			allocated = 1
			return nil
		}

		res := tx.Model(&models.SequenceCounter{}).
			Where("id = ? AND last_allocated = ?", counter.ID, counter.LastAllocated).
			Updates(map[string]interface{}{
				"last_allocated": gorm.Expr("last_allocated + 1"),
				"updated_at":     time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errSequenceConflict
		}
		allocated = counter.LastAllocated + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return allocated, nil
}

// IsTransactionAborted reports MySQL deadlocks (1213) and lock wait timeouts
// (1205). After either the enclosing transaction can no longer be trusted and
// must be retried from the start.
func IsTransactionAborted(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// isConflictErr reports errors that mean "another allocator got there first".
func isConflictErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errSequenceConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062, 1213, 1205:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "duplicate entry")
}
