package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/sirupsen/logrus"
)

// EntityLocker serializes transitions on one entity across instances.
// Lock is best-effort: the returned release func is always safe to call, and
// correctness still rests on the row lock and version check.
type EntityLocker interface {
	Lock(ctx context.Context, key string) (release func())
}

type RedisEntityLocker struct {
	Client *redislock.Client
	Logger *logrus.Logger
	TTL    time.Duration
	Wait   time.Duration
}

func NewRedisEntityLocker(client *redislock.Client, logger *logrus.Logger) *RedisEntityLocker {
	return &RedisEntityLocker{
		Client: client,
		Logger: logger,
		TTL:    30 * time.Second,
		Wait:   2 * time.Second,
	}
}

func (l *RedisEntityLocker) Lock(ctx context.Context, key string) func() {
	noop := func() {}
	if l == nil || l.Client == nil {
		return noop
	}
	lockKey := "lock:entity:" + key

	obtainCtx, cancel := context.WithTimeout(ctx, l.Wait)
	defer cancel()
	lock, err := l.Client.Obtain(obtainCtx, lockKey, l.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		l.warn(lockKey, "could not obtain entity lock; proceeding with row lock only", err)
		return noop
	} else if err != nil {
		l.warn(lockKey, "error obtaining entity lock; proceeding with row lock only", err)
		return noop
	}

	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			l.warn(lockKey, "failed to release entity lock", releaseErr)
		}
	}
}

func (l *RedisEntityLocker) warn(key string, msg string, err error) {
	logger := l.Logger
	if logger == nil {
		logger = config.GetLogger()
	}
	logger.WithFields(logrus.Fields{
		"field":    "RedisEntityLocker",
		"lock_key": key,
	}).Warn(msg + ": " + err.Error())
}
