package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/premium"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RatingSource resolves the effective rating of a line/sub-line. db is the
// handle the caller is working on (usually its transaction).
type RatingSource interface {
	ResolveRating(ctx context.Context, db *gorm.DB, lineId int, subLineId *int) (premium.LineRating, error)
}

// DBRatingSource reads the rating configuration from the line tables.
type DBRatingSource struct{}

func (DBRatingSource) ResolveRating(ctx context.Context, db *gorm.DB, lineId int, subLineId *int) (premium.LineRating, error) {
	line, err := load[models.LineOfBusiness](db.WithContext(ctx), "line of business", lineId)
	if err != nil {
		return premium.LineRating{}, err
	}
	rating, err := line.Rating()
	if err != nil {
		return premium.LineRating{}, err
	}
	if subLineId == nil || *subLineId == 0 {
		return rating, nil
	}

	var sub models.SubLineOfBusiness
	err = db.WithContext(ctx).Where("id = ? AND line_of_business_id = ?", *subLineId, lineId).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return premium.LineRating{}, notFound("sub-line of business", *subLineId)
	}
	if err != nil {
		return premium.LineRating{}, err
	}
	override, err := sub.Override()
	if err != nil {
		return premium.LineRating{}, err
	}
	return premium.Resolve(rating, override), nil
}

// CachedRatingSource keeps resolved ratings in Redis for TTL. Cache failures
// fall through to Source.
type CachedRatingSource struct {
	Source RatingSource
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func ratingCacheKey(lineId int, subLineId *int) string {
	sub := 0
	if subLineId != nil {
		sub = *subLineId
	}
	return fmt.Sprintf("rating:%d:%d", lineId, sub)
}

func (c CachedRatingSource) ResolveRating(ctx context.Context, db *gorm.DB, lineId int, subLineId *int) (premium.LineRating, error) {
	if c.Redis == nil {
		return c.Source.ResolveRating(ctx, db, lineId, subLineId)
	}
	key := ratingCacheKey(lineId, subLineId)

	cached, err := c.Redis.Get(ctx, key).Bytes()
	if err == nil {
		var rating premium.LineRating
		if jsonErr := json.Unmarshal(cached, &rating); jsonErr == nil {
			return rating, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.warn(key, err)
	}

	rating, err := c.Source.ResolveRating(ctx, db, lineId, subLineId)
	if err != nil {
		return premium.LineRating{}, err
	}
	if data, jsonErr := json.Marshal(rating); jsonErr == nil {
		if setErr := c.Redis.Set(ctx, key, data, c.TTL).Err(); setErr != nil {
			c.warn(key, setErr)
		}
	}
	return rating, nil
}

// Invalidate drops the cached rating after its configuration changed.
func (c CachedRatingSource) Invalidate(ctx context.Context, lineId int, subLineId *int) error {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Del(ctx, ratingCacheKey(lineId, subLineId)).Err()
}

func (c CachedRatingSource) warn(key string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.WithFields(logrus.Fields{
		"field":     "CachedRatingSource",
		"cache_key": key,
	}).Warn("rating cache unavailable: " + err.Error())
}
