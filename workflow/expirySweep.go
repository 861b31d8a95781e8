package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type ExpiryCandidate struct {
	PolicyId       int                 `json:"policy_id"`
	PolicyNumber   string              `json:"policy_number"`
	ClientId       int                 `json:"client_id"`
	EndDate        time.Time           `json:"end_date"`
	PreviousStatus models.PolicyStatus `json:"previous_status"`
	Expired        bool                `json:"expired"`
}

type ExpiryReport struct {
	AsOf       time.Time         `json:"as_of"`
	DryRun     bool              `json:"dry_run"`
	Candidates []ExpiryCandidate `json:"candidates"`
	Expired    int               `json:"expired"`
}

// expirableStatuses are the statuses auto-expiry may overwrite. NULL and ''
// (legacy rows) are matched separately.
var expirableStatuses = []models.PolicyStatus{models.PolicyStatusActive, models.PolicyStatusPending}

func expiryScope(db *gorm.DB, cutoff time.Time) *gorm.DB {
	return db.Where("end_date < ?", cutoff).
		Where("auto_expired = ?", false).
		Where("(status IN ? OR status IS NULL OR status = '')", expirableStatuses)
}

// ExpirePolicies marks every policy whose end date is on or before asOf's day
// as expired. Cancelled, expired and already auto-expired rows are never
// touched, so running it again the same day changes nothing. With dryRun the
// candidates are reported and nothing is written.
func (e *Engine) ExpirePolicies(ctx context.Context, asOf time.Time, dryRun bool) (*ExpiryReport, error) {
	asOf = asOf.UTC()
	cutoff := utils.StartOfDay(asOf).AddDate(0, 0, 1)
	report := &ExpiryReport{AsOf: asOf, DryRun: dryRun, Candidates: []ExpiryCandidate{}}

	attrs := []attribute.KeyValue{attribute.String("expiry.as_of", asOf.Format("2006-01-02")), attribute.Bool("expiry.dry_run", dryRun)}
	err := e.run(ctx, "ExpirePolicies", "", attrs, func(tx *gorm.DB) error {
		report.Candidates = []ExpiryCandidate{}
		report.Expired = 0
		var policies []models.Policy
		if err := expiryScope(tx.Model(&models.Policy{}), cutoff).Order("end_date ASC, id ASC").Find(&policies).Error; err != nil {
			return err
		}
		now := e.now()
		for _, p := range policies {
			candidate := ExpiryCandidate{
				PolicyId:       p.ID,
				PolicyNumber:   p.PolicyNumber,
				ClientId:       p.ClientId,
				EndDate:        p.EndDate,
				PreviousStatus: p.CurrentStatus(),
			}
			if !dryRun {
				// Guards repeated so a row changed since the read is skipped.
				res := expiryScope(tx.Model(&models.Policy{}), cutoff).
					Where("id = ?", p.ID).
					Updates(map[string]interface{}{
						"status":            models.PolicyStatusExpired,
						"auto_expired":      true,
						"last_status_check": now,
						"version":           gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 1 {
					candidate.Expired = true
					report.Expired++
					if err := models.RecordLifecycleEvent(ctx, tx, models.EventPolicyExpired, models.ReferenceTypePolicy, p.ID, 0, now, map[string]any{
						"previous_status": candidate.PreviousStatus,
						"end_date":        p.EndDate,
					}); err != nil {
						return err
					}
				}
			}
			report.Candidates = append(report.Candidates, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ExpirySweeper runs ExpirePolicies on a fixed interval until ctx is done.
type ExpirySweeper struct {
	Engine   *Engine
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewExpirySweeper(engine *Engine, interval time.Duration, logger *logrus.Logger) *ExpirySweeper {
	return &ExpirySweeper{Engine: engine, Interval: interval, Logger: logger}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *ExpirySweeper) sweepOnce(ctx context.Context) {
	report, err := s.Engine.ExpirePolicies(ctx, s.Engine.now(), false)
	if err != nil {
		// already logged by the engine
		return
	}
	if s.Logger != nil && report.Expired > 0 {
		s.Logger.WithFields(logrus.Fields{
			"field":   "ExpirySweeper",
			"as_of":   report.AsOf.Format(time.RFC3339),
			"expired": report.Expired,
		}).Info("auto-expiry sweep completed")
	}
}
