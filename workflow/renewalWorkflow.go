package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/premium"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RenewPolicyInput adjusts the renewed premium by AdjustmentPercent when set.
// The new period defaults to the day after the old end date, for one year.
type RenewPolicyInput struct {
	AdjustmentPercent *decimal.Decimal `json:"adjustment_percent"`
	StartDate         *time.Time       `json:"start_date"`
	EndDate           *time.Time       `json:"end_date"`
}

// RenewPolicy creates the follow-on policy and links both rows in one
// transaction. A policy can be renewed once.
//
// The adjusted premium is not bounded: a large negative adjustment yields a
// negative premium, as the renewal desk has always worked.
func (e *Engine) RenewPolicy(ctx context.Context, actor models.Actor, policyId int, input RenewPolicyInput) (*models.Policy, error) {
	var renewal models.Policy
	err := e.run(ctx, "RenewPolicy", entityLockKey("policy", policyId), policyAttrs(policyId), func(tx *gorm.DB) error {
		original, err := loadForUpdate[models.Policy](tx, "policy", policyId)
		if err != nil {
			return err
		}
		if original.RenewedToPolicyId != nil {
			return alreadyRenewed(original.ID, *original.RenewedToPolicyId)
		}
		if effectivePolicyStatus(original) == models.PolicyStatusCancelled {
			return utils.NewDomainError(utils.ErrCodeInvalidTransition,
				"cannot renew a cancelled policy",
				map[string]any{"entity": "policy", "id": original.ID, "current": string(models.PolicyStatusCancelled)})
		}

		gross := original.GrossPremium
		if input.AdjustmentPercent != nil {
			gross = premium.ApplyPercentAdjustment(gross, *input.AdjustmentPercent)
		}
		start := utils.StartOfDay(original.EndDate).AddDate(0, 0, 1)
		if input.StartDate != nil {
			start = input.StartDate.UTC()
		}
		end := start.AddDate(1, 0, -1)
		if input.EndDate != nil {
			end = input.EndDate.UTC()
		}
		if end.Before(start) {
			return utils.ValidationFailed("end_date", "end date must not be before start date")
		}

		number, err := e.Codes.WithTx(tx).NextPolicyNumber(ctx)
		if err != nil {
			return err
		}
		status := models.PolicyStatusDraft
		fromId := original.ID
		renewal = models.Policy{
			PolicyNumber:        number,
			ClientId:            original.ClientId,
			InsurerId:           original.InsurerId,
			LineOfBusinessId:    original.LineOfBusinessId,
			SubLineOfBusinessId: original.SubLineOfBusinessId,
			SumInsured:          original.SumInsured,
			GrossPremium:        gross,
			Currency:            original.Currency,
			StartDate:           start,
			EndDate:             end,
			Status:              &status,
			RenewedFromPolicyId: &fromId,
			Version:             1,
			CreatedBy:           actor.UserId,
		}
		if err := tx.Create(&renewal).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return alreadyRenewed(original.ID, 0)
			}
			return err
		}
		if err := casUpdate(tx, &models.Policy{}, "policy", original.ID, original.Version, map[string]interface{}{
			"renewed_to_policy_id": renewal.ID,
		}); err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventPolicyRenewed, models.ReferenceTypePolicy, original.ID, actor.UserId, e.now(), map[string]any{
			"renewed_to_policy_id": renewal.ID,
			"policy_number":        renewal.PolicyNumber,
			"previous_premium":     original.GrossPremium,
			"gross_premium":        renewal.GrossPremium,
			"adjustment_percent":   input.AdjustmentPercent,
		})
	})
	if err != nil {
		return nil, err
	}
	return &renewal, nil
}

func alreadyRenewed(policyId int, renewedTo int) error {
	details := map[string]any{"policy_id": policyId}
	if renewedTo != 0 {
		details["renewed_to_policy_id"] = renewedTo
	}
	return utils.NewDomainError(utils.ErrCodeAlreadyRenewed,
		fmt.Sprintf("policy %d has already been renewed", policyId), details)
}
