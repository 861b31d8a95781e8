package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type SlipResponseInput struct {
	Response            models.SlipStatus `json:"response" validate:"required,oneof=bound declined"`
	ConfirmedPremium    *decimal.Decimal  `json:"confirmed_premium"`
	ConfirmedSumInsured *decimal.Decimal  `json:"confirmed_sum_insured"`
}

// GenerateSlip allocates the policy's broking slip number. A policy gets at
// most one slip.
func (e *Engine) GenerateSlip(ctx context.Context, actor models.Actor, policyId int) (*models.Policy, error) {
	var policy *models.Policy
	err := e.run(ctx, "GenerateSlip", entityLockKey("policy", policyId), policyAttrs(policyId), func(tx *gorm.DB) error {
		var err error
		policy, err = loadForUpdate[models.Policy](tx, "policy", policyId)
		if err != nil {
			return err
		}
		if policy.HasSlip() {
			return utils.NewDomainError(utils.ErrCodeSlipAlreadyGenerated,
				fmt.Sprintf("policy %d already has slip %s", policy.ID, *policy.SlipNumber),
				map[string]any{"policy_id": policy.ID, "slip_number": *policy.SlipNumber, "slip_status": string(policy.CurrentSlipStatus())})
		}
		if err := rejectIfClosed(policy, "generate a slip for"); err != nil {
			return err
		}

		number, err := e.Codes.WithTx(tx).NextSlipNumber(ctx)
		if err != nil {
			return err
		}
		now := e.now()
		validUntil := now.Add(e.SlipValidity)
		if err := casUpdate(tx, &models.Policy{}, "policy", policy.ID, policy.Version, map[string]interface{}{
			"slip_number":       number,
			"slip_status":       models.SlipStatusDraft,
			"slip_generated_at": now,
			"slip_valid_until":  validUntil,
		}); err != nil {
			return err
		}
		if err := tx.First(policy, policy.ID).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventSlipGenerated, models.ReferenceTypePolicy, policy.ID, actor.UserId, now, map[string]any{
			"slip_number":      number,
			"slip_valid_until": validUntil,
		})
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// SubmitSlip sends a draft slip to the insurer. A draft policy moves to pending.
func (e *Engine) SubmitSlip(ctx context.Context, actor models.Actor, policyId int) (*models.Policy, error) {
	var policy *models.Policy
	err := e.run(ctx, "SubmitSlip", entityLockKey("policy", policyId), policyAttrs(policyId), func(tx *gorm.DB) error {
		var err error
		policy, err = loadForUpdate[models.Policy](tx, "policy", policyId)
		if err != nil {
			return err
		}
		if !policy.HasSlip() {
			return utils.NewDomainError(utils.ErrCodeSlipNotGenerated,
				fmt.Sprintf("policy %d has no broking slip", policy.ID),
				map[string]any{"policy_id": policy.ID})
		}
		if err := rejectIfClosed(policy, "submit the slip of"); err != nil {
			return err
		}
		if err := checkAllowed("slip", slipTransitions, policy.CurrentSlipStatus(), models.SlipStatusSubmitted); err != nil {
			return err
		}
		now := e.now()
		if policy.SlipValidUntil != nil && now.After(*policy.SlipValidUntil) {
			return utils.NewDomainError(utils.ErrCodeSlipExpired,
				fmt.Sprintf("slip %s expired on %s", *policy.SlipNumber, policy.SlipValidUntil.Format("2006-01-02")),
				map[string]any{"policy_id": policy.ID, "slip_number": *policy.SlipNumber, "slip_valid_until": *policy.SlipValidUntil})
		}

		updates := map[string]interface{}{
			"slip_status":             models.SlipStatusSubmitted,
			"submitted_to_insurer_at": now,
		}
		if effectivePolicyStatus(policy) == models.PolicyStatusDraft {
			updates["status"] = models.PolicyStatusPending
		}
		if err := casUpdate(tx, &models.Policy{}, "policy", policy.ID, policy.Version, updates); err != nil {
			return err
		}
		if err := tx.First(policy, policy.ID).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventSlipSubmitted, models.ReferenceTypePolicy, policy.ID, actor.UserId, now, map[string]any{
			"slip_number": *policy.SlipNumber,
		})
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// RecordSlipResponse records the insurer's answer to a submitted slip. Binding
// activates the policy and applies the insurer's confirmed figures.
func (e *Engine) RecordSlipResponse(ctx context.Context, actor models.Actor, policyId int, input SlipResponseInput) (*models.Policy, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	for field, v := range map[string]*decimal.Decimal{"confirmed_premium": input.ConfirmedPremium, "confirmed_sum_insured": input.ConfirmedSumInsured} {
		if v != nil && v.IsNegative() {
			return nil, utils.ValidationFailed(field, "must not be negative")
		}
	}

	var policy *models.Policy
	attrs := append(policyAttrs(policyId), attribute.String("slip.response", string(input.Response)))
	err := e.run(ctx, "RecordSlipResponse", entityLockKey("policy", policyId), attrs, func(tx *gorm.DB) error {
		var err error
		policy, err = loadForUpdate[models.Policy](tx, "policy", policyId)
		if err != nil {
			return err
		}
		if !policy.HasSlip() {
			return utils.NewDomainError(utils.ErrCodeSlipNotGenerated,
				fmt.Sprintf("policy %d has no broking slip", policy.ID),
				map[string]any{"policy_id": policy.ID})
		}
		if err := rejectIfClosed(policy, "record a slip response for"); err != nil {
			return err
		}
		if err := checkAllowed("slip", slipTransitions, policy.CurrentSlipStatus(), input.Response); err != nil {
			return err
		}

		now := e.now()
		updates := map[string]interface{}{
			"slip_status":         input.Response,
			"insurer_response_at": now,
		}
		if input.Response == models.SlipStatusBound {
			status := effectivePolicyStatus(policy)
			if status != models.PolicyStatusActive {
				if err := checkAllowed("policy", policyTransitions, status, models.PolicyStatusActive); err != nil {
					return err
				}
				updates["status"] = models.PolicyStatusActive
			}
			updates["confirmation_date"] = now
			if input.ConfirmedPremium != nil {
				updates["gross_premium"] = *input.ConfirmedPremium
			}
			if input.ConfirmedSumInsured != nil {
				updates["sum_insured"] = *input.ConfirmedSumInsured
			}
		}
		if err := casUpdate(tx, &models.Policy{}, "policy", policy.ID, policy.Version, updates); err != nil {
			return err
		}
		if err := tx.First(policy, policy.ID).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventSlipResponded, models.ReferenceTypePolicy, policy.ID, actor.UserId, now, map[string]any{
			"slip_number":   *policy.SlipNumber,
			"response":      input.Response,
			"gross_premium": policy.GrossPremium,
			"sum_insured":   policy.SumInsured,
		})
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

func policyAttrs(policyId int) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int("policy.id", policyId)}
}
