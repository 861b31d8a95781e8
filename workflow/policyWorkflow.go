package workflow

import (
	"context"
	"strings"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
)

type CancelPolicyInput struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// CancelPolicy closes a draft, pending or active policy.
func (e *Engine) CancelPolicy(ctx context.Context, actor models.Actor, policyId int, input CancelPolicyInput) (*models.Policy, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	var policy *models.Policy
	err := e.run(ctx, "CancelPolicy", entityLockKey("policy", policyId), policyAttrs(policyId), func(tx *gorm.DB) error {
		var err error
		policy, err = loadForUpdate[models.Policy](tx, "policy", policyId)
		if err != nil {
			return err
		}
		from := effectivePolicyStatus(policy)
		if err := checkTransition("policy", policyTransitions, from, models.PolicyStatusCancelled); err != nil {
			return err
		}
		now := e.now()
		if err := casUpdate(tx, &models.Policy{}, "policy", policy.ID, policy.Version, map[string]interface{}{
			"status":              models.PolicyStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": strings.TrimSpace(input.Reason),
		}); err != nil {
			return err
		}
		if err := tx.First(policy, policy.ID).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventPolicyCancelled, models.ReferenceTypePolicy, policy.ID, actor.UserId, now, map[string]any{
			"from":   from,
			"reason": policy.CancellationReason,
		})
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}
