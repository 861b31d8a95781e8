package workflow

import (
	"context"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	approveEndorsementLevel = models.ApprovalLevelL2
	issueEndorsementLevel   = models.ApprovalLevelL3
)

// IssueEndorsementInput.ConfirmOverride is the issuer's explicit confirmation
// that the endorsement may leave the premium below the line minimum.
type IssueEndorsementInput struct {
	ConfirmOverride bool `json:"confirm_override"`
}

// IssueEndorsementResult reports the premium the policy would carry with this
// endorsement applied. The policy row itself is not rewritten.
type IssueEndorsementResult struct {
	Endorsement      *models.Endorsement `json:"endorsement"`
	ResultingPremium decimal.Decimal     `json:"resulting_premium"`
	MinPremium       decimal.Decimal     `json:"min_premium"`
	OverrideApplied  bool                `json:"override_applied"`
}

func endorsementAttrs(id int) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int("endorsement.id", id)}
}

func (e *Engine) CreateEndorsement(ctx context.Context, actor models.Actor, input models.NewEndorsement) (*models.Endorsement, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var endorsement models.Endorsement
	err := e.run(ctx, "CreateEndorsement", entityLockKey("policy", input.PolicyId), policyAttrs(input.PolicyId), func(tx *gorm.DB) error {
		policy, err := load[models.Policy](tx, "policy", input.PolicyId)
		if err != nil {
			return err
		}
		if effectivePolicyStatus(policy) == models.PolicyStatusCancelled {
			return utils.NewDomainError(utils.ErrCodeInvalidTransition,
				"cannot endorse a cancelled policy",
				map[string]any{"entity": "policy", "id": policy.ID, "current": string(models.PolicyStatusCancelled)})
		}

		number, err := e.Codes.WithTx(tx).NextEndorsementNumber(ctx)
		if err != nil {
			return err
		}
		endorsement = models.Endorsement{
			EndorsementNumber: number,
			PolicyId:          policy.ID,
			Type:              input.Type,
			Description:       input.Description,
			EffectiveDate:     input.EffectiveDate.UTC(),
			SumInsuredDelta:   input.SumInsuredDelta,
			GrossPremiumDelta: input.GrossPremiumDelta,
			Status:            models.EndorsementStatusDraft,
			PreparedBy:        actor.UserId,
			Version:           1,
		}
		if err := tx.Create(&endorsement).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventEndorsementCreated, models.ReferenceTypeEndorsement, endorsement.ID, actor.UserId, e.now(), endorsement)
	})
	if err != nil {
		return nil, err
	}
	return &endorsement, nil
}

// ApproveEndorsement moves a Draft endorsement to Approved. Requires L2.
func (e *Engine) ApproveEndorsement(ctx context.Context, actor models.Actor, endorsementId int) (*models.Endorsement, error) {
	var endorsement *models.Endorsement
	err := e.run(ctx, "ApproveEndorsement", entityLockKey("endorsement", endorsementId), endorsementAttrs(endorsementId), func(tx *gorm.DB) error {
		var err error
		endorsement, err = loadForUpdate[models.Endorsement](tx, "endorsement", endorsementId)
		if err != nil {
			return err
		}
		if err := requireApprovalLevel(actor, approveEndorsementLevel, "approve endorsement"); err != nil {
			return err
		}
		if err := checkTransition("endorsement", endorsementTransitions, endorsement.Status, models.EndorsementStatusApproved); err != nil {
			return err
		}
		now := e.now()
		if err := casUpdate(tx, &models.Endorsement{}, "endorsement", endorsement.ID, endorsement.Version, map[string]interface{}{
			"status":      models.EndorsementStatusApproved,
			"approved_by": actor.UserId,
			"approved_at": now,
		}); err != nil {
			return err
		}
		if err := tx.First(endorsement, endorsement.ID).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventEndorsementApproved, models.ReferenceTypeEndorsement, endorsement.ID, actor.UserId, now, nil)
	})
	if err != nil {
		return nil, err
	}
	return endorsement, nil
}

// IssueEndorsement moves an Approved endorsement to Issued. Requires L3.
//
// The resulting premium (policy premium + delta) must meet the minimum premium
// of the policy's line/sub-line. Below it, issuing needs an override role whose
// limit covers the shortfall and an explicit ConfirmOverride; otherwise a
// *utils.BelowMinimumPremiumError says whether an override would be allowed.
func (e *Engine) IssueEndorsement(ctx context.Context, actor models.Actor, endorsementId int, input IssueEndorsementInput) (*IssueEndorsementResult, error) {
	result := &IssueEndorsementResult{}
	err := e.run(ctx, "IssueEndorsement", entityLockKey("endorsement", endorsementId), endorsementAttrs(endorsementId), func(tx *gorm.DB) error {
		endorsement, err := loadForUpdate[models.Endorsement](tx, "endorsement", endorsementId)
		if err != nil {
			return err
		}
		if err := requireApprovalLevel(actor, issueEndorsementLevel, "issue endorsement"); err != nil {
			return err
		}
		if err := checkTransition("endorsement", endorsementTransitions, endorsement.Status, models.EndorsementStatusIssued); err != nil {
			return err
		}

		policy, err := load[models.Policy](tx, "policy", endorsement.PolicyId)
		if err != nil {
			return err
		}
		rating, err := e.Ratings.ResolveRating(ctx, tx, policy.LineOfBusinessId, policy.SubLineOfBusinessId)
		if err != nil {
			return err
		}
		resulting := policy.GrossPremium.Add(endorsement.GrossPremiumDelta)
		result.ResultingPremium = resulting
		result.MinPremium = rating.MinPremium

		if resulting.LessThan(rating.MinPremium) {
			shortfall := rating.MinPremium.Sub(resulting)
			canOverride := CanOverrideMinimumPremium(actor, e.OverrideRoles, shortfall)
			if !canOverride || !input.ConfirmOverride {
				return &utils.BelowMinimumPremiumError{
					ResultingPremium:  resulting,
					MinPremium:        rating.MinPremium,
					Shortfall:         shortfall,
					CanOverride:       canOverride,
					OverrideRequested: input.ConfirmOverride,
				}
			}
			result.OverrideApplied = true
		}

		now := e.now()
		if err := casUpdate(tx, &models.Endorsement{}, "endorsement", endorsement.ID, endorsement.Version, map[string]interface{}{
			"status":        models.EndorsementStatusIssued,
			"authorized_by": actor.UserId,
			"issued_at":     now,
		}); err != nil {
			return err
		}
		if err := tx.First(endorsement, endorsement.ID).Error; err != nil {
			return err
		}
		result.Endorsement = endorsement
		return models.RecordLifecycleEvent(ctx, tx, models.EventEndorsementIssued, models.ReferenceTypeEndorsement, endorsement.ID, actor.UserId, now, map[string]any{
			"policy_id":         policy.ID,
			"resulting_premium": resulting,
			"min_premium":       rating.MinPremium,
			"override_applied":  result.OverrideApplied,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

