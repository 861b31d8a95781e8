package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// RfqTransitionInput moves an RFQ to Status. StartDate/EndDate set the policy
// period on conversion and default to today plus one year.
type RfqTransitionInput struct {
	Status            models.RfqStatus `json:"status" validate:"required"`
	SelectedInsurerId *int             `json:"selected_insurer_id" validate:"omitempty,gt=0"`
	LostReason        string           `json:"lost_reason"`
	StartDate         *time.Time       `json:"start_date"`
	EndDate           *time.Time       `json:"end_date"`
}

type RfqTransitionResult struct {
	Rfq    *models.Rfq    `json:"rfq"`
	Policy *models.Policy `json:"policy,omitempty"`
}

func (e *Engine) CreateRfq(ctx context.Context, actor models.Actor, input models.NewRfq) (*models.Rfq, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "NGN"
	}

	var rfq models.Rfq
	err := e.run(ctx, "CreateRfq", "", nil, func(tx *gorm.DB) error {
		if _, err := load[models.Client](tx, "client", input.ClientId); err != nil {
			return err
		}
		if _, err := e.Ratings.ResolveRating(ctx, tx, input.LineOfBusinessId, input.SubLineOfBusinessId); err != nil {
			return err
		}
		rfq = models.Rfq{
			ClientId:            input.ClientId,
			LineOfBusinessId:    input.LineOfBusinessId,
			SubLineOfBusinessId: input.SubLineOfBusinessId,
			Description:         input.Description,
			ExpectedSumInsured:  input.ExpectedSumInsured,
			ExpectedPremium:     input.ExpectedPremium,
			Currency:            currency,
			TargetRate:          input.TargetRate,
			Status:              models.RfqStatusDraft,
			Version:             1,
			CreatedBy:           actor.UserId,
		}
		if err := tx.Create(&rfq).Error; err != nil {
			return err
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventRfqCreated, models.ReferenceTypeRfq, rfq.ID, actor.UserId, e.now(), rfq)
	})
	if err != nil {
		return nil, err
	}
	return &rfq, nil
}

// RecordInsurerQuote stores an insurer's quote. Quotes are accepted while the
// RFQ is Draft or Quoted; quoting again replaces the insurer's previous quote.
func (e *Engine) RecordInsurerQuote(ctx context.Context, actor models.Actor, rfqId int, input models.NewRfqInsurerQuote) (*models.RfqInsurerQuote, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var quote models.RfqInsurerQuote
	attrs := []attribute.KeyValue{attribute.Int("rfq.id", rfqId), attribute.Int("insurer.id", input.InsurerId)}
	err := e.run(ctx, "RecordInsurerQuote", entityLockKey("rfq", rfqId), attrs, func(tx *gorm.DB) error {
		rfq, err := loadForUpdate[models.Rfq](tx, "rfq", rfqId)
		if err != nil {
			return err
		}
		if rfq.Status != models.RfqStatusDraft && rfq.Status != models.RfqStatusQuoted {
			return utils.NewDomainError(utils.ErrCodeInvalidTransition,
				fmt.Sprintf("quotes cannot be recorded on a %s rfq", rfq.Status),
				map[string]any{"entity": "rfq", "id": rfq.ID, "current": string(rfq.Status)})
		}

		now := e.now()
		err = tx.Where("rfq_id = ? AND insurer_id = ?", rfqId, input.InsurerId).First(&quote).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			quote = models.RfqInsurerQuote{
				RfqId:     rfqId,
				InsurerId: input.InsurerId,
				Premium:   input.Premium,
				Rate:      input.Rate,
				QuotedAt:  now,
			}
			if err := tx.Create(&quote).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			quote.Premium = input.Premium
			quote.Rate = input.Rate
			quote.QuotedAt = now
			if err := tx.Model(&quote).Updates(map[string]interface{}{
				"premium":   quote.Premium,
				"rate":      quote.Rate,
				"quoted_at": quote.QuotedAt,
			}).Error; err != nil {
				return err
			}
		}
		return models.RecordLifecycleEvent(ctx, tx, models.EventRfqQuoteRecorded, models.ReferenceTypeRfq, rfqId, actor.UserId, now, quote)
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// TransitionRfq moves an RFQ along its state machine. Won and
// ConvertedToPolicy need a selected insurer that has quoted this RFQ;
// ConvertedToPolicy also creates the draft policy in the same transaction.
func (e *Engine) TransitionRfq(ctx context.Context, actor models.Actor, rfqId int, input RfqTransitionInput) (*RfqTransitionResult, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, utils.ValidationFailed("status", fmt.Sprintf("unknown rfq status %q", input.Status))
	}

	result := &RfqTransitionResult{}
	attrs := []attribute.KeyValue{attribute.Int("rfq.id", rfqId), attribute.String("rfq.target", string(input.Status))}
	err := e.run(ctx, "TransitionRfq", entityLockKey("rfq", rfqId), attrs, func(tx *gorm.DB) error {
		rfq, err := loadForUpdate[models.Rfq](tx, "rfq", rfqId)
		if err != nil {
			return err
		}
		from := rfq.Status
		if err := checkTransition("rfq", rfqTransitions, from, input.Status); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": input.Status}
		switch input.Status {
		case models.RfqStatusLost:
			updates["lost_reason"] = input.LostReason
		case models.RfqStatusWon, models.RfqStatusConvertedToPolicy:
			quote, err := selectedQuote(tx, rfq, input.SelectedInsurerId)
			if err != nil {
				return err
			}
			updates["selected_insurer_id"] = quote.InsurerId
			if input.Status == models.RfqStatusConvertedToPolicy {
				policy, err := e.convertToPolicy(ctx, tx, actor, rfq, quote, input)
				if err != nil {
					return err
				}
				updates["policy_id"] = policy.ID
				result.Policy = policy
			}
		}

		if err := casUpdate(tx, &models.Rfq{}, "rfq", rfq.ID, rfq.Version, updates); err != nil {
			return err
		}
		if err := tx.First(rfq, rfq.ID).Error; err != nil {
			return err
		}
		result.Rfq = rfq
		return models.RecordLifecycleEvent(ctx, tx, models.EventRfqTransitioned, models.ReferenceTypeRfq, rfq.ID, actor.UserId, e.now(), map[string]any{
			"from":      from,
			"to":        rfq.Status,
			"policy_id": rfq.PolicyId,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// selectedQuote finds the quote of the requested (or previously selected) insurer.
func selectedQuote(tx *gorm.DB, rfq *models.Rfq, requested *int) (*models.RfqInsurerQuote, error) {
	insurerId := requested
	if insurerId == nil {
		insurerId = rfq.SelectedInsurerId
	}
	if insurerId == nil || *insurerId == 0 {
		return nil, utils.NewDomainError(utils.ErrCodeInsurerNotQuoted,
			"a selected insurer is required",
			map[string]any{"rfq_id": rfq.ID})
	}
	var quote models.RfqInsurerQuote
	err := tx.Where("rfq_id = ? AND insurer_id = ?", rfq.ID, *insurerId).First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewDomainError(utils.ErrCodeInsurerNotQuoted,
			fmt.Sprintf("insurer %d has not quoted rfq %d", *insurerId, rfq.ID),
			map[string]any{"rfq_id": rfq.ID, "insurer_id": *insurerId})
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (e *Engine) convertToPolicy(ctx context.Context, tx *gorm.DB, actor models.Actor, rfq *models.Rfq, quote *models.RfqInsurerQuote, input RfqTransitionInput) (*models.Policy, error) {
	start := utils.StartOfDay(e.now())
	if input.StartDate != nil {
		start = input.StartDate.UTC()
	}
	end := start.AddDate(1, 0, -1)
	if input.EndDate != nil {
		end = input.EndDate.UTC()
	}
	if end.Before(start) {
		return nil, utils.ValidationFailed("end_date", "end date must not be before start date")
	}

	gross := rfq.ExpectedPremium
	if gross.IsZero() {
		gross = quote.Premium
	}

	number, err := e.Codes.WithTx(tx).NextPolicyNumber(ctx)
	if err != nil {
		return nil, err
	}
	status := models.PolicyStatusDraft
	rfqId := rfq.ID
	policy := models.Policy{
		PolicyNumber:        number,
		ClientId:            rfq.ClientId,
		InsurerId:           quote.InsurerId,
		RfqId:               &rfqId,
		LineOfBusinessId:    rfq.LineOfBusinessId,
		SubLineOfBusinessId: rfq.SubLineOfBusinessId,
		SumInsured:          rfq.ExpectedSumInsured,
		GrossPremium:        gross,
		Currency:            rfq.Currency,
		StartDate:           start,
		EndDate:             end,
		Status:              &status,
		Version:             1,
		CreatedBy:           actor.UserId,
	}
	if err := tx.Create(&policy).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.RfqInsurerQuote{}).Where("rfq_id = ?", rfq.ID).Update("is_selected", false).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.RfqInsurerQuote{}).Where("id = ?", quote.ID).Update("is_selected", true).Error; err != nil {
		return nil, err
	}

	if err := models.RecordLifecycleEvent(ctx, tx, models.EventPolicyCreated, models.ReferenceTypePolicy, policy.ID, actor.UserId, e.now(), policy); err != nil {
		return nil, err
	}
	return &policy, nil
}
