package workflow

import (
	"context"

	"github.com/mmdatafocus/brokerage_backend/premium"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// QuotePremiumInput prices a risk. Percentages left nil use the line defaults.
type QuotePremiumInput struct {
	LineOfBusinessId    int              `json:"line_of_business_id" validate:"required,gt=0"`
	SubLineOfBusinessId *int             `json:"sub_line_of_business_id" validate:"omitempty,gt=0"`
	SumInsured          decimal.Decimal  `json:"sum_insured" validate:"gte=0"`
	BrokeragePct        *decimal.Decimal `json:"brokerage_pct" validate:"omitempty,gte=0,lte=100"`
	VatPct              *decimal.Decimal `json:"vat_pct" validate:"omitempty,gte=0,lte=100"`
	AgentCommissionPct  decimal.Decimal  `json:"agent_commission_pct" validate:"gte=0,lte=100"`
}

type PremiumQuote struct {
	Rating    premium.LineRating `json:"rating"`
	Premium   premium.Result     `json:"premium"`
	Breakdown premium.Breakdown  `json:"breakdown"`
	Display   map[string]string  `json:"display"`
}

// QuotePremium resolves the rating and prices sumInsured. Read-only.
func (e *Engine) QuotePremium(ctx context.Context, input QuotePremiumInput) (*PremiumQuote, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var quote PremiumQuote
	attrs := []attribute.KeyValue{attribute.Int("line_of_business.id", input.LineOfBusinessId)}
	err := e.run(ctx, "QuotePremium", "", attrs, func(tx *gorm.DB) error {
		rating, err := e.Ratings.ResolveRating(ctx, tx, input.LineOfBusinessId, input.SubLineOfBusinessId)
		if err != nil {
			return err
		}
		if err := checkPercentage("brokerage_pct", rating.BrokeragePct); err != nil {
			return err
		}
		if err := checkPercentage("vat_pct", rating.VatPct); err != nil {
			return err
		}
		brokeragePct := utils.DereferencePtr(input.BrokeragePct, rating.BrokeragePct)
		vatPct := utils.DereferencePtr(input.VatPct, rating.VatPct)

		result := rating.Quote(input.SumInsured)
		breakdown := premium.ComputeBreakdown(result.FinalPremium, brokeragePct, vatPct, input.AgentCommissionPct)
		quote = PremiumQuote{
			Rating:    rating,
			Premium:   result,
			Breakdown: breakdown,
			Display: map[string]string{
				"final_premium":     premium.FormatAmount(result.FinalPremium),
				"brokerage":         premium.FormatAmount(breakdown.Brokerage),
				"vat":               premium.FormatAmount(breakdown.Vat),
				"agent_commission":  premium.FormatAmount(breakdown.AgentCommission),
				"net_due":           premium.FormatAmount(breakdown.NetDue),
				"broker_net_income": premium.FormatAmount(breakdown.BrokerNetIncome),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// checkPercentage rejects configured percentages outside [0, 100]; the premium
// engine itself never clamps.
func checkPercentage(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return utils.ValidationFailed(field, "percentage must be between 0 and 100")
	}
	return nil
}
