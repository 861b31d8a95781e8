package premium

import "github.com/shopspring/decimal"

// LineRating is the effective rating configuration of a line of business.
type LineRating struct {
	RateBasis    RateBasis       `json:"rate_basis"`
	RatingInputs RateTable       `json:"rating_inputs"`
	MinPremium   decimal.Decimal `json:"min_premium"`
	BrokeragePct decimal.Decimal `json:"brokerage_pct"`
	VatPct       decimal.Decimal `json:"vat_pct"`
}

// SubLineOverride carries the optional per-field overrides of a sub-line.
// A nil field means "inherit from the parent line".
type SubLineOverride struct {
	RateBasis    *RateBasis
	RatingInputs *RateTable
	MinPremium   *decimal.Decimal
	BrokeragePct *decimal.Decimal
	VatPct       *decimal.Decimal
}

// Resolve merges override into line field by field.
func Resolve(line LineRating, override *SubLineOverride) LineRating {
	resolved := line
	if override == nil {
		return resolved
	}
	if override.RateBasis != nil {
		resolved.RateBasis = *override.RateBasis
	}
	if override.RatingInputs != nil {
		resolved.RatingInputs = *override.RatingInputs
	}
	if override.MinPremium != nil {
		resolved.MinPremium = *override.MinPremium
	}
	if override.BrokeragePct != nil {
		resolved.BrokeragePct = *override.BrokeragePct
	}
	if override.VatPct != nil {
		resolved.VatPct = *override.VatPct
	}
	return resolved
}

// Quote prices sumInsured against the resolved rating.
func (r LineRating) Quote(sumInsured decimal.Decimal) Result {
	return Compute(sumInsured, r.RateBasis, r.RatingInputs, r.MinPremium)
}
