// Package premium holds the side-effect-free premium arithmetic: rate basis
// application, minimum-premium floor, line/sub-line rating resolution and the
// brokerage/VAT breakdown. Inputs are trusted: percentage ranges are validated
// by callers, and nothing here rounds.
package premium

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type RateBasis string

const (
	RateBasisPerMille   RateBasis = "per_mille"
	RateBasisPercentage RateBasis = "percentage"
	RateBasisFlat       RateBasis = "flat"
)

// Normalize maps unknown or empty bases to percentage.
func (b RateBasis) Normalize() RateBasis {
	switch RateBasis(strings.ToLower(strings.TrimSpace(string(b)))) {
	case RateBasisPerMille:
		return RateBasisPerMille
	case RateBasisFlat:
		return RateBasisFlat
	default:
		return RateBasisPercentage
	}
}

// RateBand applies Rate to sums insured up to and including UpTo.
type RateBand struct {
	UpTo decimal.Decimal `json:"up_to"`
	Rate decimal.Decimal `json:"rate"`
}

// RateTable is the parsed form of a line's rating inputs.
type RateTable struct {
	Rate  decimal.Decimal `json:"rate"`
	Bands []RateBand      `json:"bands,omitempty"`
}

// ParseRateTable decodes the JSON rating inputs stored on a line of business.
// Empty input yields a zero table.
func ParseRateTable(raw string) (RateTable, error) {
	var table RateTable
	if strings.TrimSpace(raw) == "" {
		return table, nil
	}
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return RateTable{}, err
	}
	return table, nil
}

// RateFor picks the first band (by ascending ceiling) covering sumInsured, else the base rate.
func (t RateTable) RateFor(sumInsured decimal.Decimal) decimal.Decimal {
	if len(t.Bands) == 0 {
		return t.Rate
	}
	bands := make([]RateBand, len(t.Bands))
	copy(bands, t.Bands)
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].UpTo.LessThan(bands[j].UpTo)
	})
	for _, band := range bands {
		if sumInsured.LessThanOrEqual(band.UpTo) {
			return band.Rate
		}
	}
	return t.Rate
}

type Result struct {
	CalculatedPremium decimal.Decimal `json:"calculated_premium"`
	FinalPremium      decimal.Decimal `json:"final_premium"`
	AppliedRate       decimal.Decimal `json:"applied_rate"`
	AppliedBasis      RateBasis       `json:"applied_basis"`
	IsUsingMinimum    bool            `json:"is_using_minimum"`
}

// Compute applies the rate basis and the minimum-premium floor.
func Compute(sumInsured decimal.Decimal, basis RateBasis, table RateTable, minPremium decimal.Decimal) Result {
	basis = basis.Normalize()
	rate := table.RateFor(sumInsured)

	var calculated decimal.Decimal
	switch basis {
	case RateBasisPerMille:
		calculated = sumInsured.Mul(rate).Shift(-3)
	case RateBasisFlat:
		calculated = rate
	default:
		calculated = sumInsured.Mul(rate).Shift(-2)
	}

	result := Result{
		CalculatedPremium: calculated,
		FinalPremium:      calculated,
		AppliedRate:       rate,
		AppliedBasis:      basis,
	}
	if calculated.LessThan(minPremium) {
		result.FinalPremium = minPremium
		result.IsUsingMinimum = true
	}
	return result
}

// ApplyPercentAdjustment returns amount * (1 + pct/100). No bounds are enforced.
func ApplyPercentAdjustment(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Add(amount.Mul(pct).Shift(-2))
}

// FormatAmount is the only place amounts are rounded: two decimals for display.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
