package models

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/premium"
	"github.com/shopspring/decimal"
)

// LineOfBusiness holds the default rating configuration of a class of insurance.
// RatingInputs is a JSON rate table: {"rate": r, "bands": [{"up_to": s, "rate": r}]}.
type LineOfBusiness struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	Code                string              `gorm:"size:20;index" json:"code"`
	Name                string              `gorm:"size:100;not null" json:"name"`
	RateBasis           string              `gorm:"size:20;not null;default:'percentage'" json:"rate_basis"`
	RatingInputs        string              `gorm:"type:text" json:"rating_inputs"`
	MinPremium          decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"min_premium"`
	DefaultBrokeragePct decimal.Decimal     `gorm:"type:decimal(7,4);not null;default:0" json:"default_brokerage_pct"`
	DefaultVatPct       decimal.Decimal     `gorm:"type:decimal(7,4);not null;default:0" json:"default_vat_pct"`
	IsActive            bool                `gorm:"not null;default:true" json:"is_active"`
	SubLines            []SubLineOfBusiness `gorm:"foreignKey:LineOfBusinessId" json:"sub_lines,omitempty"`
	CreatedAt           time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// SubLineOfBusiness overrides individual rating fields of its parent line.
// A NULL column inherits the parent's value.
type SubLineOfBusiness struct {
	ID               int              `gorm:"primary_key" json:"id"`
	LineOfBusinessId int              `gorm:"index;not null" json:"line_of_business_id"`
	Name             string           `gorm:"size:100;not null" json:"name"`
	RateBasis        *string          `gorm:"size:20" json:"rate_basis"`
	RatingInputs     *string          `gorm:"type:text" json:"rating_inputs"`
	MinPremium       *decimal.Decimal `gorm:"type:decimal(20,4)" json:"min_premium"`
	BrokeragePct     *decimal.Decimal `gorm:"type:decimal(7,4)" json:"brokerage_pct"`
	VatPct           *decimal.Decimal `gorm:"type:decimal(7,4)" json:"vat_pct"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l LineOfBusiness) Rating() (premium.LineRating, error) {
	table, err := premium.ParseRateTable(l.RatingInputs)
	if err != nil {
		return premium.LineRating{}, fmt.Errorf("line of business %d rating inputs: %w", l.ID, err)
	}
	return premium.LineRating{
		RateBasis:    premium.RateBasis(l.RateBasis),
		RatingInputs: table,
		MinPremium:   l.MinPremium,
		BrokeragePct: l.DefaultBrokeragePct,
		VatPct:       l.DefaultVatPct,
	}, nil
}

func (s SubLineOfBusiness) Override() (*premium.SubLineOverride, error) {
	override := &premium.SubLineOverride{
		MinPremium:   s.MinPremium,
		BrokeragePct: s.BrokeragePct,
		VatPct:       s.VatPct,
	}
	if s.RateBasis != nil {
		basis := premium.RateBasis(*s.RateBasis)
		override.RateBasis = &basis
	}
	if s.RatingInputs != nil {
		table, err := premium.ParseRateTable(*s.RatingInputs)
		if err != nil {
			return nil, fmt.Errorf("sub-line %d rating inputs: %w", s.ID, err)
		}
		override.RatingInputs = &table
	}
	return override, nil
}
