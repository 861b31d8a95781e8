package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Rfq struct {
	ID                  int               `gorm:"primary_key" json:"id"`
	ClientId            int               `gorm:"index;not null" json:"client_id"`
	LineOfBusinessId    int               `gorm:"index;not null" json:"line_of_business_id"`
	SubLineOfBusinessId *int              `gorm:"index" json:"sub_line_of_business_id"`
	Description         string            `gorm:"type:text" json:"description"`
	ExpectedSumInsured  decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"expected_sum_insured"`
	ExpectedPremium     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"expected_premium"`
	Currency            string            `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	TargetRate          *decimal.Decimal  `gorm:"type:decimal(10,4)" json:"target_rate"`
	SelectedInsurerId   *int              `gorm:"index" json:"selected_insurer_id"`
	Status              RfqStatus         `gorm:"size:20;not null;default:'Draft';index" json:"status"`
	PolicyId            *int              `gorm:"index" json:"policy_id"`
	LostReason          string            `gorm:"type:text" json:"lost_reason"`
	Version             int               `gorm:"not null;default:1" json:"version"`
	CreatedBy           int               `json:"created_by"`
	Quotes              []RfqInsurerQuote `gorm:"foreignKey:RfqId" json:"quotes,omitempty"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// RfqInsurerQuote is an insurer's answer to an RFQ. One row per (rfq, insurer).
type RfqInsurerQuote struct {
	ID         int              `gorm:"primary_key" json:"id"`
	RfqId      int              `gorm:"not null;uniqueIndex:uniq_rfq_insurer,priority:1" json:"rfq_id"`
	InsurerId  int              `gorm:"not null;uniqueIndex:uniq_rfq_insurer,priority:2" json:"insurer_id"`
	Premium    decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"premium"`
	Rate       *decimal.Decimal `gorm:"type:decimal(10,4)" json:"rate"`
	IsSelected bool             `gorm:"not null;default:false" json:"is_selected"`
	QuotedAt   time.Time        `json:"quoted_at"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRfq struct {
	ClientId            int              `json:"client_id" validate:"required,gt=0"`
	LineOfBusinessId    int              `json:"line_of_business_id" validate:"required,gt=0"`
	SubLineOfBusinessId *int             `json:"sub_line_of_business_id" validate:"omitempty,gt=0"`
	Description         string           `json:"description"`
	ExpectedSumInsured  decimal.Decimal  `json:"expected_sum_insured" validate:"gte=0"`
	ExpectedPremium     decimal.Decimal  `json:"expected_premium" validate:"gte=0"`
	Currency            string           `json:"currency" validate:"omitempty,len=3"`
	TargetRate          *decimal.Decimal `json:"target_rate"`
}

type NewRfqInsurerQuote struct {
	InsurerId int              `json:"insurer_id" validate:"required,gt=0"`
	Premium   decimal.Decimal  `json:"premium" validate:"gte=0"`
	Rate      *decimal.Decimal `json:"rate"`
}
