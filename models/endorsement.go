package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Endorsement struct {
	ID                int               `gorm:"primary_key" json:"id"`
	EndorsementNumber string            `gorm:"size:32;not null;uniqueIndex" json:"endorsement_number"`
	PolicyId          int               `gorm:"index;not null" json:"policy_id"`
	Type              string            `gorm:"size:50;not null" json:"type"`
	Description       string            `gorm:"type:text" json:"description"`
	EffectiveDate     time.Time         `gorm:"not null" json:"effective_date"`
	SumInsuredDelta   decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"sum_insured_delta"`
	GrossPremiumDelta decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"gross_premium_delta"`
	Status            EndorsementStatus `gorm:"size:20;not null;default:'Draft';index" json:"status"`
	PreparedBy        int               `json:"prepared_by"`
	ApprovedBy        *int              `json:"approved_by"`
	ApprovedAt        *time.Time        `json:"approved_at"`
	AuthorizedBy      *int              `json:"authorized_by"`
	IssuedAt          *time.Time        `json:"issued_at"`
	Version           int               `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEndorsement struct {
	PolicyId          int             `json:"policy_id" validate:"required,gt=0"`
	Type              string          `json:"type" validate:"required,max=50"`
	Description       string          `json:"description"`
	EffectiveDate     time.Time       `json:"effective_date" validate:"required"`
	SumInsuredDelta   decimal.Decimal `json:"sum_insured_delta"`
	GrossPremiumDelta decimal.Decimal `json:"gross_premium_delta"`
}
