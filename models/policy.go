package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is a bound (or about to be bound) insurance contract. Status is
// nullable for rows created before statuses were tracked. Amounts are stored
// at 4 decimal places.
type Policy struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	PolicyNumber         string           `gorm:"size:32;not null;uniqueIndex" json:"policy_number"`
	ClientId             int              `gorm:"index;not null" json:"client_id"`
	InsurerId            int              `gorm:"index" json:"insurer_id"`
	RfqId                *int             `gorm:"index" json:"rfq_id"`
	LineOfBusinessId     int              `gorm:"index;not null" json:"line_of_business_id"`
	SubLineOfBusinessId  *int             `gorm:"index" json:"sub_line_of_business_id"`
	SumInsured           decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"sum_insured"`
	GrossPremium         decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"gross_premium"`
	Currency             string           `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	StartDate            time.Time        `gorm:"not null" json:"start_date"`
	EndDate              time.Time        `gorm:"not null;index" json:"end_date"`
	Status               *PolicyStatus    `gorm:"size:20;index" json:"status"`
	RenewedFromPolicyId  *int             `gorm:"uniqueIndex" json:"renewed_from_policy_id"`
	RenewedToPolicyId    *int             `gorm:"index" json:"renewed_to_policy_id"`
	SlipNumber           *string          `gorm:"size:32;uniqueIndex" json:"slip_number"`
	SlipStatus           *SlipStatus      `gorm:"size:20" json:"slip_status"`
	SlipGeneratedAt      *time.Time       `json:"slip_generated_at"`
	SlipValidUntil       *time.Time       `json:"slip_valid_until"`
	SubmittedToInsurerAt *time.Time       `json:"submitted_to_insurer_at"`
	InsurerResponseAt    *time.Time       `json:"insurer_response_at"`
	ConfirmationDate     *time.Time       `json:"confirmation_date"`
	AutoExpired          bool             `gorm:"not null;default:false;index" json:"auto_expired"`
	LastStatusCheck      *time.Time       `json:"last_status_check"`
	CancelledAt          *time.Time       `json:"cancelled_at"`
	CancellationReason   string           `gorm:"type:text" json:"cancellation_reason"`
	Version              int              `gorm:"not null;default:1" json:"version"`
	CreatedBy            int              `json:"created_by"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// CurrentStatus reads a NULL status as "".
func (p Policy) CurrentStatus() PolicyStatus {
	if p.Status == nil {
		return ""
	}
	return *p.Status
}

func (p Policy) CurrentSlipStatus() SlipStatus {
	if p.SlipStatus == nil {
		return ""
	}
	return *p.SlipStatus
}

func (p Policy) HasSlip() bool {
	return p.SlipNumber != nil && *p.SlipNumber != ""
}
