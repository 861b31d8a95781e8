package models

import "time"

type SequenceScope string

const (
	SequenceScopeClient      SequenceScope = "CLIENT"
	SequenceScopePolicy      SequenceScope = "POLICY"
	SequenceScopeSlip        SequenceScope = "SLIP"
	SequenceScopeEndorsement SequenceScope = "ENDORSEMENT"
)

// SequenceCounter is the durable counter behind every business code.
// Rows are created on first allocation and never deleted. Subtype is '' for
// keys without one, so the unique index still covers them.
type SequenceCounter struct {
	ID            int           `gorm:"primary_key" json:"id"`
	Scope         SequenceScope `gorm:"size:32;not null;uniqueIndex:uniq_sequence_key,priority:1" json:"scope"`
	Year          int           `gorm:"not null;uniqueIndex:uniq_sequence_key,priority:2" json:"year"`
	Subtype       string        `gorm:"size:32;not null;default:'';uniqueIndex:uniq_sequence_key,priority:3" json:"subtype"`
	LastAllocated int64         `gorm:"not null;default:0" json:"last_allocated"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
