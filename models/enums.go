package models

import "strings"

type RfqStatus string

const (
	RfqStatusDraft             RfqStatus = "Draft"
	RfqStatusQuoted            RfqStatus = "Quoted"
	RfqStatusWon               RfqStatus = "Won"
	RfqStatusLost              RfqStatus = "Lost"
	RfqStatusConvertedToPolicy RfqStatus = "ConvertedToPolicy"
)

func (s RfqStatus) IsValid() bool {
	switch s {
	case RfqStatusDraft, RfqStatusQuoted, RfqStatusWon, RfqStatusLost, RfqStatusConvertedToPolicy:
		return true
	}
	return false
}

type PolicyStatus string

const (
	PolicyStatusDraft     PolicyStatus = "draft"
	PolicyStatusPending   PolicyStatus = "pending"
	PolicyStatusActive    PolicyStatus = "active"
	PolicyStatusExpired   PolicyStatus = "expired"
	PolicyStatusCancelled PolicyStatus = "cancelled"
)

func (s PolicyStatus) IsValid() bool {
	switch s {
	case PolicyStatusDraft, PolicyStatusPending, PolicyStatusActive, PolicyStatusExpired, PolicyStatusCancelled:
		return true
	}
	return false
}

type SlipStatus string

const (
	SlipStatusDraft     SlipStatus = "draft"
	SlipStatusSubmitted SlipStatus = "submitted"
	SlipStatusBound     SlipStatus = "bound"
	SlipStatusDeclined  SlipStatus = "declined"
)

type EndorsementStatus string

const (
	EndorsementStatusDraft    EndorsementStatus = "Draft"
	EndorsementStatusApproved EndorsementStatus = "Approved"
	EndorsementStatusIssued   EndorsementStatus = "Issued"
)

type ClientType string

const (
	ClientTypeIndividual ClientType = "Individual"
	ClientTypeCorporate  ClientType = "Corporate"
)

func (t ClientType) IsValid() bool {
	return t == "" || t == ClientTypeIndividual || t == ClientTypeCorporate
}

// ApprovalLevel is the signing authority of a user. Higher levels include the lower ones.
type ApprovalLevel string

const (
	ApprovalLevelL1 ApprovalLevel = "L1"
	ApprovalLevelL2 ApprovalLevel = "L2"
	ApprovalLevelL3 ApprovalLevel = "L3"
)

// Rank is the numeric level (L1=1, L2=2, L3=3). Unknown levels rank 0 and pass no gate.
func (l ApprovalLevel) Rank() int {
	switch ApprovalLevel(strings.ToUpper(strings.TrimSpace(string(l)))) {
	case ApprovalLevelL1:
		return 1
	case ApprovalLevelL2:
		return 2
	case ApprovalLevelL3:
		return 3
	}
	return 0
}

// Lifecycle event types written to the outbox.
const (
	EventClientCreated       = "client.created"
	EventRfqCreated          = "rfq.created"
	EventRfqQuoteRecorded    = "rfq.quote_recorded"
	EventRfqTransitioned     = "rfq.transitioned"
	EventPolicyCreated       = "policy.created"
	EventPolicyCancelled     = "policy.cancelled"
	EventPolicyRenewed       = "policy.renewed"
	EventPolicyExpired       = "policy.expired"
	EventSlipGenerated       = "slip.generated"
	EventSlipSubmitted       = "slip.submitted"
	EventSlipResponded       = "slip.responded"
	EventEndorsementCreated  = "endorsement.created"
	EventEndorsementApproved = "endorsement.approved"
	EventEndorsementIssued   = "endorsement.issued"
)

// Reference types of lifecycle events.
const (
	ReferenceTypeClient      = "CLIENT"
	ReferenceTypeRfq         = "RFQ"
	ReferenceTypePolicy      = "POLICY"
	ReferenceTypeEndorsement = "ENDORSEMENT"
)
