package workflow

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

func TestRfqTransitionTable(t *testing.T) {
	cases := []struct {
		from, to models.RfqStatus
		want     *utils.DomainError
	}{
		{models.RfqStatusDraft, models.RfqStatusQuoted, nil},
		{models.RfqStatusDraft, models.RfqStatusLost, nil},
		{models.RfqStatusDraft, models.RfqStatusWon, utils.ErrInvalidTransition},
		{models.RfqStatusQuoted, models.RfqStatusWon, nil},
		{models.RfqStatusQuoted, models.RfqStatusLost, nil},
		{models.RfqStatusQuoted, models.RfqStatusConvertedToPolicy, utils.ErrInvalidTransition},
		{models.RfqStatusWon, models.RfqStatusConvertedToPolicy, nil},
		{models.RfqStatusWon, models.RfqStatusLost, utils.ErrInvalidTransition},
		{models.RfqStatusLost, models.RfqStatusQuoted, utils.ErrInvalidTransition},
		{models.RfqStatusConvertedToPolicy, models.RfqStatusWon, utils.ErrInvalidTransition},
		{models.RfqStatusQuoted, models.RfqStatusQuoted, utils.ErrStatusUnchanged},
	}
	for _, tc := range cases {
		err := checkTransition("rfq", rfqTransitions, tc.from, tc.to)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s: expected %s, got %v", tc.from, tc.to, tc.want.Code, err)
		}
	}
}

func TestInvalidTransitionCarriesAllowedTargets(t *testing.T) {
	err := checkTransition("endorsement", endorsementTransitions, models.EndorsementStatusDraft, models.EndorsementStatusIssued)
	details := utils.ErrorDetailsOf(err)
	if details["current"] != "Draft" || details["target"] != "Issued" {
		t.Fatalf("unexpected details: %v", details)
	}
	allowed, ok := details["allowed"].([]string)
	if !ok || len(allowed) != 1 || allowed[0] != "Approved" {
		t.Fatalf("expected allowed [Approved], got %v", details["allowed"])
	}
}

func TestEndorsementStatusNeverRegresses(t *testing.T) {
	for _, from := range []models.EndorsementStatus{models.EndorsementStatusApproved, models.EndorsementStatusIssued} {
		if err := checkTransition("endorsement", endorsementTransitions, from, models.EndorsementStatusDraft); !errors.Is(err, utils.ErrInvalidTransition) {
			t.Fatalf("%s -> Draft: expected INVALID_TRANSITION, got %v", from, err)
		}
	}
}

func TestAllowApproval(t *testing.T) {
	cases := []struct {
		required, actual models.ApprovalLevel
		want             bool
	}{
		{models.ApprovalLevelL2, models.ApprovalLevelL1, false},
		{models.ApprovalLevelL2, models.ApprovalLevelL2, true},
		{models.ApprovalLevelL2, models.ApprovalLevelL3, true},
		{models.ApprovalLevelL3, models.ApprovalLevelL2, false},
		{models.ApprovalLevelL3, "l3", true},
		{models.ApprovalLevelL1, "", false},
		{models.ApprovalLevelL1, "L9", false},
		{"", models.ApprovalLevelL3, false},
	}
	for _, tc := range cases {
		if got := AllowApproval(tc.required, tc.actual); got != tc.want {
			t.Fatalf("AllowApproval(%q, %q): expected %v got %v", tc.required, tc.actual, tc.want, got)
		}
	}
}

func TestCanOverrideMinimumPremium(t *testing.T) {
	roles := []string{"md"}
	cases := []struct {
		name      string
		actor     models.Actor
		shortfall string
		want      bool
	}{
		{"md within limit", models.Actor{Role: "MD", MaxOverrideLimit: decimal.NewFromInt(1000)}, "1000", true},
		{"md over limit", models.Actor{Role: "md", MaxOverrideLimit: decimal.NewFromInt(800)}, "1000", false},
		{"other role", models.Actor{Role: "finance", MaxOverrideLimit: decimal.NewFromInt(1000000)}, "1000", false},
		{"no role", models.Actor{MaxOverrideLimit: decimal.NewFromInt(1000000)}, "1", false},
	}
	for _, tc := range cases {
		if got := CanOverrideMinimumPremium(tc.actor, roles, dec(tc.shortfall)); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
