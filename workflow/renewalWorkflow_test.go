package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

func TestRenewPolicy_OnlyOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	actor := actorWithLevel(models.ApprovalLevelL1)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00017", status: status(models.PolicyStatusActive), premium: "20000", endDate: end})

	adj := dec("10")
	renewal, err := e.RenewPolicy(ctx, actor, original.ID, RenewPolicyInput{AdjustmentPercent: &adj})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if renewal.PolicyNumber != "POL/2025/00001" {
		t.Fatalf("expected POL/2025/00001, got %s", renewal.PolicyNumber)
	}
	if !renewal.GrossPremium.Equal(dec("22000")) {
		t.Fatalf("expected adjusted premium 22000, got %s", renewal.GrossPremium)
	}
	if renewal.RenewedFromPolicyId == nil || *renewal.RenewedFromPolicyId != original.ID {
		t.Fatalf("expected renewal to point back to %d", original.ID)
	}
	wantStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !renewal.StartDate.Equal(wantStart) || !renewal.EndDate.Equal(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected renewal period %s - %s", renewal.StartDate, renewal.EndDate)
	}

	reloaded := reloadPolicy(t, e, original.ID)
	if reloaded.RenewedToPolicyId == nil || *reloaded.RenewedToPolicyId != renewal.ID {
		t.Fatalf("expected forward link to %d", renewal.ID)
	}

	_, err = e.RenewPolicy(ctx, actor, original.ID, RenewPolicyInput{})
	expectCode(t, err, utils.ErrAlreadyRenewed)

	var n int64
	e.DB.Model(&models.Policy{}).Where("renewed_from_policy_id = ?", original.ID).Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one renewal row, got %d", n)
	}
}

func TestRenewPolicy_CarriesPremiumForward(t *testing.T) {
	e, _ := newTestEngine(t)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00018", status: status(models.PolicyStatusExpired), premium: "15000.25"})

	renewal, err := e.RenewPolicy(context.Background(), actorWithLevel(models.ApprovalLevelL1), original.ID, RenewPolicyInput{})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !renewal.GrossPremium.Equal(dec("15000.25")) {
		t.Fatalf("expected premium carried forward, got %s", renewal.GrossPremium)
	}
	if renewal.CurrentStatus() != models.PolicyStatusDraft || renewal.HasSlip() {
		t.Fatalf("expected a fresh draft policy without slip")
	}
}

func TestRenewPolicy_AdjustmentIsUnbounded(t *testing.T) {
	e, _ := newTestEngine(t)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00019", status: status(models.PolicyStatusActive), premium: "1000"})

	adj := dec("-120")
	renewal, err := e.RenewPolicy(context.Background(), actorWithLevel(models.ApprovalLevelL1), original.ID, RenewPolicyInput{AdjustmentPercent: &adj})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !renewal.GrossPremium.Equal(dec("-200")) {
		t.Fatalf("expected -200, got %s", renewal.GrossPremium)
	}
}

func TestRenewPolicy_CancelledRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00020", status: status(models.PolicyStatusCancelled)})

	_, err := e.RenewPolicy(context.Background(), actorWithLevel(models.ApprovalLevelL1), original.ID, RenewPolicyInput{})
	expectCode(t, err, utils.ErrInvalidTransition)
}

func TestCancelPolicy(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	actor := actorWithLevel(models.ApprovalLevelL2)
	policy := seedPolicy(t, e, policySeed{number: "POL/2025/00003", status: status(models.PolicyStatusActive)})

	cancelled, err := e.CancelPolicy(ctx, actor, policy.ID, CancelPolicyInput{Reason: " non-payment "})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CurrentStatus() != models.PolicyStatusCancelled || cancelled.CancellationReason != "non-payment" || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled policy %+v", cancelled)
	}
	if cancelled.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", cancelled.Version)
	}

	_, err = e.CancelPolicy(ctx, actor, policy.ID, CancelPolicyInput{})
	expectCode(t, err, utils.ErrStatusUnchanged)

	expired := seedPolicy(t, e, policySeed{number: "POL/2025/00004", status: status(models.PolicyStatusExpired)})
	_, err = e.CancelPolicy(ctx, actor, expired.ID, CancelPolicyInput{})
	expectCode(t, err, utils.ErrInvalidTransition)
}
