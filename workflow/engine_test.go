package workflow

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/numbering"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"gorm.io/gorm"
)

// deadlockCounterInserts fails the first n inserts into sequence_counters
// (all of them when n < 0) the way InnoDB reports a deadlock victim.
func deadlockCounterInserts(t *testing.T, e *Engine, n int) *int {
	t.Helper()
	attempts := 0
	err := e.DB.Callback().Create().Before("gorm:create").Register("test:counter_deadlock", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "sequence_counters" {
			attempts++
			if n < 0 || attempts <= n {
				tx.AddError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"})
			}
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return &attempts
}

func TestRenewPolicy_RerunsWholeTransactionAfterDeadlock(t *testing.T) {
	e, _ := newTestEngine(t)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00031", status: status(models.PolicyStatusActive)})
	attempts := deadlockCounterInserts(t, e, 1)

	renewal, err := e.RenewPolicy(context.Background(), actorWithLevel(models.ApprovalLevelL1), original.ID, RenewPolicyInput{})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if *attempts != 2 {
		t.Fatalf("expected the unit of work to run twice, got %d counter inserts", *attempts)
	}
	if renewal.PolicyNumber != "POL/2025/00001" {
		t.Fatalf("expected POL/2025/00001, got %s", renewal.PolicyNumber)
	}

	var renewals int64
	e.DB.Model(&models.Policy{}).Where("renewed_from_policy_id = ?", original.ID).Count(&renewals)
	if renewals != 1 {
		t.Fatalf("expected exactly one renewal row, got %d", renewals)
	}
	var counter models.SequenceCounter
	if err := e.DB.Where("scope = ? AND year = ?", models.SequenceScopePolicy, 2025).First(&counter).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if counter.LastAllocated != 1 {
		t.Fatalf("expected counter at 1, got %d", counter.LastAllocated)
	}
	var events int64
	e.DB.Model(&models.LifecycleEvent{}).Where("event_type = ? AND reference_id = ?", models.EventPolicyRenewed, original.ID).Count(&events)
	if events != 1 {
		t.Fatalf("expected one renewal event, got %d", events)
	}
}

func TestRenewPolicy_RepeatedDeadlocksLeaveNothingBehind(t *testing.T) {
	e, _ := newTestEngine(t)
	original := seedPolicy(t, e, policySeed{number: "POL/2024/00032", status: status(models.PolicyStatusActive)})
	attempts := deadlockCounterInserts(t, e, -1)

	_, err := e.RenewPolicy(context.Background(), actorWithLevel(models.ApprovalLevelL1), original.ID, RenewPolicyInput{})
	if !numbering.IsTransactionAborted(err) {
		t.Fatalf("expected the deadlock to surface, got %v", err)
	}
	if !utils.IsInfrastructureError(err) || utils.HTTPStatusFor(err) != http.StatusInternalServerError {
		t.Fatalf("expected an infrastructure failure, got %v", err)
	}
	if *attempts != maxTxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxTxAttempts, *attempts)
	}

	var policies, counters int64
	e.DB.Model(&models.Policy{}).Count(&policies)
	e.DB.Model(&models.SequenceCounter{}).Count(&counters)
	if policies != 1 || counters != 0 {
		t.Fatalf("expected no renewal row and no counter, got %d policies %d counters", policies, counters)
	}
	if reloaded := reloadPolicy(t, e, original.ID); reloaded.RenewedToPolicyId != nil || reloaded.Version != 1 {
		t.Fatalf("expected original untouched, got %+v", reloaded)
	}
}
