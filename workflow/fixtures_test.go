package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/testutil"
	"github.com/mmdatafocus/brokerage_backend/utils"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T) (*Engine, *testClock) {
	t.Helper()
	clock := &testClock{now: testNow}
	e := NewEngine(testutil.NewDB(t), nil)
	e.Now = clock.Now
	e.Codes.Store.RetryBackoff = time.Millisecond
	e.OverrideRoles = []string{"md"}
	e.SlipValidity = 30 * 24 * time.Hour
	return e, clock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func actorWithLevel(level models.ApprovalLevel) models.Actor {
	return models.Actor{UserId: 7, Role: "underwriter", ApprovalLevel: level}
}

func managingDirector(limit string) models.Actor {
	return models.Actor{UserId: 1, Role: "MD", ApprovalLevel: models.ApprovalLevelL3, MaxOverrideLimit: dec(limit)}
}

func seedLine(t *testing.T, e *Engine, minPremium string) *models.LineOfBusiness {
	t.Helper()
	line := &models.LineOfBusiness{
		Code:                "FIRE",
		Name:                "Fire & Special Perils",
		RateBasis:           "percentage",
		RatingInputs:        `{"rate": 0.5}`,
		MinPremium:          dec(minPremium),
		DefaultBrokeragePct: dec("20"),
		DefaultVatPct:       dec("7.5"),
		IsActive:            true,
	}
	if err := e.DB.Create(line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}
	return line
}

func seedClient(t *testing.T, e *Engine) *models.Client {
	t.Helper()
	client := &models.Client{ClientCode: "CLT/2025/00099", ClientType: models.ClientTypeCorporate, Name: "Dangote Logistics"}
	if err := e.DB.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

type policySeed struct {
	number  string
	status  *models.PolicyStatus
	premium string
	endDate time.Time
	lineId  int
}

func seedPolicy(t *testing.T, e *Engine, s policySeed) *models.Policy {
	t.Helper()
	if s.premium == "" {
		s.premium = "10000"
	}
	if s.endDate.IsZero() {
		s.endDate = testNow.AddDate(0, 6, 0)
	}
	policy := &models.Policy{
		PolicyNumber:     s.number,
		ClientId:         1,
		InsurerId:        3,
		LineOfBusinessId: s.lineId,
		SumInsured:       dec("2000000"),
		GrossPremium:     dec(s.premium),
		Currency:         "NGN",
		StartDate:        s.endDate.AddDate(-1, 0, 1),
		EndDate:          s.endDate,
		Status:           s.status,
		Version:          1,
	}
	if err := e.DB.Create(policy).Error; err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	return policy
}

func status(s models.PolicyStatus) *models.PolicyStatus {
	return &s
}

func reloadPolicy(t *testing.T, e *Engine, id int) *models.Policy {
	t.Helper()
	var p models.Policy
	if err := e.DB.First(&p, id).Error; err != nil {
		t.Fatalf("reload policy %d: %v", id, err)
	}
	return &p
}

func expectCode(t *testing.T, err error, sentinel *utils.DomainError) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", sentinel.Code)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %s, got %v", sentinel.Code, err)
	}
}

func countEvents(t *testing.T, e *Engine, eventType string) int64 {
	t.Helper()
	var n int64
	if err := e.DB.Model(&models.LifecycleEvent{}).Where("event_type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}
