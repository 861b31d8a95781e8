package numbering

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/testutil"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
}

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	store := NewSequenceStore(testutil.NewDB(t), nil)
	store.RetryBackoff = time.Millisecond
	a := NewAllocator(store)
	a.Now = fixedNow
	return a
}

func seedCounter(t *testing.T, a *Allocator, scope models.SequenceScope, subtype string, last int64) {
	t.Helper()
	err := a.Store.DB.Create(&models.SequenceCounter{Scope: scope, Year: 2025, Subtype: subtype, LastAllocated: last}).Error
	if err != nil {
		t.Fatalf("seed counter: %v", err)
	}
}

func TestNextPolicyNumber_Padding(t *testing.T) {
	a := newTestAllocator(t)
	seedCounter(t, a, models.SequenceScopePolicy, "", 41)

	got, err := a.NextPolicyNumber(context.Background())
	if err != nil {
		t.Fatalf("next policy number: %v", err)
	}
	if got != "POL/2025/00042" {
		t.Fatalf("expected POL/2025/00042, got %s", got)
	}
}

func TestNextSlipNumber_SixDigits(t *testing.T) {
	a := newTestAllocator(t)
	seedCounter(t, a, models.SequenceScopeSlip, "", 6)

	got, err := a.NextSlipNumber(context.Background())
	if err != nil {
		t.Fatalf("next slip number: %v", err)
	}
	if got != "BRK/2025/000007" {
		t.Fatalf("expected BRK/2025/000007, got %s", got)
	}
}

func TestNextEndorsementNumber_FreshYear(t *testing.T) {
	a := newTestAllocator(t)
	got, err := a.NextEndorsementNumber(context.Background())
	if err != nil {
		t.Fatalf("next endorsement number: %v", err)
	}
	if got != "END/2025/00001" {
		t.Fatalf("expected END/2025/00001, got %s", got)
	}
}

func TestNextClientCode_TypedCountersAreIndependent(t *testing.T) {
	a := newTestAllocator(t)
	ctx := context.Background()

	steps := []struct {
		clientType models.ClientType
		want       string
	}{
		{models.ClientTypeIndividual, "CLT/2025/IND/00001"},
		{models.ClientTypeIndividual, "CLT/2025/IND/00002"},
		{models.ClientTypeCorporate, "CLT/2025/CORP/00001"},
		{"", "CLT/2025/00001"},
		{models.ClientTypeCorporate, "CLT/2025/CORP/00002"},
	}
	for _, s := range steps {
		got, err := a.NextClientCode(ctx, s.clientType)
		if err != nil {
			t.Fatalf("next client code: %v", err)
		}
		if got != s.want {
			t.Fatalf("expected %s got %s", s.want, got)
		}
	}
}

func TestNextPolicyNumber_YearRollover(t *testing.T) {
	a := newTestAllocator(t)
	seedCounter(t, a, models.SequenceScopePolicy, "", 900)
	a.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC) }

	got, err := a.NextPolicyNumber(context.Background())
	if err != nil {
		t.Fatalf("next policy number: %v", err)
	}
	if got != "POL/2026/00001" {
		t.Fatalf("expected a fresh counter for 2026, got %s", got)
	}
}

func TestFormatCode_WiderThanPad(t *testing.T) {
	if got := FormatCode("POL", 2025, 123456, 5); got != "POL/2025/123456" {
		t.Fatalf("expected POL/2025/123456, got %s", got)
	}
}
