package utils

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAsOf(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"", now},
		{"2025-06-15", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{" 2025-06-15T08:30:00+01:00 ", time.Date(2025, 6, 15, 7, 30, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseAsOf(c.raw, now)
		if err != nil {
			t.Fatalf("%q: %v", c.raw, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("%q: expected %s, got %s", c.raw, c.want, got)
		}
	}
	if _, err := ParseAsOf("yesterday", now); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestStartOfDay(t *testing.T) {
	wat := time.FixedZone("WAT", 3600)
	got := StartOfDay(time.Date(2025, 6, 15, 23, 59, 0, 0, wat))
	if !got.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, wat)) || got.Location() != wat {
		t.Fatalf("expected local midnight of 2025-06-15, got %s", got)
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold([]string{"md", "ceo"}, " MD ") {
		t.Fatalf("expected case-insensitive match")
	}
	if ContainsFold(nil, "md") || ContainsFold([]string{"md"}, "underwriter") {
		t.Fatalf("unexpected match")
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber("0803 123 4567", "NG")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "+2348031234567" {
		t.Fatalf("expected +2348031234567, got %s", got)
	}
	if _, err := NormalizePhoneNumber("12", "NG"); err == nil {
		t.Fatalf("expected an invalid number to be rejected")
	}
}

func TestHTTPStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ValidationFailed("name", "required"), http.StatusBadRequest},
		{NewDomainError(ErrCodeNotFound, "", nil), http.StatusNotFound},
		{NewDomainError(ErrCodeInvalidTransition, "", nil), http.StatusUnprocessableEntity},
		{NewDomainError(ErrCodeInsufficientApprovalLevel, "", nil), http.StatusForbidden},
		{NewDomainError(ErrCodeAlreadyRenewed, "", nil), http.StatusConflict},
		{&BelowMinimumPremiumError{Shortfall: decimal.NewFromInt(10)}, http.StatusUnprocessableEntity},
		{&SequenceExhaustedError{Scope: "POLICY", Year: 2025, Attempts: 5}, http.StatusServiceUnavailable},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusFor(c.err); got != c.want {
			t.Fatalf("%v: expected %d, got %d", c.err, c.want, got)
		}
	}
}

func TestBelowMinimumPremiumError_Is(t *testing.T) {
	refused := &BelowMinimumPremiumError{OverrideRequested: true, CanOverride: false}
	if !errors.Is(refused, ErrBelowMinimumPremium) || !errors.Is(refused, ErrInsufficientOverrideAuthority) {
		t.Fatalf("expected a refused override to match both codes")
	}
	unconfirmed := &BelowMinimumPremiumError{CanOverride: true}
	if errors.Is(unconfirmed, ErrInsufficientOverrideAuthority) {
		t.Fatalf("an unconfirmed override is not an authority failure")
	}
	if !IsInfrastructureError(&SequenceExhaustedError{}) || IsInfrastructureError(unconfirmed) {
		t.Fatalf("unexpected infrastructure classification")
	}
}
