package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorCode is the stable, machine-readable identifier of a rejection.
// Values are part of the API contract; never rename them.
type ErrorCode string

const (
	ErrCodeValidation                    ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound                      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition             ErrorCode = "INVALID_TRANSITION"
	ErrCodeStatusUnchanged               ErrorCode = "STATUS_UNCHANGED"
	ErrCodeInsurerNotQuoted              ErrorCode = "INSURER_NOT_QUOTED"
	ErrCodeInsufficientApprovalLevel     ErrorCode = "INSUFFICIENT_APPROVAL_LEVEL"
	ErrCodeInsufficientOverrideAuthority ErrorCode = "INSUFFICIENT_OVERRIDE_AUTHORITY"
	ErrCodeAlreadyRenewed                ErrorCode = "ALREADY_RENEWED"
	ErrCodeSlipAlreadyGenerated          ErrorCode = "SLIP_ALREADY_GENERATED"
	ErrCodeSlipNotGenerated              ErrorCode = "SLIP_NOT_GENERATED"
	ErrCodeSlipExpired                   ErrorCode = "SLIP_EXPIRED"
	ErrCodeBelowMinimumPremium           ErrorCode = "BELOW_MINIMUM_PREMIUM"
	ErrCodeSequenceExhausted             ErrorCode = "SEQUENCE_EXHAUSTED"
	ErrCodeConflict                      ErrorCode = "CONFLICT"
)

// DomainError is an expected, caller-recoverable rejection. It carries enough
// structured context (current status, required level, ...) to render an
// actionable message.
type DomainError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any *DomainError with the same code, so the sentinels below work with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func NewDomainError(code ErrorCode, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

// Sentinels for errors.Is. Compare by code, never by message.
var (
	ErrValidation                    = &DomainError{Code: ErrCodeValidation}
	ErrNotFound                      = &DomainError{Code: ErrCodeNotFound}
	ErrInvalidTransition             = &DomainError{Code: ErrCodeInvalidTransition}
	ErrStatusUnchanged               = &DomainError{Code: ErrCodeStatusUnchanged}
	ErrInsurerNotQuoted              = &DomainError{Code: ErrCodeInsurerNotQuoted}
	ErrInsufficientApprovalLevel     = &DomainError{Code: ErrCodeInsufficientApprovalLevel}
	ErrInsufficientOverrideAuthority = &DomainError{Code: ErrCodeInsufficientOverrideAuthority}
	ErrAlreadyRenewed                = &DomainError{Code: ErrCodeAlreadyRenewed}
	ErrSlipAlreadyGenerated          = &DomainError{Code: ErrCodeSlipAlreadyGenerated}
	ErrSlipNotGenerated              = &DomainError{Code: ErrCodeSlipNotGenerated}
	ErrSlipExpired                   = &DomainError{Code: ErrCodeSlipExpired}
	ErrBelowMinimumPremium           = &DomainError{Code: ErrCodeBelowMinimumPremium}
	ErrSequenceExhausted             = &DomainError{Code: ErrCodeSequenceExhausted}
	ErrConflict                      = &DomainError{Code: ErrCodeConflict}
)

// BelowMinimumPremiumError is returned when an endorsement would leave the
// policy premium under the line's minimum and no override applies.
type BelowMinimumPremiumError struct {
	ResultingPremium  decimal.Decimal
	MinPremium        decimal.Decimal
	Shortfall         decimal.Decimal
	CanOverride       bool
	OverrideRequested bool
}

func (e *BelowMinimumPremiumError) Error() string {
	return fmt.Sprintf("%s: resulting premium %s is below minimum %s (shortfall %s, can override: %t)",
		ErrCodeBelowMinimumPremium, e.ResultingPremium, e.MinPremium, e.Shortfall, e.CanOverride)
}

// Is also matches ErrInsufficientOverrideAuthority when the caller asked for an
// override it is not entitled to.
func (e *BelowMinimumPremiumError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	switch t.Code {
	case ErrCodeBelowMinimumPremium:
		return true
	case ErrCodeInsufficientOverrideAuthority:
		return e.OverrideRequested && !e.CanOverride
	}
	return false
}

func (e *BelowMinimumPremiumError) Details() map[string]any {
	return map[string]any{
		"resultingPremium": e.ResultingPremium.String(),
		"minPremium":       e.MinPremium.String(),
		"shortfall":        e.Shortfall.String(),
		"canOverride":      e.CanOverride,
	}
}

// SequenceExhaustedError is an infrastructure failure: the counter row kept
// conflicting for every permitted attempt.
type SequenceExhaustedError struct {
	Scope    string
	Year     int
	Subtype  string
	Attempts int
	Err      error
}

func (e *SequenceExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s/%d/%s not allocated after %d attempts: %v",
		ErrCodeSequenceExhausted, e.Scope, e.Year, e.Subtype, e.Attempts, e.Err)
}

func (e *SequenceExhaustedError) Unwrap() error {
	return e.Err
}

func (e *SequenceExhaustedError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == ErrCodeSequenceExhausted
	}
	return false
}

// ErrorCodeOf extracts the stable code of err, if it has one.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	var bm *BelowMinimumPremiumError
	if errors.As(err, &bm) {
		return ErrCodeBelowMinimumPremium, true
	}
	var se *SequenceExhaustedError
	if errors.As(err, &se) {
		return ErrCodeSequenceExhausted, true
	}
	return "", false
}

// ErrorDetailsOf returns the structured context attached to err.
func ErrorDetailsOf(err error) map[string]any {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Details
	}
	var bm *BelowMinimumPremiumError
	if errors.As(err, &bm) {
		return bm.Details()
	}
	var se *SequenceExhaustedError
	if errors.As(err, &se) {
		return map[string]any{"scope": se.Scope, "year": se.Year, "subtype": se.Subtype, "attempts": se.Attempts}
	}
	return nil
}

// IsInfrastructureError reports failures that must surface as 5xx: exhausted
// sequences and every error without a business-rule code.
func IsInfrastructureError(err error) bool {
	if err == nil {
		return false
	}
	code, ok := ErrorCodeOf(err)
	return !ok || code == ErrCodeSequenceExhausted
}

func HTTPStatusFor(err error) int {
	code, ok := ErrorCodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInsufficientApprovalLevel, ErrCodeInsufficientOverrideAuthority:
		return http.StatusForbidden
	case ErrCodeConflict, ErrCodeAlreadyRenewed, ErrCodeSlipAlreadyGenerated:
		return http.StatusConflict
	case ErrCodeSequenceExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
