package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/brokerage_backend/models"
	"gorm.io/gorm"
)

const (
	clientPrefix      = "CLT"
	policyPrefix      = "POL"
	slipPrefix        = "BRK"
	endorsementPrefix = "END"

	defaultWidth = 5
	slipWidth    = 6
)

var clientTypeSegments = map[models.ClientType]string{
	models.ClientTypeIndividual: "IND",
	models.ClientTypeCorporate:  "CORP",
}

// Allocator turns counter values into business codes. The year is taken
// from Now, so tests can pin it.
type Allocator struct {
	Store *SequenceStore
	Now   func() time.Time
}

func NewAllocator(store *SequenceStore) *Allocator {
	return &Allocator{Store: store, Now: time.Now}
}

// WithTx binds the underlying store to tx.
func (a *Allocator) WithTx(tx *gorm.DB) *Allocator {
	c := *a
	c.Store = a.Store.WithTx(tx)
	return &c
}

func (a *Allocator) year() int {
	if a.Now == nil {
		return time.Now().UTC().Year()
	}
	return a.Now().UTC().Year()
}

// NextClientCode returns CLT/YYYY/NNNNN, or CLT/YYYY/IND/NNNNN and
// CLT/YYYY/CORP/NNNNN for typed clients. Each form has its own counter.
func (a *Allocator) NextClientCode(ctx context.Context, clientType models.ClientType) (string, error) {
	year := a.year()
	segment := clientTypeSegments[clientType]
	subtype := ""
	if segment != "" {
		subtype = string(clientType)
	}
	n, err := a.Store.Allocate(ctx, SequenceKey{Scope: models.SequenceScopeClient, Year: year, Subtype: subtype})
	if err != nil {
		return "", err
	}
	if segment == "" {
		return FormatCode(clientPrefix, year, n, defaultWidth), nil
	}
	return fmt.Sprintf("%s/%d/%s/%0*d", clientPrefix, year, segment, defaultWidth, n), nil
}

func (a *Allocator) NextPolicyNumber(ctx context.Context) (string, error) {
	return a.next(ctx, models.SequenceScopePolicy, policyPrefix, defaultWidth)
}

func (a *Allocator) NextSlipNumber(ctx context.Context) (string, error) {
	return a.next(ctx, models.SequenceScopeSlip, slipPrefix, slipWidth)
}

func (a *Allocator) NextEndorsementNumber(ctx context.Context) (string, error) {
	return a.next(ctx, models.SequenceScopeEndorsement, endorsementPrefix, defaultWidth)
}

func (a *Allocator) next(ctx context.Context, scope models.SequenceScope, prefix string, width int) (string, error) {
	year := a.year()
	n, err := a.Store.Allocate(ctx, SequenceKey{Scope: scope, Year: year})
	if err != nil {
		return "", err
	}
	return FormatCode(prefix, year, n, width), nil
}

// FormatCode renders PREFIX/YYYY/NNN..., zero-padded to width. Values wider
// than width are printed in full.
func FormatCode(prefix string, year int, n int64, width int) string {
	return fmt.Sprintf("%s/%d/%0*d", prefix, year, width, n)
}
