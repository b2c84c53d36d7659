// Package ledger enforces the enrollment invariants over the investment
// mapping: one active record per user, positive deposit, positive per-period
// amount. Batch-execution mutations never go through this package; they are
// staged by the scheduler and committed through the store in one unit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/model"
	"github.com/stackvest/dca-engine/internal/store"
)

var (
	// ErrZeroDeposit is returned for deposits that are not positive whole
	// base units.
	ErrZeroDeposit = errors.New("ledger: deposit must be a positive whole number of base units")

	// ErrZeroPeriodAmount is returned for per-period amounts that are not
	// positive whole base units.
	ErrZeroPeriodAmount = errors.New("ledger: per-period amount must be a positive whole number of base units")

	// ErrAlreadyEnrolled is returned when the user already has an active
	// investment. The existing record is left unchanged.
	ErrAlreadyEnrolled = errors.New("ledger: user already enrolled")
)

// Ledger owns the per-user investment mapping.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// New creates a ledger over the given store.
func New(st store.Store) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// Enroll creates a new investment record. The deposit becomes the remaining
// balance and the last-purchase timestamp starts at its never-purchased
// sentinel, so the first batch that lists the user is immediately eligible.
func (l *Ledger) Enroll(ctx context.Context, userID string, perPeriod, deposit decimal.Decimal, freq model.Frequency) (model.InvestmentRecord, error) {
	if !deposit.IsPositive() || !deposit.IsInteger() {
		return model.InvestmentRecord{}, ErrZeroDeposit
	}
	if !perPeriod.IsPositive() || !perPeriod.IsInteger() {
		return model.InvestmentRecord{}, ErrZeroPeriodAmount
	}
	if _, err := freq.Interval(); err != nil {
		return model.InvestmentRecord{}, err
	}

	rec := model.InvestmentRecord{
		UserID:            userID,
		RemainingToInvest: deposit,
		PerPeriodAmount:   perPeriod,
		Frequency:         freq,
		CreatedAt:         l.now().UTC(),
	}

	if err := l.store.CreateInvestment(ctx, &rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return model.InvestmentRecord{}, fmt.Errorf("%w: %s", ErrAlreadyEnrolled, userID)
		}
		return model.InvestmentRecord{}, fmt.Errorf("enroll %s: %w", userID, err)
	}
	return rec, nil
}

// Get returns the user's record, or the zero-valued record when none exists.
// Read-only; absence is not an error.
func (l *Ledger) Get(ctx context.Context, userID string) (model.InvestmentRecord, error) {
	rec, err := l.store.GetInvestment(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.InvestmentRecord{UserID: userID}, nil
	}
	if err != nil {
		return model.InvestmentRecord{}, fmt.Errorf("get investment %s: %w", userID, err)
	}
	return *rec, nil
}
