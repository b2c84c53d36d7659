// Package model defines the core domain types shared across the DCA engine.
// All monetary values use shopspring/decimal — never float64 for money.
// Amounts are whole numbers of base units; prices are 8-decimal fixed point.
package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the minimum elapsed time required between successive
// purchases for one user.
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
)

// ErrUnknownFrequency is returned for frequency tags outside the enum.
var ErrUnknownFrequency = errors.New("model: unknown frequency")

// Interval returns the elapsed-time threshold for the frequency. The switch
// is exhaustive: an out-of-range tag is an error, never a silent false.
func (f Frequency) Interval() (time.Duration, error) {
	switch f {
	case Daily:
		return 24 * time.Hour, nil
	case Weekly:
		return 7 * 24 * time.Hour, nil
	case Monthly:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, ErrUnknownFrequency
	}
}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParseFrequency converts the wire enum {0,1,2} into a Frequency.
func ParseFrequency(n int) (Frequency, error) {
	f := Frequency(n)
	if _, err := f.Interval(); err != nil {
		return 0, err
	}
	return f, nil
}

// InvestmentRecord is one user's active recurring-purchase plan.
// A record exists only while RemainingToInvest > 0; completion removes it,
// so a user may re-enroll after finishing a plan.
type InvestmentRecord struct {
	UserID            string          `json:"user_id" db:"user_id"`
	RemainingToInvest decimal.Decimal `json:"remaining_to_invest" db:"remaining_to_invest"`
	PerPeriodAmount   decimal.Decimal `json:"per_period_amount" db:"per_period_amount"`
	LastPurchaseAt    time.Time       `json:"last_purchase_at" db:"last_purchase_at"` // zero value = never purchased
	Frequency         Frequency       `json:"frequency" db:"frequency"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Active reports whether the record represents a live plan.
func (r InvestmentRecord) Active() bool {
	return r.RemainingToInvest.IsPositive()
}

// PurchaseEntry is an immutable record of one executed purchase.
// Once created, these are never modified or deleted.
type PurchaseEntry struct {
	ID             string          `json:"id" db:"id"`
	BatchID        string          `json:"batch_id" db:"batch_id"`
	UserID         string          `json:"user_id" db:"user_id"`
	TargetAsset    string          `json:"target_asset" db:"target_asset"`
	Spend          decimal.Decimal `json:"spend" db:"spend"`
	MinimumOut     decimal.Decimal `json:"minimum_out" db:"minimum_out"`
	AmountReceived decimal.Decimal `json:"amount_received" db:"amount_received"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
}

// Event types emitted by batch execution.
const (
	EventPurchased          = "purchased"
	EventInvestmentFinished = "investment_finished"
)

// Event is one entry of the batch event stream. AmountReceived reports the
// AMM output for purchased events (it may exceed the minimum-out bound) and
// is zero for finished events.
type Event struct {
	Type           string          `json:"type"`
	BatchID        string          `json:"batch_id"`
	UserID         string          `json:"user_id"`
	TargetAsset    string          `json:"target_asset"`
	AmountReceived decimal.Decimal `json:"amount_received"`
}
