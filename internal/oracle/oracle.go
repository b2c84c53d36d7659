// Package oracle adapts external price feeds into validated unsigned prices.
//
// Two independent feeds back every deployment: one quoting the base asset in
// USD and one quoting the target asset. Feeds report signed answers at their
// own declared decimal scale; the adapter rejects non-positive and stale
// answers and normalizes everything to 8-decimal fixed point so downstream
// math can divide prices directly. Prices are never cached — every call
// re-reads the feed.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Selector names one of the two configured feeds.
type Selector string

const (
	SelectorBase   Selector = "base"
	SelectorTarget Selector = "target"
)

// PriceScale is the fixed-point scale every validated price is normalized to,
// matching the external feed convention.
const PriceScale int32 = 8

var (
	// ErrInvalidOracleAnswer is returned when a feed reports a zero or
	// negative answer.
	ErrInvalidOracleAnswer = errors.New("oracle: feed answer must be positive")

	// ErrStalePrice is returned when a feed's answer is older than the
	// configured maximum age.
	ErrStalePrice = errors.New("oracle: feed answer is stale")

	// ErrUnknownFeed is returned for selectors outside {base, target}.
	ErrUnknownFeed = errors.New("oracle: unknown feed selector")
)

// Answer is one raw feed reading.
type Answer struct {
	Value     decimal.Decimal
	UpdatedAt time.Time
}

// Feed is the port to one external price feed.
type Feed interface {
	// LatestAnswer returns the most recent signed reading.
	LatestAnswer(ctx context.Context) (Answer, error)

	// Decimals is the fixed-point scale of the feed's answers.
	Decimals() int32
}

// Adapter wraps the base- and target-asset feeds behind positivity,
// staleness, and scale validation. maxAge == 0 disables the staleness check.
type Adapter struct {
	feeds  map[Selector]Feed
	maxAge time.Duration
	now    func() time.Time
}

// NewAdapter creates an adapter over the two configured feeds.
func NewAdapter(base, target Feed, maxAge time.Duration) *Adapter {
	return &Adapter{
		feeds: map[Selector]Feed{
			SelectorBase:   base,
			SelectorTarget: target,
		},
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Price reads the selected feed and returns its validated answer rescaled to
// PriceScale decimals.
func (a *Adapter) Price(ctx context.Context, sel Selector) (decimal.Decimal, error) {
	feed, ok := a.feeds[sel]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnknownFeed, sel)
	}

	ans, err := feed.LatestAnswer(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read %s feed: %w", sel, err)
	}
	if !ans.Value.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s feed reported %s", ErrInvalidOracleAnswer, sel, ans.Value)
	}
	if a.maxAge > 0 && !ans.UpdatedAt.IsZero() && a.now().Sub(ans.UpdatedAt) > a.maxAge {
		return decimal.Decimal{}, fmt.Errorf("%w: %s feed updated at %s", ErrStalePrice, sel, ans.UpdatedAt.UTC().Format(time.RFC3339))
	}

	if d := feed.Decimals(); d != PriceScale {
		return ans.Value.Shift(PriceScale - d), nil
	}
	return ans.Value, nil
}

// StaticFeed reports a settable fixed answer. Used for development and tests.
type StaticFeed struct {
	mu        sync.RWMutex
	value     decimal.Decimal
	updatedAt time.Time
	decimals  int32
}

// NewStaticFeed creates a feed reporting value at the given decimal scale.
func NewStaticFeed(value decimal.Decimal, decimals int32) *StaticFeed {
	return &StaticFeed{value: value, decimals: decimals}
}

// Set replaces the reported answer.
func (f *StaticFeed) Set(value decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
}

// SetUpdatedAt pins the reported update time.
func (f *StaticFeed) SetUpdatedAt(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = t
}

func (f *StaticFeed) LatestAnswer(_ context.Context) (Answer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Answer{Value: f.value, UpdatedAt: f.updatedAt}, nil
}

func (f *StaticFeed) Decimals() int32 {
	return f.decimals
}
