// Package amm defines the ports to the external automated-market-maker that
// settles purchases. The engine never reimplements the AMM's pricing curve;
// it only requires that a swap either returns at least the caller-supplied
// minimum output or fails.
package amm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrPairNotCreated is returned at construction time when the factory
	// reports no liquidity pair for the configured assets.
	ErrPairNotCreated = errors.New("amm: liquidity pair not created")

	// ErrInsufficientOutput is returned when a swap cannot satisfy the
	// minimum-output bound.
	ErrInsufficientOutput = errors.New("amm: output below minimum")
)

// SwapRequest describes one exact-input swap. Path is the two-hop route from
// the base asset's wrapped form to the target asset.
type SwapRequest struct {
	Recipient    string
	AmountIn     decimal.Decimal
	AmountOutMin decimal.Decimal
	Path         []string
	Deadline     time.Time
}

// Router executes swaps, guaranteeing at least AmountOutMin or failing the
// call entirely.
type Router interface {
	SwapExactIn(ctx context.Context, req SwapRequest) (decimal.Decimal, error)
}

// Factory reports which liquidity pairs exist.
type Factory interface {
	PairExists(ctx context.Context, assetA, assetB string) (bool, error)
}

// FixedRateRouter settles swaps at a configurable target-per-base rate.
// It fills synchronously, so the deadline is always met. Used for
// development and tests; production deployments point Router at a real AMM.
type FixedRateRouter struct {
	mu       sync.Mutex
	rate     decimal.Decimal
	failWith error
	failAt   int // 1-based call index to fail at; 0 = every call while failWith is set
	calls    int
	swaps    []SwapRequest
}

// NewFixedRateRouter creates a router paying rate target units per base unit.
func NewFixedRateRouter(rate decimal.Decimal) *FixedRateRouter {
	return &FixedRateRouter{rate: rate}
}

// SetRate replaces the settlement rate.
func (r *FixedRateRouter) SetRate(rate decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate = rate
}

// FailWith makes every subsequent swap fail with err until reset with nil.
func (r *FixedRateRouter) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
	r.failAt = 0
}

// FailAt makes only the n-th swap call (1-based, counted across the router's
// lifetime) fail with err.
func (r *FixedRateRouter) FailAt(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
	r.failAt = n
}

// Swaps returns the executed swap requests in order.
func (r *FixedRateRouter) Swaps() []SwapRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SwapRequest, len(r.swaps))
	copy(out, r.swaps)
	return out
}

func (r *FixedRateRouter) SwapExactIn(_ context.Context, req SwapRequest) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.failWith != nil && (r.failAt == 0 || r.calls == r.failAt) {
		return decimal.Decimal{}, r.failWith
	}

	out := req.AmountIn.Mul(r.rate).Floor()
	if out.LessThan(req.AmountOutMin) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s < %s", ErrInsufficientOutput, out, req.AmountOutMin)
	}

	r.swaps = append(r.swaps, req)
	return out, nil
}

// StaticFactory knows a fixed set of pairs, order-insensitive.
type StaticFactory struct {
	pairs map[string]bool
}

// NewStaticFactory creates a factory from [assetA, assetB] pairs.
func NewStaticFactory(pairs ...[2]string) *StaticFactory {
	f := &StaticFactory{pairs: make(map[string]bool)}
	for _, p := range pairs {
		f.pairs[pairKey(p[0], p[1])] = true
	}
	return f
}

func (f *StaticFactory) PairExists(_ context.Context, assetA, assetB string) (bool, error) {
	return f.pairs[pairKey(assetA, assetB)], nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "/" + b
}
