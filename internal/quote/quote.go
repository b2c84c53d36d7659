// Package quote converts oracle prices into a minimum acceptable swap
// output. The result is handed to the AMM router as its amount-out-min
// parameter, so execution reverts whenever the pool price has drifted too
// far below the oracle-implied rate.
//
// All arithmetic is integer arithmetic over base units: products are exact
// and divisions truncate toward zero, matching the fixed-point convention of
// the feeds. Both prices come from the same adapter and therefore share the
// same 8-decimal scale, which is what makes the cross-rate division
// dimensionally correct.
package quote

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/oracle"
)

// Protective discount applied below the raw oracle-implied output:
// 10000/10500 ≈ 4.76%. Guards against pool/oracle divergence and against a
// privileged operator timing batches around price moves.
var (
	discountNum = decimal.NewFromInt(10000)
	discountDen = decimal.NewFromInt(10500)
)

// PriceSource supplies validated prices at a shared fixed-point scale.
type PriceSource interface {
	Price(ctx context.Context, sel oracle.Selector) (decimal.Decimal, error)
}

// Quoter computes minimum-out bounds from live oracle prices.
// It is stateless; every call re-reads both feeds.
type Quoter struct {
	prices PriceSource
}

// NewQuoter creates a quoter over the given price source.
func NewQuoter(prices PriceSource) *Quoter {
	return &Quoter{prices: prices}
}

// MinimumOut returns the lowest acceptable target-asset output for spending
// baseAmount units of the base asset:
//
//	rawOut = trunc(baseAmount * basePrice / targetPrice)
//	minOut = trunc(rawOut * 10000 / 10500)
//
// Oracle failures propagate unchanged.
func (q *Quoter) MinimumOut(ctx context.Context, baseAmount decimal.Decimal) (decimal.Decimal, error) {
	targetPrice, err := q.prices.Price(ctx, oracle.SelectorTarget)
	if err != nil {
		return decimal.Decimal{}, err
	}
	basePrice, err := q.prices.Price(ctx, oracle.SelectorBase)
	if err != nil {
		return decimal.Decimal{}, err
	}

	rawOut, _ := baseAmount.Mul(basePrice).QuoRem(targetPrice, 0)
	minOut, _ := rawOut.Mul(discountNum).QuoRem(discountDen, 0)
	return minOut, nil
}
