// Package ordergate decides, for one side of one outcome, whether to keep a
// resting order, cancel it and place a fresh one, or skip placement because
// the target falls outside the acceptable price band.
package ordergate

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/execclient"
)

// Decision is the outcome of evaluating a target against the current resting
// order. Gate.Reconcile interprets it; callers that only need the decision
// (e.g. tests) can inspect it directly.
type Decision int

const (
	// DecisionKeep: the resting order is close enough to target; do nothing.
	DecisionKeep Decision = iota
	// DecisionCancelAndPlace: cancel (if anything is resting on either side)
	// and place the target.
	DecisionCancelAndPlace
	// DecisionSkip: cancel (if anything is resting on either side) but do not
	// place — the target falls outside the admissible band.
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionKeep:
		return "keep"
	case DecisionCancelAndPlace:
		return "cancel_and_place"
	case DecisionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Target is the order the strategy wants resting on-book.
type Target struct {
	Price float64
	Size  float64
}

// RestingOrder is the order currently on-book for one side. Exists is false
// when nothing rests there — the zero value already reads that way, but the
// explicit field avoids ambiguity with a legitimately-zero price/size.
type RestingOrder struct {
	Price  float64
	Size   float64
	Exists bool
}

const (
	priceDiffTolerance = 0.005
	sizeDiffFraction   = 0.1
	buyPriceFloor      = 0.1
	buyPriceCeiling    = 0.9
)

// Decide implements spec.md §4.2 exactly: it is evaluated once per side per
// strategy cycle, symmetric for BUY and SELL except for the admission checks
// applied after the cancel/keep decision.
func Decide(side execclient.Side, target Target, restingSameSide, restingOtherSide RestingOrder, midPrice, maxSpreadPercent float64) Decision {
	priceDiff := math.Inf(1)
	sizeDiff := math.Inf(1)
	if restingSameSide.Exists {
		priceDiff = math.Abs(restingSameSide.Price - target.Price)
		sizeDiff = math.Abs(restingSameSide.Size - target.Size)
	}

	shouldCancel := priceDiff > priceDiffTolerance ||
		sizeDiff > sizeDiffFraction*target.Size ||
		!restingSameSide.Exists

	if !shouldCancel {
		return DecisionKeep
	}

	if side == execclient.Sell {
		return DecisionCancelAndPlace
	}

	// BUY-specific admission.
	incentiveStart := midPrice - maxSpreadPercent/100
	if target.Price < incentiveStart {
		return DecisionSkip
	}
	if target.Price < buyPriceFloor || target.Price >= buyPriceCeiling {
		return DecisionSkip
	}

	return DecisionCancelAndPlace
}

// Gate wraps an execclient.Client so callers evaluate Decide and execute its
// consequence in one call, instead of hand-rolling the cancel/place sequence
// at every call site.
type Gate struct {
	client execclient.Client
	logger *zap.Logger
}

// NewGate returns a Gate backed by client.
func NewGate(client execclient.Client, logger *zap.Logger) *Gate {
	return &Gate{client: client, logger: logger}
}

// Reconcile evaluates Decide and carries out its consequence: cancelling the
// asset's resting orders and/or placing target, per Decision's contract.
// tickDigits rounds target.Price before it reaches the exchange, satisfying
// the "every outbound order price is a multiple of tick_size" invariant.
func (g *Gate) Reconcile(
	ctx context.Context,
	token string,
	side execclient.Side,
	target Target,
	restingSameSide, restingOtherSide RestingOrder,
	midPrice, maxSpreadPercent float64,
	tickDigits int32,
	negRisk bool,
) (Decision, error) {
	rounded := decimal.NewFromFloat(target.Price).Round(tickDigits)
	target.Price, _ = rounded.Float64()

	decision := Decide(side, target, restingSameSide, restingOtherSide, midPrice, maxSpreadPercent)

	switch decision {
	case DecisionKeep:
		return decision, nil
	case DecisionCancelAndPlace:
		if restingSameSide.Exists || restingOtherSide.Exists {
			if err := g.client.CancelAllAsset(ctx, token); err != nil {
				return decision, fmt.Errorf("cancel all asset %s: %w", token, err)
			}
		}
		if err := g.client.CreateOrder(ctx, token, side, target.Price, target.Size, negRisk); err != nil {
			return decision, fmt.Errorf("create %s order for %s: %w", side, token, err)
		}
		return decision, nil
	case DecisionSkip:
		if restingSameSide.Exists || restingOtherSide.Exists {
			if err := g.client.CancelAllAsset(ctx, token); err != nil {
				return decision, fmt.Errorf("cancel all asset %s: %w", token, err)
			}
		}
		return decision, nil
	default:
		return decision, fmt.Errorf("unknown order gate decision %v", decision)
	}
}
