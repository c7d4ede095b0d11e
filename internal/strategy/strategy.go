// Package strategy holds the Strategy contract shared by DutchArb and
// MarketMaker, the market config/parameter data model, and the lock helper
// both variants run their Execute body under.
package strategy

import (
	"context"
	"time"

	"github.com/polystrat/strategy-core/internal/marketlock"
)

// Strategy is the contract the manager dispatches against: one
// externally-visible Execute call per market per cycle, run entirely under
// that market's lock.
type Strategy interface {
	ID() string
	Execute(ctx context.Context, marketID string, cfg MarketConfig, params StrategyParams) error
}

// BaseStrategy gives a strategy the shared per-market lock helper. Strategy
// implementations embed it and call WithLock around their Execute body,
// mirroring the original's get_lock(market_id) wrapped in an async context
// manager.
type BaseStrategy struct {
	Locks *marketlock.Registry
}

// WithLock runs fn with marketID's lock held for the duration, releasing it
// on every return path including a panic inside fn.
func (b BaseStrategy) WithLock(marketID string, fn func()) {
	b.Locks.WithLock(marketID, fn)
}

// CtxSleep sleeps for d or returns ctx.Err() early if ctx is cancelled
// first. The 500ms arb-leg settlement wait and the 2s market-maker cycle
// wait are both deliberate windows, not a retry budget — this helper
// respects cancellation without turning either into one.
func CtxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
