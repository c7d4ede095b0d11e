// Package execclient defines the exchange client contract the strategy core
// consumes — order placement, cancellation, position and balance queries,
// and position merge — plus two concrete adapters: a live CLOB client and a
// paper client for dry runs and tests.
package execclient

import "context"

// Side is the order side.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Client is the exchange capability this core consumes. Discovery, the
// order-book feed, and the wallet/position data sources behind a live
// implementation are external collaborators with contracts only, per
// spec.md §1.
type Client interface {
	// CreateOrder is fire-and-forget placement.
	CreateOrder(ctx context.Context, token string, side Side, price, size float64, negRisk bool) error

	CancelAllAsset(ctx context.Context, token string) error
	CancelAllMarket(ctx context.Context, marketID string) error

	// GetPosition returns the raw micro-unit position (x1e6) and the scaled
	// position a trader sees. scaled == float64(raw) / 1e6 whenever both are
	// populated by a real exchange; callers never recompute one from the
	// other themselves.
	GetPosition(ctx context.Context, token string) (raw int64, scaled float64, avgPrice float64, err error)

	GetUSDCBalance(ctx context.Context) (float64, error)

	// MergePositions burns raw (micro-units) of both outcome tokens and
	// credits USDC.
	MergePositions(ctx context.Context, raw int64, marketID string, negRisk bool) error
}
