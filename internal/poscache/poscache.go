// Package poscache is the local position/order cache contract (spec.md §6):
// a scaled, authoritative-for-sizing view of each outcome token's position
// and resting orders, updated only while the owning market's lock is held.
package poscache

import (
	"sync"

	"github.com/polystrat/strategy-core/internal/execclient"
)

// Position is the scaled view of a token's holdings, plus the raw
// micro-unit form the exchange returns. The constructor is the only place
// scaled is derived from raw, so the Size == RawSize/1e6 invariant can never
// drift between call sites.
type Position struct {
	Size     float64
	AvgPrice float64
	RawSize  int64
}

// NewPosition builds a Position from the exchange's raw micro-unit amount.
func NewPosition(raw int64, avgPrice float64) Position {
	return Position{
		Size:     float64(raw) / 1e6,
		AvgPrice: avgPrice,
		RawSize:  raw,
	}
}

// OrderSide is one resting order, zero value means "nothing resting".
type OrderSide struct {
	Size  float64
	Price float64
}

// OpenOrders is the resting-order view for one token.
type OpenOrders struct {
	Buy  OrderSide
	Sell OrderSide
}

// Side returns the OrderSide for the given execclient.Side.
func (o OpenOrders) Side(side execclient.Side) OrderSide {
	if side == execclient.Sell {
		return o.Sell
	}
	return o.Buy
}

// Cache is the local position/order cache contract.
type Cache interface {
	GetPosition(token string) Position
	// SetPosition updates the cache after a fill, merge, or external
	// refresh. sourceTag is a free-form annotation ("fill", "merge",
	// "refresh") consumed only by callers outside this core's scope (spec.md
	// §9's note on set_position's zero-price merge annotation).
	SetPosition(token string, side execclient.Side, size, price float64, sourceTag string)

	GetOrder(token string) OpenOrders
	SetOrder(token string, side execclient.Side, size, price float64)
	ClearOrder(token string, side execclient.Side)
}

// MapCache is a plain-map Cache implementation: deterministic, no eviction,
// used by strategy tests (internal/app wires RistrettoCache in both modes).
type MapCache struct {
	mu        sync.Mutex
	positions map[string]Position
	orders    map[string]OpenOrders
}

// NewMapCache returns an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{
		positions: make(map[string]Position),
		orders:    make(map[string]OpenOrders),
	}
}

func (c *MapCache) GetPosition(token string) Position {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.positions[token]
}

func (c *MapCache) SetPosition(token string, _ execclient.Side, size, price float64, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos := c.positions[token]
	pos.Size = size
	pos.AvgPrice = price
	pos.RawSize = int64(size * 1e6)
	c.positions[token] = pos
}

func (c *MapCache) GetOrder(token string) OpenOrders {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.orders[token]
}

func (c *MapCache) SetOrder(token string, side execclient.Side, size, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.orders[token]
	if side == execclient.Sell {
		o.Sell = OrderSide{Size: size, Price: price}
	} else {
		o.Buy = OrderSide{Size: size, Price: price}
	}
	c.orders[token] = o
}

func (c *MapCache) ClearOrder(token string, side execclient.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.orders[token]
	if side == execclient.Sell {
		o.Sell = OrderSide{}
	} else {
		o.Buy = OrderSide{}
	}
	c.orders[token] = o
}

var _ Cache = (*MapCache)(nil)
