package poscache

import (
	"sync"
	"time"

	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/pkg/cache"
)

// RistrettoCache is the hot-path Cache implementation: positions and orders
// are looked up far more often than they change, so reads go through
// ristretto's admission-policy cache instead of a plain mutex-guarded map.
// Writes still take the cache's own mutex because the read-modify-write
// pattern of SetPosition/SetOrder isn't atomic under ristretto alone.
type RistrettoCache struct {
	mu    sync.Mutex
	inner cache.Cache
}

// NewRistrettoCache wraps a ristretto-backed cache.Cache as a poscache.Cache.
func NewRistrettoCache(cfg *cache.RistrettoConfig) (*RistrettoCache, error) {
	inner, err := cache.NewRistrettoCache(cfg)
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{inner: inner}, nil
}

const noExpiry = 0 * time.Second

func positionKey(token string) string { return "pos:" + token }
func orderKey(token string) string    { return "ord:" + token }

func (c *RistrettoCache) GetPosition(token string) Position {
	v, ok := c.inner.Get(positionKey(token))
	if !ok {
		return Position{}
	}

	pos, ok := v.(Position)
	if !ok {
		return Position{}
	}

	return pos
}

func (c *RistrettoCache) SetPosition(token string, _ execclient.Side, size, price float64, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos := Position{Size: size, AvgPrice: price, RawSize: int64(size * 1e6)}
	c.inner.Set(positionKey(token), pos, noExpiry)
}

func (c *RistrettoCache) GetOrder(token string) OpenOrders {
	v, ok := c.inner.Get(orderKey(token))
	if !ok {
		return OpenOrders{}
	}

	o, ok := v.(OpenOrders)
	if !ok {
		return OpenOrders{}
	}

	return o
}

func (c *RistrettoCache) SetOrder(token string, side execclient.Side, size, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.GetOrder(token)
	if side == execclient.Sell {
		o.Sell = OrderSide{Size: size, Price: price}
	} else {
		o.Buy = OrderSide{Size: size, Price: price}
	}
	c.inner.Set(orderKey(token), o, noExpiry)
}

func (c *RistrettoCache) ClearOrder(token string, side execclient.Side) {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := c.GetOrder(token)
	if side == execclient.Sell {
		o.Sell = OrderSide{}
	} else {
		o.Buy = OrderSide{}
	}
	c.inner.Set(orderKey(token), o, noExpiry)
}

// Close releases the underlying ristretto cache's resources.
func (c *RistrettoCache) Close() {
	c.inner.Close()
}

// WaitForTests blocks until pending ristretto writes are applied; only
// needed by tests that write then immediately read.
func (c *RistrettoCache) WaitForTests() {
	if rc, ok := c.inner.(interface{ Wait() }); ok {
		rc.Wait()
	}
}

var _ Cache = (*RistrettoCache)(nil)
