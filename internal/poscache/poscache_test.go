package poscache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/poscache"
	"github.com/polystrat/strategy-core/pkg/cache"
)

func TestMapCache_SetThenGetPosition(t *testing.T) {
	c := poscache.NewMapCache()

	c.SetPosition("token-1", execclient.Buy, 42.5, 0.48, "fill")

	pos := c.GetPosition("token-1")
	assert.Equal(t, 42.5, pos.Size)
	assert.Equal(t, 0.48, pos.AvgPrice)
	assert.Equal(t, int64(42_500_000), pos.RawSize)
}

func TestMapCache_MissingPositionIsZeroValue(t *testing.T) {
	c := poscache.NewMapCache()
	assert.Equal(t, poscache.Position{}, c.GetPosition("unknown"))
}

func TestMapCache_SetOrderPerSide(t *testing.T) {
	c := poscache.NewMapCache()

	c.SetOrder("token-1", execclient.Buy, 10, 0.45)
	c.SetOrder("token-1", execclient.Sell, 5, 0.55)

	orders := c.GetOrder("token-1")
	assert.Equal(t, poscache.OrderSide{Size: 10, Price: 0.45}, orders.Buy)
	assert.Equal(t, poscache.OrderSide{Size: 5, Price: 0.55}, orders.Sell)

	c.ClearOrder("token-1", execclient.Buy)
	orders = c.GetOrder("token-1")
	assert.Equal(t, poscache.OrderSide{}, orders.Buy)
	assert.Equal(t, poscache.OrderSide{Size: 5, Price: 0.55}, orders.Sell)
}

func TestRistrettoCache_SetThenGetPosition(t *testing.T) {
	rc, err := poscache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 100,
		MaxCost:     1 << 10,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("build ristretto cache: %v", err)
	}
	defer rc.Close()

	rc.SetPosition("token-1", execclient.Buy, 10, 0.5, "fill")
	rc.WaitForTests()

	pos := rc.GetPosition("token-1")
	assert.Equal(t, 10.0, pos.Size)
}
