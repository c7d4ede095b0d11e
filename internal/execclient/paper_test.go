package execclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/execclient"
)

func TestPaperClient_BuyThenSellUpdatesPositionAndBalance(t *testing.T) {
	c := execclient.NewPaperClient(1000, zap.NewNop())
	ctx := context.Background()

	err := c.CreateOrder(ctx, "token-1", execclient.Buy, 0.5, 100, false)
	require.NoError(t, err)

	raw, scaled, avgPrice, err := c.GetPosition(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100*1e6), raw)
	assert.InDelta(t, 100.0, scaled, 1e-9)
	assert.InDelta(t, 0.5, avgPrice, 1e-9)

	balance, err := c.GetUSDCBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 950.0, balance, 1e-9)

	err = c.CreateOrder(ctx, "token-1", execclient.Sell, 0.6, 40, false)
	require.NoError(t, err)

	raw, scaled, _, err = c.GetPosition(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60*1e6), raw)
	assert.InDelta(t, 60.0, scaled, 1e-9)
}

func TestPaperClient_BuyBeyondBalanceFails(t *testing.T) {
	c := execclient.NewPaperClient(10, zap.NewNop())

	err := c.CreateOrder(context.Background(), "token-1", execclient.Buy, 0.5, 1000, false)
	require.Error(t, err)

	var orderErr *execclient.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, execclient.ErrCodeNotEnoughBalance, orderErr.Code)
}

func TestPaperClient_MergePositionsCreditsBalance(t *testing.T) {
	c := execclient.NewPaperClient(0, zap.NewNop())

	err := c.MergePositions(context.Background(), 50_000_000, "market-1", false)
	require.NoError(t, err)

	balance, err := c.GetUSDCBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, balance, 1e-9)
}
