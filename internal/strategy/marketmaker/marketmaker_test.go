package marketmaker_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/bookview"
	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/marketlock"
	"github.com/polystrat/strategy-core/internal/poscache"
	"github.com/polystrat/strategy-core/internal/riskcache"
	"github.com/polystrat/strategy-core/internal/strategy"
	"github.com/polystrat/strategy-core/internal/strategy/marketmaker"
)

type orderCall struct {
	token string
	side  execclient.Side
	price float64
	size  float64
}

type mergeCall struct {
	raw      int64
	marketID string
}

// testClient gives each test full control over raw positions, independent
// of fill accounting, so Scenario C/D/F can assert on exact call sequences.
type testClient struct {
	positions map[string]rawPos
	balance   float64

	orders       []orderCall
	cancelAsset  []string
	cancelMarket []string
	merges       []mergeCall
}

type rawPos struct {
	raw      int64
	avgPrice float64
}

func newTestClient() *testClient {
	return &testClient{positions: make(map[string]rawPos)}
}

func (c *testClient) setPosition(token string, raw int64, avgPrice float64) {
	c.positions[token] = rawPos{raw: raw, avgPrice: avgPrice}
}

func (c *testClient) CreateOrder(_ context.Context, token string, side execclient.Side, price, size float64, _ bool) error {
	c.orders = append(c.orders, orderCall{token: token, side: side, price: price, size: size})
	return nil
}

func (c *testClient) CancelAllAsset(_ context.Context, token string) error {
	c.cancelAsset = append(c.cancelAsset, token)
	return nil
}

func (c *testClient) CancelAllMarket(_ context.Context, marketID string) error {
	c.cancelMarket = append(c.cancelMarket, marketID)
	return nil
}

func (c *testClient) GetPosition(_ context.Context, token string) (int64, float64, float64, error) {
	p := c.positions[token]
	return p.raw, float64(p.raw) / 1e6, p.avgPrice, nil
}

func (c *testClient) GetUSDCBalance(_ context.Context) (float64, error) {
	return c.balance, nil
}

func (c *testClient) MergePositions(_ context.Context, raw int64, marketID string, _ bool) error {
	c.merges = append(c.merges, mergeCall{raw: raw, marketID: marketID})
	return nil
}

var _ execclient.Client = (*testClient)(nil)

func baseConfig(t *testing.T) strategy.MarketConfig {
	t.Helper()
	return strategy.MarketConfig{
		ConditionID: "m1",
		Question:    "Will it rain?",
		Token1:      "token1",
		Token2:      "token2",
		TickSize:    decimal.NewFromFloat(0.01),
		TradeSize:   decimal.NewFromFloat(20),
		MaxSize:     decimal.NewFromFloat(100),
		MinSize:     decimal.NewFromFloat(5),
		MaxSpread:   decimal.NewFromFloat(3),
		BestBid:     decimal.NewFromFloat(0.55),
		BestAsk:     decimal.NewFromFloat(0.56),
		ArbBuffer:   decimal.NewFromFloat(0.005),
		ParamType:   "default",
		ThreeHour:   1,
		NegRisk:     "FALSE",
	}
}

func baseParams() strategy.StrategyParams {
	return strategy.StrategyParams{
		StopLossThreshold:   -10,
		SpreadThreshold:     0.03,
		VolatilityThreshold: 5,
		TakeProfitThreshold: 10,
		SleepPeriodHours:    2,
	}
}

func newStrategy(t *testing.T, client execclient.Client, book bookview.Provider, cache poscache.Cache, risk *riskcache.Store) *marketmaker.Strategy {
	t.Helper()
	base := strategy.BaseStrategy{Locks: marketlock.NewRegistry()}
	return marketmaker.NewStrategy(client, book, cache, risk, base, zap.NewNop(), 10)
}

func TestExecute_ScenarioC_StopLossTriggersSellAndRiskOff(t *testing.T) {
	client := newTestClient()
	client.setPosition("token1", 20_000_000, 0.70)

	book := bookview.NewStaticProvider()
	book.Set("m1", "token1", &bookview.Snapshot{
		BestBid: 0.54, BestBidSize: 50, HasBid: true,
		BestAsk: 0.56, BestAskSize: 50, HasAsk: true,
		TopBid: 0.54, TopAsk: 0.56,
	})
	book.Set("m1", "token2", &bookview.Snapshot{}) // unusable, skipped

	cache := poscache.NewMapCache()
	cache.SetPosition("token1", execclient.Buy, 20, 0.70, "fill")

	risk := riskcache.NewStore(t.TempDir())

	s := newStrategy(t, client, book, cache, risk)
	err := s.Execute(context.Background(), "m1", baseConfig(t), baseParams())
	require.NoError(t, err)

	require.Len(t, client.orders, 1)
	assert.Equal(t, "token1", client.orders[0].token)
	assert.Equal(t, execclient.Sell, client.orders[0].side)
	assert.Equal(t, 0.54, client.orders[0].price)
	assert.Equal(t, 20.0, client.orders[0].size)

	require.Len(t, client.cancelMarket, 1)
	assert.Equal(t, "m1", client.cancelMarket[0])

	rec, err := risk.Load("m1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.CoolingDown(time.Now().UTC()))
}

func TestExecute_ScenarioD_CooldownSuppressesBuy(t *testing.T) {
	client := newTestClient()

	book := bookview.NewStaticProvider()
	book.Set("m1", "token1", &bookview.Snapshot{
		BestBid: 0.40, BestBidSize: 50, HasBid: true,
		BestAsk: 0.60, BestAskSize: 50, HasAsk: true,
		TopBid: 0.40, TopAsk: 0.60,
	})
	book.Set("m1", "token2", &bookview.Snapshot{})

	cache := poscache.NewMapCache() // no position, no avgPrice -> sellAmount 0, buyAmount > 0

	risk := riskcache.NewStore(t.TempDir())
	require.NoError(t, risk.Save("m1", riskcache.Record{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Question:  "Will it rain?",
		Msg:       "prior stop loss",
		SleepTill: time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	}))

	cfg := baseConfig(t)
	cfg.BestBid = decimal.NewFromFloat(0.40)

	s := newStrategy(t, client, book, cache, risk)
	err := s.Execute(context.Background(), "m1", cfg, baseParams())
	require.NoError(t, err)

	assert.Empty(t, client.orders)
	assert.Empty(t, client.cancelAsset)
}

func TestExecute_ScenarioF_MergesBeforeQuoting(t *testing.T) {
	client := newTestClient()
	client.setPosition("token1", 70_000_000, 0)
	client.setPosition("token2", 55_000_000, 0)

	book := bookview.NewStaticProvider()
	book.Set("m1", "token1", &bookview.Snapshot{})
	book.Set("m1", "token2", &bookview.Snapshot{})

	cache := poscache.NewMapCache()
	cache.SetPosition("token1", execclient.Buy, 70, 0, "fill")
	cache.SetPosition("token2", execclient.Buy, 55, 0, "fill")

	risk := riskcache.NewStore(t.TempDir())

	s := newStrategy(t, client, book, cache, risk)
	err := s.Execute(context.Background(), "m1", baseConfig(t), baseParams())
	require.NoError(t, err)

	require.Len(t, client.merges, 1)
	assert.EqualValues(t, 55_000_000, client.merges[0].raw)
	assert.Equal(t, "m1", client.merges[0].marketID)

	pos1 := cache.GetPosition("token1")
	pos2 := cache.GetPosition("token2")
	assert.Equal(t, 55.0, pos1.Size)
	assert.Equal(t, 0.0, pos1.AvgPrice)
	assert.Equal(t, 55.0, pos2.Size)
}
