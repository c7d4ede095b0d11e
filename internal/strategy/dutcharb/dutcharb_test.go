package dutcharb_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/bookview"
	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/marketlock"
	"github.com/polystrat/strategy-core/internal/strategy"
	"github.com/polystrat/strategy-core/internal/strategy/dutcharb"
)

// recordingClient wraps a PaperClient and records every CreateOrder and
// MergePositions call for assertion, without reimplementing fill logic.
type recordingClient struct {
	*execclient.PaperClient
	orders []orderCall
	merges []mergeCall
}

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

func (c *recordingClient) CreateOrder(ctx context.Context, token string, side execclient.Side, price, size float64, negRisk bool) error {
	c.orders = append(c.orders, orderCall{token: token, side: side, price: price, size: size})
	return c.PaperClient.CreateOrder(ctx, token, side, price, size, negRisk)
}

func (c *recordingClient) MergePositions(ctx context.Context, raw int64, marketID string, negRisk bool) error {
	c.merges = append(c.merges, mergeCall{raw: raw, marketID: marketID})
	return c.PaperClient.MergePositions(ctx, raw, marketID, negRisk)
}

// sequencedProvider returns a different snapshot for a given
// (marketID,outcomeName) pair after the first call, so tests can simulate
// the book moving between the first and second leg.
type sequencedProvider struct {
	first, after map[string]*bookview.Snapshot
	calls        map[string]int
}

func newSequencedProvider() *sequencedProvider {
	return &sequencedProvider{
		first: make(map[string]*bookview.Snapshot),
		after: make(map[string]*bookview.Snapshot),
		calls: make(map[string]int),
	}
}

func (p *sequencedProvider) setFirst(marketID, outcomeName string, snap *bookview.Snapshot) {
	p.first[marketID+"|"+outcomeName] = snap
}

func (p *sequencedProvider) setAfter(marketID, outcomeName string, snap *bookview.Snapshot) {
	p.after[marketID+"|"+outcomeName] = snap
}

func (p *sequencedProvider) BestBidAskDeets(_ context.Context, marketID, outcomeName string, _ int, _ float64) (*bookview.Snapshot, error) {
	key := marketID + "|" + outcomeName
	p.calls[key]++

	if p.calls[key] > 1 {
		if snap, ok := p.after[key]; ok {
			return snap, nil
		}
	}

	return p.first[key], nil
}

func baseConfig() strategy.MarketConfig {
	return strategy.MarketConfig{
		Token1:    "token1",
		Token2:    "token2",
		ArbBuffer: decimal.NewFromFloat(0.005),
		MinSize:   decimal.NewFromFloat(10),
		MaxSize:   decimal.NewFromFloat(50),
		TradeSize: decimal.NewFromFloat(50),
		NegRisk:   "FALSE",
	}
}

func TestExecute_ScenarioA_ArbitrageSuccess(t *testing.T) {
	provider := newSequencedProvider()
	provider.setFirst("m1", "token1", &bookview.Snapshot{BestAsk: 0.48, BestAskSize: 100, HasAsk: true})
	provider.setFirst("m1", "token2", &bookview.Snapshot{BestAsk: 0.50, BestAskSize: 80, HasAsk: true})
	provider.setAfter("m1", "token2", &bookview.Snapshot{BestAsk: 0.50, BestAskSize: 80, HasAsk: true})

	client := &recordingClient{PaperClient: execclient.NewPaperClient(1000, zap.NewNop())}
	s := dutcharb.NewStrategy(client, provider, strategy.BaseStrategy{Locks: marketlock.NewRegistry()}, zap.NewNop())

	err := s.Execute(context.Background(), "m1", baseConfig(), strategy.StrategyParams{})
	require.NoError(t, err)

	require.Len(t, client.orders, 2)
	assert.Equal(t, orderCall{token: "token1", side: execclient.Buy, price: 0.48, size: 50}, client.orders[0])
	assert.Equal(t, orderCall{token: "token2", side: execclient.Buy, price: 0.50, size: 50}, client.orders[1])

	require.Len(t, client.merges, 1)
	assert.Equal(t, "m1", client.merges[0].marketID)
	assert.EqualValues(t, 50_000_000, client.merges[0].raw)
}

func TestExecute_ScenarioB_SecondLegMovesAwayUnwinds(t *testing.T) {
	provider := newSequencedProvider()
	provider.setFirst("m1", "token1", &bookview.Snapshot{BestAsk: 0.48, BestAskSize: 100, HasAsk: true, BestBid: 0.47, BestBidSize: 100, HasBid: true})
	provider.setFirst("m1", "token2", &bookview.Snapshot{BestAsk: 0.50, BestAskSize: 80, HasAsk: true})
	// after the first leg fills, token2's ask moves to 0.52 - combined with
	// token1's 0.48 + buffer 0.005 that's >= 1, so the second leg is skipped.
	provider.setAfter("m1", "token2", &bookview.Snapshot{BestAsk: 0.52, BestAskSize: 80, HasAsk: true})

	client := &recordingClient{PaperClient: execclient.NewPaperClient(1000, zap.NewNop())}
	s := dutcharb.NewStrategy(client, provider, strategy.BaseStrategy{Locks: marketlock.NewRegistry()}, zap.NewNop())

	err := s.Execute(context.Background(), "m1", baseConfig(), strategy.StrategyParams{})
	require.NoError(t, err)

	require.Len(t, client.orders, 2)
	assert.Equal(t, orderCall{token: "token1", side: execclient.Buy, price: 0.48, size: 50}, client.orders[0])
	assert.Equal(t, execclient.Sell, client.orders[1].side)
	assert.Equal(t, "token1", client.orders[1].token)
	assert.Equal(t, 0.47, client.orders[1].price)

	assert.Empty(t, client.merges)
}

func TestExecute_NoArbWhenAskSumAtOrAbovePar(t *testing.T) {
	provider := newSequencedProvider()
	provider.setFirst("m1", "token1", &bookview.Snapshot{BestAsk: 0.55, BestAskSize: 100, HasAsk: true})
	provider.setFirst("m1", "token2", &bookview.Snapshot{BestAsk: 0.50, BestAskSize: 80, HasAsk: true})

	client := &recordingClient{PaperClient: execclient.NewPaperClient(1000, zap.NewNop())}
	s := dutcharb.NewStrategy(client, provider, strategy.BaseStrategy{Locks: marketlock.NewRegistry()}, zap.NewNop())

	err := s.Execute(context.Background(), "m1", baseConfig(), strategy.StrategyParams{})
	require.NoError(t, err)
	assert.Empty(t, client.orders)
}

func TestExecute_ExitsWhenBookUnavailable(t *testing.T) {
	provider := newSequencedProvider()
	// Neither outcome set -> provider returns nil -> not usable.

	client := &recordingClient{PaperClient: execclient.NewPaperClient(1000, zap.NewNop())}
	s := dutcharb.NewStrategy(client, provider, strategy.BaseStrategy{Locks: marketlock.NewRegistry()}, zap.NewNop())

	err := s.Execute(context.Background(), "m1", baseConfig(), strategy.StrategyParams{})
	assert.ErrorIs(t, err, strategy.ErrBookUnavailable)
	assert.Empty(t, client.orders)
}
