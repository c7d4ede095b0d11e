package execclient

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// paperPosition tracks a simulated fill in both raw and scaled form.
type paperPosition struct {
	raw      int64
	avgPrice float64
}

// PaperClient simulates the exchange in memory: every BUY immediately
// "fills" at the requested price and size, SELL reduces the position. It
// never calls out to the network, making it the default for local runs and
// the base of the Dutch Arb tests' recording client. Simulated activity is
// logged through zap instead of being sent to a live sink.
type PaperClient struct {
	logger *zap.Logger

	mu        sync.Mutex
	balance   float64
	positions map[string]*paperPosition
}

// NewPaperClient returns a PaperClient seeded with startingBalance USDC.
func NewPaperClient(startingBalance float64, logger *zap.Logger) *PaperClient {
	return &PaperClient{
		logger:    logger,
		balance:   startingBalance,
		positions: make(map[string]*paperPosition),
	}
}

func (c *PaperClient) CreateOrder(_ context.Context, token string, side Side, price, size float64, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.positions[token]
	if !ok {
		pos = &paperPosition{}
		c.positions[token] = pos
	}

	switch side {
	case Buy:
		cost := price * size
		if cost > c.balance {
			return &OrderError{Code: ErrCodeNotEnoughBalance, Message: "paper balance exhausted", Token: token, Side: side}
		}

		newRaw := pos.raw + int64(size*1e6)
		if newRaw > 0 {
			pos.avgPrice = (pos.avgPrice*float64(pos.raw) + price*float64(newRaw-pos.raw)) / float64(newRaw)
		}
		pos.raw = newRaw
		c.balance -= cost
	case Sell:
		sellRaw := int64(size * 1e6)
		if sellRaw > pos.raw {
			sellRaw = pos.raw
		}
		pos.raw -= sellRaw
		c.balance += price * float64(sellRaw) / 1e6
	}

	c.logger.Info("paper-order-filled",
		zap.String("token", token),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Float64("size", size))

	return nil
}

func (c *PaperClient) CancelAllAsset(_ context.Context, token string) error {
	c.logger.Debug("paper-cancel-all-asset", zap.String("token", token))
	return nil
}

func (c *PaperClient) CancelAllMarket(_ context.Context, marketID string) error {
	c.logger.Debug("paper-cancel-all-market", zap.String("market_id", marketID))
	return nil
}

func (c *PaperClient) GetPosition(_ context.Context, token string) (raw int64, scaled float64, avgPrice float64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.positions[token]
	if !ok {
		return 0, 0, 0, nil
	}

	return pos.raw, float64(pos.raw) / 1e6, pos.avgPrice, nil
}

func (c *PaperClient) GetUSDCBalance(_ context.Context) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balance, nil
}

func (c *PaperClient) MergePositions(_ context.Context, raw int64, marketID string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("paper-merge-positions",
		zap.Int64("raw", raw),
		zap.String("market_id", marketID))

	c.balance += float64(raw) / 1e6

	return nil
}

var _ Client = (*PaperClient)(nil)
