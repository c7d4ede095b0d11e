// Package dutcharb implements the two-leg Dutch Arbitrage strategy: buy both
// outcome tokens of a market when their combined asks sit below par, verify
// each leg filled, and unwind the first leg if the second cannot be
// completed profitably.
package dutcharb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/bookview"
	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/metrics"
	"github.com/polystrat/strategy-core/internal/strategy"
)

const legSettleWait = 500 * time.Millisecond

// Strategy is the Dutch Arb strategy. It never retries a leg: a second leg
// that cannot be placed profitably or fills nothing is handled by unwinding
// the first, not by re-attempting; a partially filled second leg is merged
// as far as both positions allow.
type Strategy struct {
	strategy.BaseStrategy

	client execclient.Client
	book   bookview.Provider
	logger *zap.Logger
}

// NewStrategy returns a Dutch Arb strategy backed by client and book.
func NewStrategy(client execclient.Client, book bookview.Provider, base strategy.BaseStrategy, logger *zap.Logger) *Strategy {
	return &Strategy{BaseStrategy: base, client: client, book: book, logger: logger}
}

// ID identifies this strategy in the manager's registry.
func (s *Strategy) ID() string { return "dutch_arb" }

type leg struct {
	ask     float64
	askSize float64
	bid     float64
	bidSize float64
	hasBid  bool
}

func topOfBookLeg(ctx context.Context, book bookview.Provider, marketID, outcomeName string, minSizeHint float64) (*leg, error) {
	hint := int(minSizeHint)
	if hint <= 0 {
		hint = 1
	}

	snap, err := bookview.TopOfBook(ctx, book, marketID, outcomeName, hint, 0.05)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	return &leg{
		ask:     snap.BestAsk,
		askSize: snap.BestAskSize,
		bid:     snap.BestBid,
		bidSize: snap.BestBidSize,
		hasBid:  snap.HasBid,
	}, nil
}

// Execute runs one arb attempt for marketID under the market's lock.
func (s *Strategy) Execute(ctx context.Context, marketID string, cfg strategy.MarketConfig, _ strategy.StrategyParams) error {
	start := time.Now()
	var execErr error

	s.WithLock(marketID, func() {
		execErr = s.run(ctx, marketID, cfg)
	})

	metrics.ArbCycleDurationSeconds.Observe(time.Since(start).Seconds())
	return execErr
}

func (s *Strategy) run(ctx context.Context, marketID string, cfg strategy.MarketConfig) error {
	attemptID := uuid.NewString()
	log := s.logger.With(zap.String("market_id", marketID), zap.String("attempt_id", attemptID))

	buffer, _ := cfg.ArbBuffer.Float64()
	minSize, _ := cfg.MinSize.Float64()
	maxSize, _ := cfg.EffectiveMaxSize().Float64()
	negRisk := cfg.Bool()

	firstLeg, err := topOfBookLeg(ctx, s.book, marketID, "token1", minSize)
	if err != nil {
		return fmt.Errorf("fetch token1 book: %w", err)
	}
	secondLeg, err := topOfBookLeg(ctx, s.book, marketID, "token2", minSize)
	if err != nil {
		return fmt.Errorf("fetch token2 book: %w", err)
	}
	if firstLeg == nil || secondLeg == nil {
		return strategy.ErrBookUnavailable
	}

	askSum := firstLeg.ask + secondLeg.ask + buffer
	if askSum >= 1 {
		return nil
	}

	available := min(firstLeg.askSize, secondLeg.askSize)
	if available <= 0 {
		return strategy.ErrInsufficientLiquidity
	}

	bankroll, err := s.client.GetUSDCBalance(ctx)
	if err != nil {
		return fmt.Errorf("usdc balance: %w", err)
	}

	denom := firstLeg.ask + secondLeg.ask
	if denom < 1e-6 {
		denom = 1e-6
	}
	maxByBalance := bankroll / denom

	target := available
	if maxSize > 0 {
		target = min(target, maxSize)
	}
	target = min(target, maxByBalance)

	if target < minSize || target <= 0 {
		return strategy.ErrInsufficientLiquidity
	}

	_, preScaled1, _, err := s.client.GetPosition(ctx, cfg.Token1)
	if err != nil {
		return fmt.Errorf("pre-trade position token1: %w", err)
	}
	_, preScaled2, _, err := s.client.GetPosition(ctx, cfg.Token2)
	if err != nil {
		return fmt.Errorf("pre-trade position token2: %w", err)
	}

	metrics.ArbLegsAttemptedTotal.WithLabelValues("token1").Inc()
	if err := s.client.CreateOrder(ctx, cfg.Token1, execclient.Buy, firstLeg.ask, target, negRisk); err != nil {
		return fmt.Errorf("place leg1 buy: %w", err)
	}

	if err := strategy.CtxSleep(ctx, legSettleWait); err != nil {
		return err
	}

	postRaw1, postScaled1, _, err := s.client.GetPosition(ctx, cfg.Token1)
	if err != nil {
		return fmt.Errorf("post-trade position token1: %w", err)
	}

	filledLeg1 := postScaled1 - preScaled1
	if filledLeg1 < 0 {
		filledLeg1 = 0
	}
	if filledLeg1 <= 0 {
		log.Info("dutch-arb-leg1-unfilled")
		return nil
	}
	metrics.ArbLegsFilledTotal.WithLabelValues("token1").Inc()

	refreshedSecond, err := topOfBookLeg(ctx, s.book, marketID, "token2", minSize)
	if err != nil {
		return fmt.Errorf("refresh token2 book: %w", err)
	}
	if refreshedSecond == nil || refreshedSecond.ask+firstLeg.ask+buffer >= 1 {
		metrics.ArbUnwindsTotal.Inc()
		return s.unwind(ctx, cfg.Token1, marketID, "token1", filledLeg1, negRisk, log)
	}

	sizeLeg2 := min(filledLeg1, refreshedSecond.askSize, maxByBalance)

	metrics.ArbLegsAttemptedTotal.WithLabelValues("token2").Inc()
	if err := s.client.CreateOrder(ctx, cfg.Token2, execclient.Buy, refreshedSecond.ask, sizeLeg2, negRisk); err != nil {
		return fmt.Errorf("place leg2 buy: %w", err)
	}

	if err := strategy.CtxSleep(ctx, legSettleWait); err != nil {
		return err
	}

	postRaw2, postScaled2, _, err := s.client.GetPosition(ctx, cfg.Token2)
	if err != nil {
		return fmt.Errorf("post-trade position token2: %w", err)
	}

	filledLeg2 := postScaled2 - preScaled2
	if filledLeg2 < 0 {
		filledLeg2 = 0
	}
	if filledLeg2 <= 0 {
		metrics.ArbUnwindsTotal.Inc()
		return s.unwind(ctx, cfg.Token1, marketID, "token1", filledLeg1, negRisk, log)
	}
	metrics.ArbLegsFilledTotal.WithLabelValues("token2").Inc()

	refreshedRaw1, _, _, err := s.client.GetPosition(ctx, cfg.Token1)
	if err != nil {
		refreshedRaw1 = postRaw1
	}
	refreshedRaw2, _, _, err := s.client.GetPosition(ctx, cfg.Token2)
	if err != nil {
		refreshedRaw2 = postRaw2
	}

	mergeAmount := refreshedRaw1
	if refreshedRaw2 < mergeAmount {
		mergeAmount = refreshedRaw2
	}

	if mergeAmount > 0 {
		if err := s.client.MergePositions(ctx, mergeAmount, marketID, negRisk); err != nil {
			return fmt.Errorf("merge positions: %w", err)
		}
		metrics.ArbMergesTotal.Inc()
	}

	return nil
}

// unwind attempts to sell an already-filled leg to limit exposure. It makes
// no further retries: if there is no bid, the position remains.
func (s *Strategy) unwind(ctx context.Context, token, marketID, outcomeName string, size float64, negRisk bool, log *zap.Logger) error {
	snap, err := topOfBookLeg(ctx, s.book, marketID, outcomeName, 1)
	if err != nil {
		return fmt.Errorf("fetch unwind book: %w", err)
	}
	if snap == nil || !snap.hasBid {
		log.Warn("dutch-arb-unwind-no-bid", zap.String("token", token))
		return nil
	}

	sellSize := min(size, snap.bidSize)
	if sellSize <= 0 {
		return nil
	}

	if err := s.client.CreateOrder(ctx, token, execclient.Sell, snap.bid, sellSize, negRisk); err != nil {
		return fmt.Errorf("unwind sell: %w", err)
	}

	return nil
}

var _ strategy.Strategy = (*Strategy)(nil)
