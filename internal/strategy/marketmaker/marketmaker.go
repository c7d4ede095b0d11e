// Package marketmaker implements the continuous two-sided quoting strategy:
// merge-first inventory reconciliation, then per-outcome quote/cancel/
// re-quote with stop-loss cooldown and take-profit.
package marketmaker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/bookview"
	"github.com/polystrat/strategy-core/internal/execclient"
	"github.com/polystrat/strategy-core/internal/metrics"
	"github.com/polystrat/strategy-core/internal/ordergate"
	"github.com/polystrat/strategy-core/internal/poscache"
	"github.com/polystrat/strategy-core/internal/riskcache"
	"github.com/polystrat/strategy-core/internal/riskstore"
	"github.com/polystrat/strategy-core/internal/strategy"
)

// perOutcomeAbsoluteCap is spec.md's unexplained "position < 250" literal —
// preserved per the Open Questions decision to keep it as a named constant
// rather than inventing a config knob for it.
const perOutcomeAbsoluteCap = 250.0

const cycleSleep = 2 * time.Second

// outcome describes one of the two complementary tokens of a market row,
// bound to its counterpart for the reverse-position checks.
type outcome struct {
	name       string
	token      string
	otherToken string
	isToken2   bool
}

// Strategy is the market maker strategy.
type Strategy struct {
	strategy.BaseStrategy

	client execclient.Client
	book   bookview.Provider
	cache  poscache.Cache
	risk   *riskcache.Store
	gate   *ordergate.Gate
	logger *zap.Logger

	minMergeSize float64
	mirror       *riskstore.Store
}

// SetRiskMirror wires an optional Postgres mirror of every risk-off record
// this strategy writes. It is additive (riskcache's JSON file stays the
// source of truth strategies read from); a nil mirror, the zero value, is a
// no-op.
func (s *Strategy) SetRiskMirror(mirror *riskstore.Store) {
	s.mirror = mirror
}

// NewStrategy returns a market maker strategy. minMergeSize is the
// MIN_MERGE_SIZE constant (spec.md §6), injected rather than hardcoded so
// operators can tune it per deployment via pkg/config.
func NewStrategy(
	client execclient.Client,
	book bookview.Provider,
	cache poscache.Cache,
	risk *riskcache.Store,
	base strategy.BaseStrategy,
	logger *zap.Logger,
	minMergeSize float64,
) *Strategy {
	return &Strategy{
		BaseStrategy: base,
		client:       client,
		book:         book,
		cache:        cache,
		risk:         risk,
		gate:         ordergate.NewGate(client, logger),
		logger:       logger,
		minMergeSize: minMergeSize,
	}
}

// ID identifies this strategy in the manager's registry.
func (s *Strategy) ID() string { return "market_maker" }

// Execute runs one market-making cycle for marketID under the market's lock.
func (s *Strategy) Execute(ctx context.Context, marketID string, cfg strategy.MarketConfig, params strategy.StrategyParams) error {
	start := time.Now()
	var execErr error

	s.WithLock(marketID, func() {
		execErr = s.run(ctx, marketID, cfg, params)
	})

	metrics.MakerCycleDurationSeconds.Observe(time.Since(start).Seconds())
	return execErr
}

func (s *Strategy) run(ctx context.Context, marketID string, cfg strategy.MarketConfig, params strategy.StrategyParams) error {
	log := s.logger.With(zap.String("market_id", marketID), zap.String("question", cfg.Question))

	if err := s.reconcileMerge(ctx, marketID, cfg, log); err != nil {
		log.Warn("merge-reconciliation-failed", zap.Error(err))
	}

	outcomes := []outcome{
		{name: "token1", token: cfg.Token1, otherToken: cfg.Token2, isToken2: false},
		{name: "token2", token: cfg.Token2, otherToken: cfg.Token1, isToken2: true},
	}

	var firstErr error
	for _, o := range outcomes {
		if err := s.quoteOutcome(ctx, marketID, cfg, params, o, log); err != nil {
			log.Warn("quote-outcome-failed", zap.String("outcome", o.name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	_ = strategy.CtxSleep(ctx, cycleSleep)

	return firstErr
}

// reconcileMerge is spec.md §4.4.1: merge-first reconciliation before any
// quoting work.
func (s *Strategy) reconcileMerge(ctx context.Context, marketID string, cfg strategy.MarketConfig, log *zap.Logger) error {
	pos1 := s.cache.GetPosition(cfg.Token1)
	pos2 := s.cache.GetPosition(cfg.Token2)

	amountToMerge := pos1.Size
	if pos2.Size < amountToMerge {
		amountToMerge = pos2.Size
	}

	if amountToMerge <= s.minMergeSize {
		return nil
	}

	raw1, _, _, err := s.client.GetPosition(ctx, cfg.Token1)
	if err != nil {
		return fmt.Errorf("refresh position token1: %w", err)
	}
	raw2, _, _, err := s.client.GetPosition(ctx, cfg.Token2)
	if err != nil {
		return fmt.Errorf("refresh position token2: %w", err)
	}

	rawMerge := raw1
	if raw2 < rawMerge {
		rawMerge = raw2
	}
	scaledAmt := float64(rawMerge) / 1e6

	if scaledAmt <= s.minMergeSize {
		return nil
	}

	log.Info("merging-positions", zap.Int64("raw1", raw1), zap.Int64("raw2", raw2))

	if err := s.client.MergePositions(ctx, rawMerge, marketID, cfg.Bool()); err != nil {
		return fmt.Errorf("merge positions: %w", err)
	}

	// Annotate the cache as a zero-price SELL of the merged amount per
	// spec.md §9's Open Question — semantics beyond "cache-only annotation"
	// are out of scope; components outside this core interpret sourceTag.
	s.cache.SetPosition(cfg.Token1, execclient.Sell, scaledAmt, 0, "merge")
	s.cache.SetPosition(cfg.Token2, execclient.Sell, scaledAmt, 0, "merge")
	metrics.MakerMergesTotal.Inc()

	return nil
}

func (s *Strategy) quoteOutcome(
	ctx context.Context,
	marketID string,
	cfg strategy.MarketConfig,
	params strategy.StrategyParams,
	o outcome,
	log *zap.Logger,
) error {
	tickDigits := cfg.TickDigits()
	maxSpreadPercent, _ := cfg.MaxSpread.Float64()

	snap, err := bookview.FetchWithFallback(ctx, s.book, marketID, o.name, 100, 20, 0.1)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}
	if snap == nil {
		log.Debug("book-unavailable-for-outcome", zap.String("outcome", o.name))
		return nil
	}

	bestBid := roundNearest(snap.BestBid, tickDigits)
	bestAsk := roundNearest(snap.BestAsk, tickDigits)
	topBid := roundNearest(snap.TopBid, tickDigits)
	topAsk := roundNearest(snap.TopAsk, tickDigits)

	overallRatio := strategy.SafeDiv(snap.BidSumWithinBand, snap.AskSumWithinBand)

	pos := s.cache.GetPosition(o.token)
	position := roundDown(pos.Size, 2)
	avgPrice := pos.AvgPrice

	bidPrice, askPrice := quotePrices(bestBid, snap.BestBidSize, topBid, bestAsk, snap.BestAskSize, topAsk, avgPrice)
	bidPrice = roundNearest(bidPrice, tickDigits)
	askPrice = roundNearest(askPrice, tickDigits)

	midPrice := (topBid + topAsk) / 2

	otherPosition := s.cache.GetPosition(o.otherToken).Size

	buyAmount, sellAmount := quoteSizes(position, cfg, otherPosition)

	orders := s.cache.GetOrder(o.token)
	negRisk := cfg.Bool()

	if sellAmount > 0 {
		if avgPrice == 0 {
			log.Debug("avg-price-zero-skipping-outcome", zap.String("outcome", o.name))
			return nil
		}

		triggered, err := s.riskOff(ctx, marketID, cfg, params, o, sellAmount, avgPrice, tickDigits, negRisk, log)
		if err != nil {
			return err
		}
		if triggered {
			return nil
		}
	}

	maxSize, _ := cfg.EffectiveMaxSize().Float64()
	minSize, _ := cfg.MinSize.Float64()

	if position < maxSize && position < perOutcomeAbsoluteCap && buyAmount > 0 && buyAmount >= minSize {
		return s.quoteBuy(ctx, cfg, params, o, position, buyAmount, bidPrice, bestBid, midPrice, maxSpreadPercent, overallRatio, otherPosition, orders, tickDigits, negRisk, marketID, log)
	} else if sellAmount > 0 {
		return s.quoteTakeProfit(ctx, params, o, position, sellAmount, askPrice, avgPrice, midPrice, maxSpreadPercent, orders, tickDigits, negRisk, log)
	}

	return nil
}

// riskOff evaluates and, if warranted, executes spec.md §4.4.2(a): stop-loss
// / risk-off. Returns true if it fired (callers skip the rest of the
// outcome's cycle).
func (s *Strategy) riskOff(
	ctx context.Context,
	marketID string,
	cfg strategy.MarketConfig,
	params strategy.StrategyParams,
	o outcome,
	sellAmount, avgPrice float64,
	tickDigits int32,
	negRisk bool,
	log *zap.Logger,
) (bool, error) {
	nDeets, err := bookview.FetchWithFallback(ctx, s.book, marketID, o.name, 100, 20, 0.1)
	if err != nil {
		return false, fmt.Errorf("fetch risk-off book: %w", err)
	}
	if nDeets == nil {
		return false, nil
	}

	mid := roundUp((nDeets.BestBid+nDeets.BestAsk)/2, tickDigits)
	spread := roundNearest(nDeets.BestAsk-nDeets.BestBid, 2)
	pnl := (mid - avgPrice) / avgPrice * 100

	triggered := (pnl < params.StopLossThreshold && spread <= params.SpreadThreshold) ||
		cfg.ThreeHour > params.VolatilityThreshold
	if !triggered {
		return false, nil
	}

	msg := fmt.Sprintf("selling %.4f because spread is %.4f and pnl is %.2f and 3 hour volatility is %.2f",
		sellAmount, spread, pnl, cfg.ThreeHour)
	log.Info("stop-loss-triggered", zap.String("outcome", o.name), zap.String("reason", msg))

	if err := s.client.CreateOrder(ctx, o.token, execclient.Sell, nDeets.BestBid, sellAmount, negRisk); err != nil {
		return false, fmt.Errorf("stop-loss sell: %w", err)
	}
	if err := s.client.CancelAllMarket(ctx, marketID); err != nil {
		return false, fmt.Errorf("cancel all market after stop-loss: %w", err)
	}

	now := time.Now().UTC()
	rec := riskcache.Record{
		Time:      now.Format(time.RFC3339),
		Question:  cfg.Question,
		Msg:       msg,
		SleepTill: now.Add(time.Duration(params.SleepPeriodHours * float64(time.Hour))).Format(time.RFC3339),
	}
	if err := s.risk.Save(marketID, rec); err != nil {
		return true, fmt.Errorf("save risk-off record: %w", err)
	}
	metrics.RiskOffEventsTotal.Inc()

	if s.mirror != nil {
		if err := s.mirror.RecordRiskOff(ctx, marketID, rec); err != nil {
			log.Warn("risk-off-mirror-failed", zap.Error(err))
		}
	}

	return true, nil
}

func (s *Strategy) quoteBuy(
	ctx context.Context,
	cfg strategy.MarketConfig,
	params strategy.StrategyParams,
	o outcome,
	position, buyAmount, bidPrice, bestBid, midPrice, maxSpreadPercent, overallRatio, otherPosition float64,
	orders poscache.OpenOrders,
	tickDigits int32,
	negRisk bool,
	marketID string,
	log *zap.Logger,
) error {
	sheetValue, _ := cfg.BestBid.Float64()
	if o.isToken2 {
		bestAsk, _ := cfg.BestAsk.Float64()
		sheetValue = 1 - bestAsk
	}
	sheetValue = roundNearest(sheetValue, tickDigits)
	priceChange := abs(bidPrice - sheetValue)

	rec, err := s.risk.Load(marketID)
	if err != nil {
		return fmt.Errorf("load risk-off record: %w", err)
	}
	if rec.CoolingDown(time.Now().UTC()) {
		log.Debug("buy-suppressed-by-cooldown", zap.String("outcome", o.name), zap.String("sleep_till", rec.SleepTill))
		return nil
	}

	if cfg.ThreeHour > params.VolatilityThreshold || priceChange >= 0.05 {
		log.Debug("buy-suppressed-by-volatility-or-drift", zap.String("outcome", o.name))
		return s.client.CancelAllAsset(ctx, o.token)
	}

	minSize, _ := cfg.MinSize.Float64()
	if otherPosition > minSize {
		log.Debug("buy-suppressed-by-reverse-position", zap.String("outcome", o.name))
		if orders.Buy.Size > s.minMergeSize {
			return s.client.CancelAllAsset(ctx, o.token)
		}
		return nil
	}

	if overallRatio < 0 {
		log.Debug("buy-suppressed-by-negative-ratio", zap.String("outcome", o.name), zap.Float64("overall_ratio", overallRatio))
		return s.client.CancelAllAsset(ctx, o.token)
	}

	maxSize, _ := cfg.EffectiveMaxSize().Float64()

	// Matches original_source/strategies/market_maker.py's literal
	// best_bid > orders['buy']['price'] check: the raw top-of-book best bid,
	// not the strategy's computed quote price (they usually agree, but
	// quotePrices can fall back to topBid when bestBidSize <= 0).
	sendBuy := bestBid > orders.Buy.Price ||
		position+orders.Buy.Size < 0.95*maxSize ||
		orders.Buy.Size > 1.01*buyAmount

	if !sendBuy {
		return nil
	}

	restingSameSide := restingFromOrderSide(orders.Buy)
	restingOther := restingFromOrderSide(orders.Sell)
	decision, err := s.gate.Reconcile(ctx, o.token, execclient.Buy, ordergate.Target{Price: bidPrice, Size: buyAmount}, restingSameSide, restingOther, midPrice, maxSpreadPercent, tickDigits, negRisk)
	if err != nil {
		return fmt.Errorf("order gate buy: %w", err)
	}
	recordGateDecision("buy", decision)

	return nil
}

func (s *Strategy) quoteTakeProfit(
	ctx context.Context,
	params strategy.StrategyParams,
	o outcome,
	position, sellAmount, askPrice, avgPrice, midPrice, maxSpreadPercent float64,
	orders poscache.OpenOrders,
	tickDigits int32,
	negRisk bool,
	log *zap.Logger,
) error {
	tpPrice := roundUp(avgPrice*(1+params.TakeProfitThreshold/100), tickDigits)
	orderPrice := askPrice
	if tpPrice > askPrice {
		orderPrice = tpPrice
	}
	orderPrice = roundUp(orderPrice, tickDigits)

	diff := strategy.SafeDiv(abs(orders.Sell.Price-tpPrice), tpPrice) * 100

	sendSell := diff > 2 || orders.Sell.Size < 0.97*position
	if !sendSell {
		return nil
	}

	log.Debug("take-profit-sell", zap.String("outcome", o.name), zap.Float64("tp_price", tpPrice))

	restingSameSide := restingFromOrderSide(orders.Sell)
	restingOther := restingFromOrderSide(orders.Buy)
	decision, err := s.gate.Reconcile(ctx, o.token, execclient.Sell, ordergate.Target{Price: orderPrice, Size: sellAmount}, restingSameSide, restingOther, midPrice, maxSpreadPercent, tickDigits, negRisk)
	if err != nil {
		return fmt.Errorf("order gate sell: %w", err)
	}
	recordGateDecision("sell", decision)

	return nil
}

func recordGateDecision(side string, decision ordergate.Decision) {
	switch decision {
	case ordergate.DecisionCancelAndPlace:
		metrics.MakerQuotesPlacedTotal.WithLabelValues(side).Inc()
	case ordergate.DecisionSkip:
		metrics.MakerQuotesSkippedTotal.WithLabelValues(side).Inc()
	}
}

// restingFromOrderSide adapts poscache's cache-shaped OrderSide (no Exists
// field, zero value means "nothing resting") to ordergate.RestingOrder,
// which needs Exists as an explicit field to disambiguate a legitimately
// zero price/size from no resting order at all.
func restingFromOrderSide(o poscache.OrderSide) ordergate.RestingOrder {
	return ordergate.RestingOrder{
		Price:  o.Price,
		Size:   o.Size,
		Exists: o.Size > 0 || o.Price > 0,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ strategy.Strategy = (*Strategy)(nil)
