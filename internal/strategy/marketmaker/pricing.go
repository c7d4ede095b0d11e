package marketmaker

import "github.com/polystrat/strategy-core/internal/strategy"

// quotePrices is the external "price strategy" spec.md §4.4.2 step 5 defers
// to: given the current top-of-book and our average entry price, pick the
// bid/ask we want resting. Neither original_source/strategies/market_maker.py
// nor trading.py factor this out into its own function, so there is no
// collaborator behavior to port; this is a simple closed-form rendering that
// joins the best available level on each side and never quotes an ask below
// our own cost basis.
func quotePrices(bestBid, bestBidSize, topBid, bestAsk, bestAskSize, topAsk, avgPrice float64) (bidPrice, askPrice float64) {
	bidPrice = bestBid
	if bestBidSize <= 0 {
		bidPrice = topBid
	}

	askPrice = bestAsk
	if bestAskSize <= 0 {
		askPrice = topAsk
	}

	if avgPrice > 0 && askPrice < avgPrice {
		askPrice = avgPrice
	}

	return bidPrice, askPrice
}

// quoteSizes is the external "size strategy" step 8 defers to: how much to
// buy or sell given our current position and the configured bounds.
// otherPosition is accepted to match the inputs spec.md names (position, bid
// price, row, other_position) but is not used to shape these two amounts —
// the reverse-position guard that otherPosition feeds is already applied
// independently in the buy branch (§4.4.2(b)), so folding it in here would
// double-apply the same check.
func quoteSizes(position float64, cfg strategy.MarketConfig, _ float64) (buyAmount, sellAmount float64) {
	maxSize, _ := cfg.EffectiveMaxSize().Float64()
	tradeSize, _ := cfg.TradeSize.Float64()

	headroom := maxSize - position
	buyAmount = tradeSize
	if headroom < buyAmount {
		buyAmount = headroom
	}
	if buyAmount < 0 {
		buyAmount = 0
	}

	sellAmount = position
	if sellAmount < 0 {
		sellAmount = 0
	}

	return buyAmount, sellAmount
}
