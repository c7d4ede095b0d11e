// Package bookview turns a raw order-book snapshot into the normalized
// top-of-book record the strategies reason about: best/second-best bid and
// ask, their sizes, and liquidity aggregated within a price band around mid.
package bookview

import "context"

// Snapshot is the normalized top-of-book record for one outcome of one
// market. Any field may be the zero value when the underlying book did not
// have enough depth to populate it; callers treat a missing required field
// as "book unavailable", not as a literal zero price.
type Snapshot struct {
	BestBid       float64
	BestBidSize   float64
	SecondBid     float64
	SecondBidSize float64
	TopBid        float64 // best bid not resting from our own orders

	BestAsk       float64
	BestAskSize   float64
	SecondAsk     float64
	SecondAskSize float64
	TopAsk        float64

	BidSumWithinBand float64
	AskSumWithinBand float64

	// HasBid/HasAsk record whether the provider actually returned a bid/ask
	// side, independent of whether the numeric value happens to be zero.
	HasBid bool
	HasAsk bool
}

// Usable reports whether the snapshot has enough information to trade
// against: both an ask and a positive ask size. Matches spec.md's "empty/None
// sentinel if no ask or ask-size <= 0".
func (s *Snapshot) Usable() bool {
	return s != nil && s.HasAsk && s.BestAskSize > 0
}

// Provider is the external order-book collaborator this package consumes. A
// production implementation mirrors the websocket-fed in-memory book kept by
// a live market-data process; tests and the paper execution path use
// StaticProvider instead.
type Provider interface {
	BestBidAskDeets(ctx context.Context, marketID, outcomeName string, minSizeHint int, bandPercent float64) (*Snapshot, error)
}

// TopOfBook returns the normalized snapshot for one outcome of one market, or
// nil if the provider has no usable book for it.
func TopOfBook(
	ctx context.Context,
	provider Provider,
	marketID, outcomeName string,
	minSizeHint int,
	bandPercent float64,
) (*Snapshot, error) {
	snap, err := provider.BestBidAskDeets(ctx, marketID, outcomeName, minSizeHint, bandPercent)
	if err != nil {
		return nil, err
	}

	if !snap.Usable() {
		return nil, nil
	}

	return snap, nil
}

// FetchWithFallback calls TopOfBook with hint, and — if it found no usable
// book or any of the best fields came back absent — retries once with
// fallbackHint. The Market Maker calls this with hint 100 then 20; Dutch Arb
// calls TopOfBook directly with hint min_size (or 1) and does not fall back,
// so it is exposed as a small standalone helper rather than baked into
// TopOfBook itself.
func FetchWithFallback(
	ctx context.Context,
	provider Provider,
	marketID, outcomeName string,
	hint, fallbackHint int,
	bandPercent float64,
) (*Snapshot, error) {
	snap, err := TopOfBook(ctx, provider, marketID, outcomeName, hint, bandPercent)
	if err != nil {
		return nil, err
	}

	if snap == nil || !snap.HasBid || !snap.HasAsk {
		snap, err = TopOfBook(ctx, provider, marketID, outcomeName, fallbackHint, bandPercent)
		if err != nil {
			return nil, err
		}
	}

	return snap, nil
}
