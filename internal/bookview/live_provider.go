package bookview

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// level is one price/size pair of an order-book side.
type level struct {
	price float64
	size  float64
}

// book holds one outcome token's resting liquidity, protected by its own
// RWMutex so reads (BestBidAskDeets) never block on each other.
type book struct {
	mu        sync.RWMutex
	bids      []level // sorted descending by price
	asks      []level // sorted ascending by price
	updatedAt time.Time
}

func (b *book) applySnapshot(bids, asks []level) {
	sort.Slice(bids, func(i, j int) bool { return bids[i].price > bids[j].price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].price < asks[j].price })

	b.mu.Lock()
	b.bids = bids
	b.asks = asks
	b.updatedAt = time.Now()
	b.mu.Unlock()
}

// wireEvent mirrors the subset of the Polymarket market-channel book message
// this seam actually consumes: full snapshots keyed by asset id.
type wireEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// LiveProvider is a thin websocket-fed Provider: it keeps one RWMutex-guarded
// book per outcome token id and answers BestBidAskDeets from the in-memory
// snapshot. Discovery and subscription management are out of this core's
// scope (spec.md Non-goals), so the caller tells LiveProvider which token
// backs which (marketID, outcomeName) pair via Register before Dial starts
// delivering updates.
type LiveProvider struct {
	url    string
	logger *zap.Logger

	dialer     *websocket.Dialer
	httpHeader http.Header

	mu      sync.RWMutex
	tokens  map[string]string          // "marketID|outcomeName" -> token id
	books   map[string]*book           // token id -> book
	bandPct map[string]float64         // token id -> band; no code path writes to it
	conn    *websocket.Conn
}

// NewLiveProvider constructs a LiveProvider that will dial url on Dial.
func NewLiveProvider(url string, logger *zap.Logger) *LiveProvider {
	return &LiveProvider{
		url:     url,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		tokens:  make(map[string]string),
		books:   make(map[string]*book),
		bandPct: make(map[string]float64),
	}
}

// Register tells the provider which token id backs a market's outcome, so
// that subsequent wire events keyed by token id resolve to the right book.
func (p *LiveProvider) Register(marketID, outcomeName, tokenID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokens[marketID+"|"+outcomeName] = tokenID
	if _, ok := p.books[tokenID]; !ok {
		p.books[tokenID] = &book{}
	}
}

// Dial opens the websocket connection and starts the read loop in a
// goroutine. It returns once the initial handshake succeeds; the read loop
// runs until ctx is cancelled or the connection drops.
func (p *LiveProvider) Dial(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, p.httpHeader)
	if err != nil {
		return fmt.Errorf("dial book feed: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	go p.readLoop(ctx, conn)

	return nil
}

func (p *LiveProvider) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			p.logger.Warn("bookview-read-error", zap.Error(err))
			return
		}

		var events []wireEvent
		if err := json.Unmarshal(data, &events); err != nil {
			// Some frames are single objects rather than arrays.
			var single wireEvent
			if err2 := json.Unmarshal(data, &single); err2 != nil {
				p.logger.Warn("bookview-decode-error", zap.Error(err))
				continue
			}
			events = []wireEvent{single}
		}

		for _, ev := range events {
			p.applyEvent(ev)
		}
	}
}

func (p *LiveProvider) applyEvent(ev wireEvent) {
	p.mu.RLock()
	b, ok := p.books[ev.AssetID]
	p.mu.RUnlock()
	if !ok {
		return
	}

	bids := make([]level, 0, len(ev.Bids))
	for _, w := range ev.Bids {
		lv, ok := parseLevel(w)
		if ok {
			bids = append(bids, lv)
		}
	}

	asks := make([]level, 0, len(ev.Asks))
	for _, w := range ev.Asks {
		lv, ok := parseLevel(w)
		if ok {
			asks = append(asks, lv)
		}
	}

	b.applySnapshot(bids, asks)
}

func parseLevel(w wireLevel) (level, bool) {
	price, err := strconv.ParseFloat(w.Price, 64)
	if err != nil {
		return level{}, false
	}

	size, err := strconv.ParseFloat(w.Size, 64)
	if err != nil {
		return level{}, false
	}

	return level{price: price, size: size}, true
}

// BestBidAskDeets implements Provider against the live in-memory book.
func (p *LiveProvider) BestBidAskDeets(
	_ context.Context,
	marketID, outcomeName string,
	_ int,
	bandPercent float64,
) (*Snapshot, error) {
	p.mu.RLock()
	tokenID, ok := p.tokens[marketID+"|"+outcomeName]
	var b *book
	if ok {
		b = p.books[tokenID]
	}
	p.mu.RUnlock()

	if !ok || b == nil {
		return &Snapshot{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := &Snapshot{}
	if len(b.bids) > 0 {
		snap.HasBid = true
		snap.BestBid = b.bids[0].price
		snap.BestBidSize = b.bids[0].size
		snap.TopBid = b.bids[0].price
	}
	if len(b.bids) > 1 {
		snap.SecondBid = b.bids[1].price
		snap.SecondBidSize = b.bids[1].size
	}
	if len(b.asks) > 0 {
		snap.HasAsk = true
		snap.BestAsk = b.asks[0].price
		snap.BestAskSize = b.asks[0].size
		snap.TopAsk = b.asks[0].price
	}
	if len(b.asks) > 1 {
		snap.SecondAsk = b.asks[1].price
		snap.SecondAskSize = b.asks[1].size
	}

	if snap.HasBid && snap.HasAsk {
		mid := (snap.BestBid + snap.BestAsk) / 2
		lo, hi := mid*(1-bandPercent), mid*(1+bandPercent)
		for _, lv := range b.bids {
			if lv.price >= lo && lv.price <= hi {
				snap.BidSumWithinBand += lv.size
			}
		}
		for _, lv := range b.asks {
			if lv.price >= lo && lv.price <= hi {
				snap.AskSumWithinBand += lv.size
			}
		}
	}

	return snap, nil
}

// IsStale reports whether the book for (marketID, outcomeName) has not been
// updated in more than maxAge. Nothing in this repository calls it; the
// strategies apply no staleness gate (spec.md does not define one for this
// core).
func (p *LiveProvider) IsStale(marketID, outcomeName string, maxAge time.Duration) bool {
	p.mu.RLock()
	tokenID, ok := p.tokens[marketID+"|"+outcomeName]
	var b *book
	if ok {
		b = p.books[tokenID]
	}
	p.mu.RUnlock()

	if !ok || b == nil {
		return true
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.updatedAt.IsZero() || time.Since(b.updatedAt) > maxAge
}
