package bookview

import "context"

// StaticProvider is an in-memory Provider test double: it returns whatever
// snapshot was registered for a (marketID, outcomeName) pair, or a zero
// Snapshot if nothing was registered. Used by strategy tests and, empty, as
// the book provider internal/app wires up in paper mode.
type StaticProvider struct {
	snapshots map[string]*Snapshot
}

// NewStaticProvider returns an empty StaticProvider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{snapshots: make(map[string]*Snapshot)}
}

// Set registers the snapshot to return for (marketID, outcomeName).
func (p *StaticProvider) Set(marketID, outcomeName string, snap *Snapshot) {
	p.snapshots[marketID+"|"+outcomeName] = snap
}

// BestBidAskDeets implements Provider.
func (p *StaticProvider) BestBidAskDeets(
	_ context.Context,
	marketID, outcomeName string,
	_ int,
	_ float64,
) (*Snapshot, error) {
	snap, ok := p.snapshots[marketID+"|"+outcomeName]
	if !ok {
		return &Snapshot{}, nil
	}

	return snap, nil
}
