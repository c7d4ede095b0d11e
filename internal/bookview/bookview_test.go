package bookview_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystrat/strategy-core/internal/bookview"
)

func TestTopOfBook_NoAskIsUnusable(t *testing.T) {
	p := bookview.NewStaticProvider()
	p.Set("m1", "token1", &bookview.Snapshot{HasBid: true, BestBid: 0.4})

	snap, err := bookview.TopOfBook(context.Background(), p, "m1", "token1", 100, 0.1)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestTopOfBook_ZeroAskSizeIsUnusable(t *testing.T) {
	p := bookview.NewStaticProvider()
	p.Set("m1", "token1", &bookview.Snapshot{HasAsk: true, BestAsk: 0.5, BestAskSize: 0})

	snap, err := bookview.TopOfBook(context.Background(), p, "m1", "token1", 100, 0.1)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestTopOfBook_UsableSnapshotReturned(t *testing.T) {
	p := bookview.NewStaticProvider()
	want := &bookview.Snapshot{HasAsk: true, BestAsk: 0.5, BestAskSize: 10, HasBid: true, BestBid: 0.48}
	p.Set("m1", "token1", want)

	snap, err := bookview.TopOfBook(context.Background(), p, "m1", "token1", 100, 0.1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, want.BestAsk, snap.BestAsk)
}

func TestFetchWithFallback_RetriesOnMissingBestFields(t *testing.T) {
	p := &fallbackProvider{
		responses: map[int]*bookview.Snapshot{
			100: {HasBid: false, HasAsk: true, BestAsk: 0.5, BestAskSize: 10},
			20:  {HasBid: true, BestBid: 0.48, HasAsk: true, BestAsk: 0.5, BestAskSize: 10},
		},
	}

	snap, err := bookview.FetchWithFallback(context.Background(), p, "m1", "token1", 100, 20, 0.1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.HasBid)
	assert.Equal(t, []int{100, 20}, p.calledHints)
}

func TestFetchWithFallback_NoRetryWhenFirstCallComplete(t *testing.T) {
	p := &fallbackProvider{
		responses: map[int]*bookview.Snapshot{
			100: {HasBid: true, BestBid: 0.48, HasAsk: true, BestAsk: 0.5, BestAskSize: 10},
		},
	}

	snap, err := bookview.FetchWithFallback(context.Background(), p, "m1", "token1", 100, 20, 0.1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []int{100}, p.calledHints)
}

type fallbackProvider struct {
	responses   map[int]*bookview.Snapshot
	calledHints []int
}

func (f *fallbackProvider) BestBidAskDeets(
	_ context.Context,
	_, _ string,
	minSizeHint int,
	_ float64,
) (*bookview.Snapshot, error) {
	f.calledHints = append(f.calledHints, minSizeHint)
	return f.responses[minSizeHint], nil
}
