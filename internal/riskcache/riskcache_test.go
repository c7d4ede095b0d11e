package riskcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polystrat/strategy-core/internal/riskcache"
)

func TestStore_LoadMissingFileReturnsNilNotError(t *testing.T) {
	s := riskcache.NewStore(t.TempDir())

	rec, err := s.Load("market-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := riskcache.NewStore(t.TempDir())

	want := riskcache.Record{
		Time:      "2026-07-30T00:00:00Z",
		Question:  "Will it rain?",
		Msg:       "stop loss triggered",
		SleepTill: "2026-07-30T06:00:00Z",
	}

	require.NoError(t, s.Save("market-1", want))

	got, err := s.Load("market-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestRecord_CoolingDown(t *testing.T) {
	now := time.Date(2026, 7, 30, 3, 0, 0, 0, time.UTC)

	future := &riskcache.Record{SleepTill: "2026-07-30T06:00:00Z"}
	assert.True(t, future.CoolingDown(now))

	past := &riskcache.Record{SleepTill: "2026-07-30T00:00:00Z"}
	assert.False(t, past.CoolingDown(now))

	empty := &riskcache.Record{}
	assert.False(t, empty.CoolingDown(now))

	var nilRecord *riskcache.Record
	assert.False(t, nilRecord.CoolingDown(now))
}
