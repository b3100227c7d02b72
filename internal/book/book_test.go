package book

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/arb-core/internal/types"
)

func quote(venue types.VenueID, pair types.Pair, seq uint64, bid, ask float64, at time.Time) types.Quote {
	return types.Quote{
		Venue: venue, Pair: pair,
		BidPx: bid, BidQty: 1, AskPx: ask, AskQty: 1,
		Seq: seq, ObservedAt: at,
	}
}

func TestStore_AcceptAndGet(t *testing.T) {
	s := NewStore(time.Second)
	now := time.Now()

	res := s.Update(quote("binance", "BTC-USD", 1, 99.9, 100.0, now))
	assert.Equal(t, Accepted, res)

	e, ok := s.Get("binance", "BTC-USD")
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.Quote.Seq)
	assert.False(t, e.Stale)
}

func TestStore_OutOfOrderRejected(t *testing.T) {
	s := NewStore(time.Second)
	now := time.Now()

	require.Equal(t, Accepted, s.Update(quote("binance", "BTC-USD", 5, 99.9, 100.0, now)))

	// lower sequence: stale, entry untouched
	assert.Equal(t, RejectedStale, s.Update(quote("binance", "BTC-USD", 3, 50, 51, now)))
	e, ok := s.Get("binance", "BTC-USD")
	require.True(t, ok)
	assert.Equal(t, uint64(5), e.Quote.Seq)
	assert.Equal(t, 100.0, e.Quote.AskPx)

	// equal sequence: duplicate
	assert.Equal(t, RejectedDuplicateSequence, s.Update(quote("binance", "BTC-USD", 5, 50, 51, now)))
	e, _ = s.Get("binance", "BTC-USD")
	assert.Equal(t, 100.0, e.Quote.AskPx)
}

func TestStore_SequencePerVenuePair(t *testing.T) {
	s := NewStore(time.Second)
	now := time.Now()

	require.Equal(t, Accepted, s.Update(quote("binance", "BTC-USD", 10, 99, 100, now)))
	// same venue, different pair: independent sequence space
	assert.Equal(t, Accepted, s.Update(quote("binance", "ETH-USD", 2, 9, 10, now)))
	// same pair, different venue: independent sequence space
	assert.Equal(t, Accepted, s.Update(quote("kraken", "BTC-USD", 2, 99, 100, now)))
}

func TestStore_Staleness(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := base
	s := NewStoreWithClock(time.Second, func() time.Time { return clock })

	require.Equal(t, Accepted, s.Update(quote("binance", "BTC-USD", 1, 99, 100, base)))

	e, _ := s.Get("binance", "BTC-USD")
	assert.False(t, e.Stale)

	clock = base.Add(1500 * time.Millisecond)
	e, _ = s.Get("binance", "BTC-USD")
	assert.True(t, e.Stale)
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore(time.Second)
	now := time.Now()

	s.Update(quote("binance", "BTC-USD", 1, 99, 100, now))
	s.Update(quote("kraken", "BTC-USD", 1, 100.5, 101, now))
	s.Update(quote("binance", "ETH-USD", 1, 9, 10, now))

	snap := s.Snapshot("BTC-USD")
	require.Len(t, snap, 2)
	assert.Equal(t, 100.0, snap["binance"].Quote.AskPx)
	assert.Equal(t, 100.5, snap["kraken"].Quote.BidPx)

	assert.Nil(t, s.Snapshot("DOGE-USD"))
	assert.ElementsMatch(t, []types.Pair{"BTC-USD", "ETH-USD"}, s.Pairs())
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore(time.Second)
	_, ok := s.Get("binance", "BTC-USD")
	assert.False(t, ok)

	s.Update(quote("kraken", "BTC-USD", 1, 99, 100, time.Now()))
	_, ok = s.Get("binance", "BTC-USD")
	assert.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(time.Second)
	now := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update(quote("binance", "BTC-USD", uint64(i), 99, 100, now))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot("BTC-USD")
		}()
	}
	wg.Wait()

	e, ok := s.Get("binance", "BTC-USD")
	require.True(t, ok)
	assert.Equal(t, uint64(99), e.Quote.Seq)
}
