package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

func opp(pair types.Pair, buy, sell types.VenueID, netBps float64, detected time.Time, ttl time.Duration) types.Opportunity {
	return types.Opportunity{
		Pair: pair, BuyVenue: buy, SellVenue: sell,
		SpreadBps: netBps, NetBps: netBps,
		DetectedAt: detected, ExpiresAt: detected.Add(ttl),
		Key: types.OpportunityKey(pair, buy, sell),
	}
}

func TestLedger_UpsertRefreshes(t *testing.T) {
	l := New(nil, zap.NewNop())
	now := time.Now()

	l.Upsert(opp("BTC-USD", "a", "b", 80, now, time.Minute))
	require.Equal(t, 1, l.Len())

	// same key, later detection: replaced, not duplicated
	refreshed := opp("BTC-USD", "a", "b", 90, now.Add(time.Second), time.Minute)
	l.Upsert(refreshed)
	require.Equal(t, 1, l.Len())

	got := l.List(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, refreshed.DetectedAt, got[0].DetectedAt)
	assert.Equal(t, 90.0, got[0].NetBps)
}

func TestLedger_UpsertIdempotent(t *testing.T) {
	l := New(nil, zap.NewNop())
	now := time.Now()

	l.Upsert(opp("BTC-USD", "a", "b", 80, now, time.Minute))
	l.Upsert(opp("BTC-USD", "a", "c", 70, now, time.Minute))
	before := l.List(Filter{})

	// re-upserting identical fields leaves ordering unchanged
	l.Upsert(opp("BTC-USD", "a", "b", 80, now, time.Minute))
	assert.Equal(t, before, l.List(Filter{}))
}

func TestLedger_ListOrderingAndFilter(t *testing.T) {
	l := New(nil, zap.NewNop())
	now := time.Now()

	l.Upsert(opp("BTC-USD", "a", "b", 80, now, time.Minute))
	l.Upsert(opp("ETH-USD", "a", "b", 120, now, time.Minute))
	l.Upsert(opp("BTC-USD", "b", "c", 95, now, time.Minute))

	got := l.List(Filter{})
	require.Len(t, got, 3)
	assert.Equal(t, 120.0, got[0].NetBps)
	assert.Equal(t, 95.0, got[1].NetBps)
	assert.Equal(t, 80.0, got[2].NetBps)

	btc := l.List(Filter{Pair: "BTC-USD"})
	require.Len(t, btc, 2)
	assert.Equal(t, 95.0, btc[0].NetBps)

	rich := l.List(Filter{MinNetBps: 90})
	assert.Len(t, rich, 2)
}

func TestLedger_SweepExpiry(t *testing.T) {
	l := New(nil, zap.NewNop())
	now := time.Now()

	l.Upsert(opp("BTC-USD", "a", "b", 80, now, 100*time.Millisecond))
	l.Upsert(opp("BTC-USD", "b", "c", 70, now, time.Minute))

	l.Sweep(now.Add(200 * time.Millisecond))

	got := l.List(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, types.VenueID("b"), got[0].BuyVenue)

	// expiry boundary: expires_at <= now is swept
	l.Sweep(got[0].ExpiresAt)
	assert.Empty(t, l.List(Filter{}))
}

func TestLedger_SweepOnIngestion(t *testing.T) {
	l := New(nil, zap.NewNop())
	now := time.Now()

	l.Upsert(opp("BTC-USD", "a", "b", 80, now.Add(-time.Minute), time.Second))
	// the expired entry is gone as a side effect of the next upsert
	l.Upsert(opp("BTC-USD", "b", "c", 70, now, time.Minute))

	got := l.List(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, types.VenueID("b"), got[0].BuyVenue)
}

func TestLedger_ValidatorSweep(t *testing.T) {
	alive := map[string]bool{}
	l := New(func(o types.Opportunity) bool { return alive[o.Key] }, zap.NewNop())
	now := time.Now()

	a := opp("BTC-USD", "a", "b", 80, now, time.Minute)
	b := opp("BTC-USD", "b", "c", 70, now, time.Minute)
	alive[a.Key], alive[b.Key] = true, true
	l.Upsert(a)
	l.Upsert(b)
	require.Equal(t, 2, l.Len())

	// a's backing book entry goes stale
	alive[a.Key] = false
	l.Sweep(now)

	got := l.List(Filter{})
	require.Len(t, got, 1)
	assert.Equal(t, b.Key, got[0].Key)
}

func TestLedger_OnRemoveHook(t *testing.T) {
	l := New(nil, zap.NewNop())
	var removed []string
	l.SetOnRemove(func(k string) { removed = append(removed, k) })
	now := time.Now()

	a := opp("BTC-USD", "a", "b", 80, now, 100*time.Millisecond)
	l.Upsert(a)
	l.Sweep(now.Add(time.Second))
	assert.Equal(t, []string{a.Key}, removed)

	// ingestion-time sweeps fire the hook too
	removed = nil
	expired := opp("BTC-USD", "a", "c", 70, now.Add(-time.Minute), time.Second)
	l.Upsert(expired)
	l.Upsert(opp("BTC-USD", "b", "c", 60, now, time.Minute))
	assert.Equal(t, []string{expired.Key}, removed)
}

func TestLedger_OnRemoveHookValidator(t *testing.T) {
	alive := map[string]bool{}
	l := New(func(o types.Opportunity) bool { return alive[o.Key] }, zap.NewNop())
	var removed []string
	l.SetOnRemove(func(k string) { removed = append(removed, k) })
	now := time.Now()

	a := opp("BTC-USD", "a", "b", 80, now, time.Minute)
	alive[a.Key] = true
	l.Upsert(a)

	alive[a.Key] = false
	l.Sweep(now)
	assert.Equal(t, []string{a.Key}, removed)
	assert.Zero(t, l.Len())
}

func TestLedger_ExpiresAfterDetected(t *testing.T) {
	l := New(nil, zap.NewNop())
	l.Upsert(opp("BTC-USD", "a", "b", 80, time.Now(), time.Minute))
	for _, o := range l.List(Filter{}) {
		assert.True(t, o.ExpiresAt.After(o.DetectedAt))
	}
}
