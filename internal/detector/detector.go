// Package detector recomputes cross-venue spreads for a pair whenever its
// book changes and emits candidates that clear the profitability threshold
// net of fees and slippage.
package detector

import (
	"sort"
	"time"

	"github.com/you/arb-core/internal/book"
	"github.com/you/arb-core/internal/metrics"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

// Params are the pluggable fee/slippage/threshold knobs. Fees are taker
// fees in bps per venue; slippage is a single global allowance in bps.
type Params struct {
	MinProfitBps   float64
	SlippageBps    float64
	TTL            time.Duration
	VenueFeeBps    map[types.VenueID]float64
	VenueLatencyMs map[types.VenueID]float64
}

// Sink receives emitted candidates. The detector never touches ledger or
// store state directly.
type Sink interface {
	Upsert(types.Opportunity)
}

type Detector struct {
	book   *book.Store
	params Params
	sink   Sink
	log    *zap.Logger
	now    func() time.Time
}

func New(b *book.Store, params Params, sink Sink, log *zap.Logger) *Detector {
	return &Detector{book: b, params: params, sink: sink, log: log, now: time.Now}
}

// OnUpdate runs one detection pass for pair. The caller serializes calls
// per pair; distinct pairs may run concurrently.
func (d *Detector) OnUpdate(pair types.Pair) {
	start := time.Now()
	defer func() { metrics.DetectLatency.Observe(time.Since(start).Seconds()) }()

	snap := d.book.Snapshot(pair)
	if len(snap) < 2 {
		return
	}

	now := d.now()
	var candidates []types.Opportunity
	for buyVenue, buy := range snap {
		if buy.Stale {
			continue
		}
		for sellVenue, sell := range snap {
			if sellVenue == buyVenue || sell.Stale {
				continue
			}
			if o, ok := d.evaluate(pair, buyVenue, buy.Quote, sellVenue, sell.Quote, now); ok {
				candidates = append(candidates, o)
			}
		}
	}
	if len(candidates) == 0 {
		return
	}

	// Deterministic ranking: profit desc, then lower combined venue
	// latency, then lexical venue order.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.NetBps != b.NetBps {
			return a.NetBps > b.NetBps
		}
		if a.LatencyMs != b.LatencyMs {
			return a.LatencyMs < b.LatencyMs
		}
		if a.BuyVenue != b.BuyVenue {
			return a.BuyVenue < b.BuyVenue
		}
		return a.SellVenue < b.SellVenue
	})

	for _, o := range candidates {
		d.log.Info("opportunity",
			zap.String("pair", string(o.Pair)),
			zap.String("buy_venue", string(o.BuyVenue)),
			zap.String("sell_venue", string(o.SellVenue)),
			zap.Float64("spread_bps", o.SpreadBps),
			zap.Float64("net_bps", o.NetBps),
			zap.Float64("net_quote", o.NetQuote),
		)
		d.sink.Upsert(o)
	}
}

func (d *Detector) evaluate(pair types.Pair, buyVenue types.VenueID, buy types.Quote, sellVenue types.VenueID, sell types.Quote, now time.Time) (types.Opportunity, bool) {
	netBps, spreadBps, ok := d.netBps(buy, sell, buyVenue, sellVenue)
	if !ok {
		return types.Opportunity{}, false
	}
	return types.Opportunity{
		Pair:       pair,
		BuyVenue:   buyVenue,
		SellVenue:  sellVenue,
		BuyPx:      buy.AskPx,
		SellPx:     sell.BidPx,
		SpreadBps:  spreadBps,
		NetBps:     netBps,
		NetQuote:   buy.AskPx * netBps / 10_000,
		LatencyMs:  d.params.VenueLatencyMs[buyVenue] + d.params.VenueLatencyMs[sellVenue],
		DetectedAt: now,
		ExpiresAt:  now.Add(d.params.TTL),
		Key:        types.OpportunityKey(pair, buyVenue, sellVenue),
	}, true
}

// netBps computes the spread in bps and its value net of fees/slippage,
// returning ok=false when the quotes cannot price a trade or the net falls
// at or below the threshold.
func (d *Detector) netBps(buy, sell types.Quote, buyVenue, sellVenue types.VenueID) (net, spread float64, ok bool) {
	if buy.AskPx <= 0 || sell.BidPx <= 0 {
		return 0, 0, false
	}
	spread = (sell.BidPx - buy.AskPx) / buy.AskPx * 10_000
	net = spread - d.params.VenueFeeBps[buyVenue] - d.params.VenueFeeBps[sellVenue] - d.params.SlippageBps
	if net <= d.params.MinProfitBps {
		return 0, 0, false
	}
	return net, spread, true
}

// Revalidate re-checks a previously emitted opportunity against the live
// book: both legs must still be present and non-stale and the recomputed
// net must still clear the threshold.
func (d *Detector) Revalidate(o types.Opportunity) bool {
	buy, ok := d.book.Get(o.BuyVenue, o.Pair)
	if !ok || buy.Stale {
		return false
	}
	sell, ok := d.book.Get(o.SellVenue, o.Pair)
	if !ok || sell.Stale {
		return false
	}
	_, _, ok = d.netBps(buy.Quote, sell.Quote, o.BuyVenue, o.SellVenue)
	return ok
}
