package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UpdatesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_book_updates_accepted_total",
		Help: "Quotes accepted into the order book store",
	})

	UpdatesRejectedStale = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_book_updates_rejected_stale_total",
		Help: "Quotes rejected for an out-of-order sequence number",
	})

	UpdatesRejectedDup = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_book_updates_rejected_dup_total",
		Help: "Quotes rejected for a duplicate sequence number",
	})

	FeedMalformed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_malformed_total",
		Help: "Venue messages dropped as malformed",
	})

	FeedUnknownPair = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_unknown_pair_total",
		Help: "Venue messages dropped for an unmapped symbol",
	})

	LiveOpportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_live_opportunities",
		Help: "Opportunities currently held by the ledger",
	})

	SweepExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_sweep_expired_total",
		Help: "Opportunities removed by ledger sweeps",
	})

	DetectLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_detect_latency_seconds",
		Help:    "Time to recompute cross-venue spreads for one pair",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
)

func init() {
	prometheus.MustRegister(
		UpdatesAccepted,
		UpdatesRejectedStale,
		UpdatesRejectedDup,
		FeedMalformed,
		FeedUnknownPair,
		LiveOpportunities,
		SweepExpired,
		DetectLatency,
	)
}
