// Package engine runs the hot path: venue feeds push raw messages in
// parallel, accepted book updates trigger detection on pair-sharded
// workers, detections land in the ledger.
package engine

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/you/arb-core/internal/book"
	"github.com/you/arb-core/internal/detector"
	"github.com/you/arb-core/internal/metrics"
	"github.com/you/arb-core/internal/normalizer"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed delivers one venue's raw messages until ctx is done. Connection
// retry is the feed's own concern; the engine never retries for it.
type Feed interface {
	Venue() types.VenueID
	Run(ctx context.Context, out chan<- []byte) error
}

type Engine struct {
	book    *book.Store
	det     *detector.Detector
	norms   map[types.VenueID]*normalizer.Normalizer
	workers int
	log     *zap.Logger
}

func New(b *book.Store, det *detector.Detector, norms map[types.VenueID]*normalizer.Normalizer, workers int, log *zap.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{book: b, det: det, norms: norms, workers: workers, log: log}
}

// Run blocks until ctx is done and every feed and worker has drained.
func (e *Engine) Run(ctx context.Context, feeds []Feed) error {
	shards := make([]chan types.Pair, e.workers)
	for i := range shards {
		shards[i] = make(chan types.Pair, 256)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Detection workers: one goroutine per shard serializes detection
	// per pair while distinct pairs run concurrently.
	for i := range shards {
		ch := shards[i]
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case pair := <-ch:
					e.det.OnUpdate(pair)
				}
			}
		})
	}

	for _, f := range feeds {
		f := f
		norm := e.norms[f.Venue()]
		if norm == nil {
			e.log.Warn("no normalizer for venue, feed skipped", zap.String("venue", string(f.Venue())))
			continue
		}
		raw := make(chan []byte, 1024)

		g.Go(func() error {
			if err := f.Run(ctx, raw); err != nil && ctx.Err() == nil {
				e.log.Error("feed stopped", zap.String("venue", string(f.Venue())), zap.Error(err))
			}
			return nil
		})
		g.Go(func() error {
			e.ingest(ctx, f.Venue(), norm, raw, shards)
			return nil
		})
	}

	e.log.Info("engine running", zap.Int("feeds", len(feeds)), zap.Int("workers", e.workers))
	return g.Wait()
}

func (e *Engine) ingest(ctx context.Context, venue types.VenueID, norm *normalizer.Normalizer, raw <-chan []byte, shards []chan types.Pair) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-raw:
			q, err := norm.Normalize(msg)
			if err != nil {
				e.dropMessage(venue, err)
				continue
			}
			if e.book.Update(q) != book.Accepted {
				continue
			}
			select {
			case shards[shardFor(q.Pair, len(shards))] <- q.Pair:
			case <-ctx.Done():
				return
			}
		}
	}
}

// dropMessage counts and logs a per-message failure; the pipeline never
// stops for one bad message.
func (e *Engine) dropMessage(venue types.VenueID, err error) {
	switch {
	case errors.Is(err, normalizer.ErrUnknownPair):
		metrics.FeedUnknownPair.Inc()
	case errors.Is(err, normalizer.ErrMalformedMessage):
		metrics.FeedMalformed.Inc()
	}
	e.log.Debug("message dropped", zap.String("venue", string(venue)), zap.Error(err))
}

func shardFor(pair types.Pair, n int) int {
	h := fnv.New32a()
	h.Write([]byte(pair))
	return int(h.Sum32() % uint32(n))
}
