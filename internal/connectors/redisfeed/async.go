package redisfeed

import (
	"context"

	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

// Async keeps Redis round trips off the detection hot path: upserts and
// live-set removals are queued on a buffered channel drained by a single
// goroutine, and dropped with a warning when the queue is full.
type Async struct {
	pub *Publisher
	ch  chan asyncEvent
	log *zap.Logger
}

type asyncEvent struct {
	opp       types.Opportunity
	removeKey string
}

func NewAsync(pub *Publisher, buffer int, log *zap.Logger) *Async {
	if buffer < 1 {
		buffer = 1024
	}
	return &Async{pub: pub, ch: make(chan asyncEvent, buffer), log: log}
}

// Upsert queues a detection for publishing. Never blocks.
func (a *Async) Upsert(o types.Opportunity) {
	select {
	case a.ch <- asyncEvent{opp: o}:
	default:
		a.log.Warn("publish queue full, opportunity dropped", zap.String("key", o.Key))
	}
}

// Remove queues a live-set removal for a swept opportunity. Never blocks.
func (a *Async) Remove(key string) {
	select {
	case a.ch <- asyncEvent{removeKey: key}:
	default:
		a.log.Warn("publish queue full, removal dropped", zap.String("key", key))
	}
}

// Run drains the queue until ctx is done.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.ch:
			if ev.removeKey != "" {
				if err := a.pub.RemoveFromLive(ctx, ev.removeKey); err != nil {
					a.log.Warn("redis live removal failed", zap.Error(err))
				}
				continue
			}
			if err := a.pub.PublishOpportunity(ctx, ev.opp); err != nil {
				a.log.Warn("redis publish failed", zap.Error(err))
			}
		}
	}
}
