// Package ledger holds the live set of opportunities: deduplicated by key,
// ranked by profit, expired by TTL and by re-validation against the book.
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/you/arb-core/internal/metrics"
	"github.com/you/arb-core/internal/types"
	"go.uber.org/zap"
)

// Validator re-checks an opportunity against the live book. Entries that
// fail validation are swept, whatever their TTL says.
type Validator func(types.Opportunity) bool

// Filter narrows List output. Zero values match everything.
type Filter struct {
	Pair      types.Pair
	MinNetBps float64
}

type Ledger struct {
	validate Validator
	onRemove func(key string)
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]types.Opportunity
}

func New(validate Validator, log *zap.Logger) *Ledger {
	return &Ledger{
		validate: validate,
		log:      log,
		now:      time.Now,
		entries:  make(map[string]types.Opportunity, 32),
	}
}

// SetValidator installs the re-validation hook after construction; the
// detector is built with the ledger as its sink, so the hook arrives late.
func (l *Ledger) SetValidator(v Validator) {
	l.mu.Lock()
	l.validate = v
	l.mu.Unlock()
}

// SetOnRemove installs a hook invoked with each swept entry's key, so
// external live views (the Redis ranking) can mirror removals. The hook
// runs outside the ledger lock.
func (l *Ledger) SetOnRemove(f func(key string)) {
	l.mu.Lock()
	l.onRemove = f
	l.mu.Unlock()
}

// Upsert replaces any entry sharing the candidate's key, refreshing its
// detection and expiry timestamps. A sweep runs first so ingestion alone
// keeps the live set honest between ticker sweeps.
func (l *Ledger) Upsert(o types.Opportunity) {
	l.mu.Lock()
	removed := l.sweepLocked(l.now())
	l.entries[o.Key] = o
	metrics.LiveOpportunities.Set(float64(len(l.entries)))
	hook := l.onRemove
	l.mu.Unlock()
	notifyRemoved(hook, removed)
}

// Sweep drops entries past their expiry and entries the validator no
// longer accepts.
func (l *Ledger) Sweep(now time.Time) {
	l.mu.Lock()
	removed := l.sweepLocked(now)
	hook := l.onRemove
	l.mu.Unlock()
	notifyRemoved(hook, removed)
}

func (l *Ledger) sweepLocked(now time.Time) []string {
	var removed []string
	for key, o := range l.entries {
		if !now.Before(o.ExpiresAt) || (l.validate != nil && !l.validate(o)) {
			delete(l.entries, key)
			removed = append(removed, key)
		}
	}
	if len(removed) > 0 {
		metrics.SweepExpired.Add(float64(len(removed)))
		metrics.LiveOpportunities.Set(float64(len(l.entries)))
		l.log.Debug("swept opportunities", zap.Int("removed", len(removed)), zap.Int("live", len(l.entries)))
	}
	return removed
}

func notifyRemoved(hook func(string), keys []string) {
	if hook == nil {
		return
	}
	for _, k := range keys {
		hook(k)
	}
}

// List returns the live opportunities matching f, ordered by net profit
// descending with key as the deterministic tie-break.
func (l *Ledger) List(f Filter) []types.Opportunity {
	l.mu.Lock()
	out := make([]types.Opportunity, 0, len(l.entries))
	for _, o := range l.entries {
		if f.Pair != "" && o.Pair != f.Pair {
			continue
		}
		if o.NetBps < f.MinNetBps {
			continue
		}
		out = append(out, o)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NetBps != out[j].NetBps {
			return out[i].NetBps > out[j].NetBps
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Len reports the live entry count.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps on a fixed interval until ctx is done, catching time-based
// expiry between ingestions.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(l.now())
		}
	}
}
