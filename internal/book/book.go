// Package book maintains the latest accepted quote per (venue, pair) with
// monotonic sequence enforcement and staleness tracking.
package book

import (
	"sync"
	"time"

	"github.com/you/arb-core/internal/metrics"
	"github.com/you/arb-core/internal/types"
)

// UpdateResult classifies the outcome of a quote update. Rejections are
// routine outcomes, not errors; they are counted, never surfaced.
type UpdateResult int

const (
	Accepted UpdateResult = iota
	RejectedStale
	RejectedDuplicateSequence
)

func (r UpdateResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedStale:
		return "rejected_stale"
	case RejectedDuplicateSequence:
		return "rejected_duplicate_sequence"
	}
	return "unknown"
}

// Entry is the stored view of the latest quote plus its staleness flag,
// computed against the store's window at read time.
type Entry struct {
	Quote types.Quote
	Stale bool
}

// pairBook holds every venue's latest quote for one pair. Locking is per
// pair so unrelated pairs never serialize against each other.
type pairBook struct {
	mu     sync.RWMutex
	venues map[types.VenueID]types.Quote
}

type Store struct {
	staleAfter time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	pairs map[types.Pair]*pairBook
}

func NewStore(staleAfter time.Duration) *Store {
	return &Store{
		staleAfter: staleAfter,
		now:        time.Now,
		pairs:      make(map[types.Pair]*pairBook, 64),
	}
}

// NewStoreWithClock is NewStore with an injectable clock for tests.
func NewStoreWithClock(staleAfter time.Duration, now func() time.Time) *Store {
	s := NewStore(staleAfter)
	s.now = now
	return s
}

func (s *Store) pairBookFor(pair types.Pair) *pairBook {
	s.mu.RLock()
	pb := s.pairs[pair]
	s.mu.RUnlock()
	if pb != nil {
		return pb
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pb = s.pairs[pair]; pb == nil {
		pb = &pairBook{venues: make(map[types.VenueID]types.Quote, 8)}
		s.pairs[pair] = pb
	}
	return pb
}

// Update accepts q iff its sequence number is strictly greater than the
// stored one for (venue, pair). Equal sequence is a duplicate, lower is
// stale; either way the stored entry is left untouched.
func (s *Store) Update(q types.Quote) UpdateResult {
	pb := s.pairBookFor(q.Pair)
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if cur, ok := pb.venues[q.Venue]; ok {
		if q.Seq == cur.Seq {
			metrics.UpdatesRejectedDup.Inc()
			return RejectedDuplicateSequence
		}
		if q.Seq < cur.Seq {
			metrics.UpdatesRejectedStale.Inc()
			return RejectedStale
		}
	}
	pb.venues[q.Venue] = q
	metrics.UpdatesAccepted.Inc()
	return Accepted
}

// Get returns the entry for one (venue, pair), or ok=false when the venue
// has never quoted the pair.
func (s *Store) Get(venue types.VenueID, pair types.Pair) (Entry, bool) {
	s.mu.RLock()
	pb := s.pairs[pair]
	s.mu.RUnlock()
	if pb == nil {
		return Entry{}, false
	}
	pb.mu.RLock()
	q, ok := pb.venues[venue]
	pb.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return s.entry(q), true
}

// Snapshot returns every venue's entry for a pair as a consistent
// point-in-time view: the whole map is copied under the pair's read lock,
// so no entry is ever observed mid-update.
func (s *Store) Snapshot(pair types.Pair) map[types.VenueID]Entry {
	s.mu.RLock()
	pb := s.pairs[pair]
	s.mu.RUnlock()
	if pb == nil {
		return nil
	}
	pb.mu.RLock()
	out := make(map[types.VenueID]Entry, len(pb.venues))
	for v, q := range pb.venues {
		out[v] = s.entry(q)
	}
	pb.mu.RUnlock()
	return out
}

// Pairs lists every pair the store has seen, in no particular order.
func (s *Store) Pairs() []types.Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Pair, 0, len(s.pairs))
	for p := range s.pairs {
		out = append(out, p)
	}
	return out
}

func (s *Store) entry(q types.Quote) Entry {
	return Entry{
		Quote: q,
		Stale: s.now().Sub(q.ObservedAt) > s.staleAfter,
	}
}
