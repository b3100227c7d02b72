// Package facade is the read-only surface consumed by the presentation
// layer: ledger snapshots plus a balance pass-through to the exchange and
// chain clients. It holds no logic of its own beyond delegation.
package facade

import (
	"context"

	"github.com/you/arb-core/internal/ledger"
	"github.com/you/arb-core/internal/types"
	"golang.org/x/sync/errgroup"
)

// BalanceSource supplies raw balances keyed by asset symbol.
type BalanceSource interface {
	Balances(ctx context.Context) (map[string]float64, error)
}

// BalanceSnapshot carries the collaborators' balances through unmodified.
type BalanceSnapshot struct {
	Exchange map[string]float64 `json:"exchange"`
	Chain    map[string]float64 `json:"chain"`
}

type Facade struct {
	led   *ledger.Ledger
	cex   BalanceSource
	chain BalanceSource
}

func New(led *ledger.Ledger, cex, chain BalanceSource) *Facade {
	return &Facade{led: led, cex: cex, chain: chain}
}

// ListOpportunities delegates to the ledger.
func (f *Facade) ListOpportunities(filter ledger.Filter) []types.Opportunity {
	return f.led.List(filter)
}

// Balances fans out to both collaborators concurrently and passes their
// answers through untouched. A nil collaborator contributes nothing.
func (f *Facade) Balances(ctx context.Context) (BalanceSnapshot, error) {
	var snap BalanceSnapshot
	g, ctx := errgroup.WithContext(ctx)

	if f.cex != nil {
		g.Go(func() error {
			b, err := f.cex.Balances(ctx)
			snap.Exchange = b
			return err
		})
	}
	if f.chain != nil {
		g.Go(func() error {
			b, err := f.chain.Balances(ctx)
			snap.Chain = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return BalanceSnapshot{}, err
	}
	return snap, nil
}
