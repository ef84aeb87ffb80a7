// Package quota enforces the per-identity daily question ceiling on top of
// the usage store.
package quota

import (
	"context"
	"fmt"

	"github.com/lotusmind/yogachat/internal/domain"
	"github.com/lotusmind/yogachat/internal/metrics"
)

// usageStore is the consumer interface for daily usage tracking (ISP).
type usageStore interface {
	Get(ctx context.Context, key string) (int, error)
	Increment(ctx context.Context, key string) error
}

// Status is a point-in-time view of an identity's daily allowance.
type Status struct {
	Used      int
	Limit     int
	Remaining int
}

// Percent returns how much of the allowance is spent, 0-100.
func (s Status) Percent() int {
	if s.Limit <= 0 {
		return 100
	}
	p := s.Used * 100 / s.Limit
	if p > 100 {
		return 100
	}
	return p
}

// Exhausted reports whether the identity has no turns left today.
func (s Status) Exhausted() bool {
	return s.Remaining <= 0
}

// Gate owns the quota decision for every chat turn.
type Gate struct {
	store     usageStore
	anonLimit int
	authLimit int
}

// New creates a quota gate. Authenticated identities get the higher ceiling.
func New(store usageStore, anonLimit, authLimit int) *Gate {
	return &Gate{store: store, anonLimit: anonLimit, authLimit: authLimit}
}

// LimitFor returns the daily ceiling for the identity.
func (g *Gate) LimitFor(id domain.Identity) int {
	if id.Authenticated {
		return g.authLimit
	}
	return g.anonLimit
}

// Status reads today's usage for the identity. Reading establishes today's
// record, resetting any stale one.
func (g *Gate) Status(ctx context.Context, id domain.Identity) (Status, error) {
	used, err := g.store.Get(ctx, id.Key)
	if err != nil {
		return Status{}, fmt.Errorf("quota status: %w", err)
	}
	limit := g.LimitFor(id)
	return Status{Used: used, Limit: limit, Remaining: limit - used}, nil
}

// Consume spends one turn for the identity. Returns domain.ErrQuotaExhausted
// when nothing is left; the unit is spent before the answer is known, so a
// failed generation still costs a turn.
func (g *Gate) Consume(ctx context.Context, id domain.Identity) error {
	status, err := g.Status(ctx, id)
	if err != nil {
		return err
	}
	if status.Exhausted() {
		metrics.QuotaBlocksTotal.WithLabelValues(identityKind(id)).Inc()
		return fmt.Errorf("%s: %w", id.Key, domain.ErrQuotaExhausted)
	}
	if err := g.store.Increment(ctx, id.Key); err != nil {
		return fmt.Errorf("quota consume: %w", err)
	}
	return nil
}

func identityKind(id domain.Identity) string {
	if id.Authenticated {
		return "authenticated"
	}
	return "anonymous"
}
