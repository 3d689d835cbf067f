// Package idempotency decides whether a batch of line items was already
// applied. The ledger log is authoritative; an optional cache answers
// replays without opening a storage transaction.
package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
)

// Cache remembers ref ids of committed batches. It is advisory: a miss or
// an error never blocks a batch.
type Cache interface {
	AnySeen(ctx context.Context, refIDs []string) (bool, error)
	MarkSeen(ctx context.Context, refIDs []string) error
}

// Lookup is the log side of the check, usually bound to the open unit of work.
type Lookup interface {
	FindByRefID(ctx context.Context, refID string) (transactions.Entry, error)
}

type Guard struct {
	cache Cache
}

// NewGuard returns a guard backed by cache. A nil cache disables the fast path.
func NewGuard(cache Cache) *Guard {
	if cache == nil {
		cache = NopCache{}
	}

	return &Guard{cache: cache}
}

// RefID builds the log key of one line item. Keys are scoped by action so
// that e.g. the settlement of a bet may reuse the bet's own id.
func RefID(action, itemID string) string {
	return action + ":" + itemID
}

// SeenRecently reports a cache hit for any of refIDs.
func (g *Guard) SeenRecently(ctx context.Context, refIDs []string) (bool, error) {
	if len(refIDs) == 0 {
		return false, nil
	}

	seen, err := g.cache.AnySeen(ctx, refIDs)
	if err != nil {
		return false, fmt.Errorf("idempotency cache lookup: %w", err)
	}

	return seen, nil
}

// Recorded returns the first ref id that already has a log entry, or that
// repeats inside refIDs itself.
func (g *Guard) Recorded(ctx context.Context, log Lookup, refIDs []string) (string, bool, error) {
	seen := make(map[string]struct{}, len(refIDs))

	for _, ref := range refIDs {
		if _, dup := seen[ref]; dup {
			return ref, true, nil
		}
		seen[ref] = struct{}{}

		_, err := log.FindByRefID(ctx, ref)
		switch {
		case err == nil:
			return ref, true, nil
		case errors.Is(err, transactions.ErrNotFound):
			continue
		default:
			return "", false, fmt.Errorf("look up %s: %w", ref, err)
		}
	}

	return "", false, nil
}

// Remember stores refIDs in the cache after their batch committed.
func (g *Guard) Remember(ctx context.Context, refIDs []string) error {
	if len(refIDs) == 0 {
		return nil
	}

	err := g.cache.MarkSeen(ctx, refIDs)
	if err != nil {
		return fmt.Errorf("idempotency cache write: %w", err)
	}

	return nil
}

type NopCache struct{}

func (NopCache) AnySeen(context.Context, []string) (bool, error) { return false, nil }
func (NopCache) MarkSeen(context.Context, []string) error         { return nil }
