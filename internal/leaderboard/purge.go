package leaderboard

import (
	"context"
	"errors"
	"log"

	"vortturo/internal/kvstore"
)

// ErrHostedPurge is returned when a purge is attempted on a hosted
// deployment. Dev data removal is a local-development convenience only.
var ErrHostedPurge = errors.New("dev data purge is only available in local deployments")

// Purger deletes synthetic dev-marked raw records across both leaderboard
// kinds. Deletion is best-effort: individual failures are logged and
// skipped, never failing the whole batch.
type Purger struct {
	store  kvstore.Store
	hosted bool
}

// NewPurger returns a Purger. hosted must reflect whether this process runs
// on a shared deployment; when true every purge attempt is refused.
func NewPurger(store kvstore.Store, hosted bool) *Purger {
	return &Purger{store: store, hosted: hosted}
}

// Run deletes every dev-marked raw score key and returns the number of
// successful deletions.
func (p *Purger) Run(ctx context.Context) (int, error) {
	if p.hosted {
		return 0, ErrHostedPurge
	}

	entries, err := kvstore.ListAll(ctx, p.store, rawPrefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if !isDevKey(entry.Key) {
			continue
		}
		if err := p.store.Delete(ctx, entry.Key); err != nil {
			log.Printf("Failed to delete dev record %s, skipping: %v", entry.Key, err)
			continue
		}
		deleted++
	}
	log.Printf("Dev data purge removed %d raw records", deleted)
	return deleted, nil
}
