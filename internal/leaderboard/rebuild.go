package leaderboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

// Rebuilder is the administrative repair pass: it re-aggregates every raw
// all-time record from scratch and overwrites both the production and the
// dev all-time index, regardless of what is cached. It is the authority for
// drift or corruption in the incrementally built index and is assumed not
// to run concurrently with itself.
type Rebuilder struct {
	store kvstore.Store
	now   func() time.Time
}

// NewRebuilder returns a Rebuilder over the given store.
func NewRebuilder(store kvstore.Store) *Rebuilder {
	return &Rebuilder{store: store, now: time.Now}
}

// Run scans the entire all-time raw partition, folds production and dev
// records into separate buckets, and unconditionally overwrites both index
// partitions. Returns the number of leaderboard entries written per bucket.
func (j *Rebuilder) Run(ctx context.Context) (types.RebuildResult, error) {
	entries, err := kvstore.ListAll(ctx, j.store, rawAllTimeRoot)
	if err != nil {
		return types.RebuildResult{}, err
	}

	prod := bestByPlayer{}
	dev := bestByPlayer{}
	skipped := 0
	for _, entry := range entries {
		rec, ok := decodeScore(entry.Value)
		if !ok {
			skipped++
			continue
		}
		if isDevKey(entry.Key) {
			dev.add(rec)
		} else {
			prod.add(rec)
		}
	}
	if skipped > 0 {
		log.Printf("Rebuild skipped %d malformed raw records", skipped)
	}

	now := j.now()
	prodPayload := prod.payload("", now)
	devPayload := dev.payload("", now)

	if err := j.writeIndex(ctx, indexAllTimeKey(false), prodPayload); err != nil {
		return types.RebuildResult{}, err
	}
	if err := j.writeIndex(ctx, indexAllTimeKey(true), devPayload); err != nil {
		return types.RebuildResult{}, err
	}

	log.Printf("Rebuild complete: %d production entries, %d dev entries (%d raw records scanned)",
		prodPayload.TotalEntries, devPayload.TotalEntries, len(entries))
	return types.RebuildResult{Prod: prodPayload.TotalEntries, Dev: devPayload.TotalEntries}, nil
}

// writeIndex overwrites an index partition. The whole document is written
// in one Set so concurrent readers see either the old or the new payload,
// never a partial one.
func (j *Rebuilder) writeIndex(ctx context.Context, key string, payload types.IndexPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return j.store.Set(ctx, key, data)
}
