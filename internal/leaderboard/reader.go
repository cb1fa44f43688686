package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/samber/lo"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

// Read-path limits. Requests above MaxLimit are clamped, not rejected.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// View is a ranked, capped slice of an index partition as served to
// clients.
type View struct {
	Kind         string
	Date         string
	Entries      []types.RankedEntry
	TotalEntries int
}

// Reader serves leaderboard views from the materialized index, building the
// index on read when the cached document is absent or malformed. It never
// fails a request: any unexpected storage failure degrades to an empty
// leaderboard.
type Reader struct {
	store   kvstore.Store
	builder *Builder
	now     func() time.Time
}

// NewReader returns a Reader over the given store.
func NewReader(store kvstore.Store) *Reader {
	return &Reader{store: store, builder: NewBuilder(store), now: time.Now}
}

// Leaderboard returns the ranked view for the kind's current partition
// (today's UTC date for daily, the fixed all-time partition otherwise).
// kind must be KindDaily or KindAllTime; callers validate before calling.
func (r *Reader) Leaderboard(ctx context.Context, kind string, limit int, dev bool) View {
	var indexKey, rawScan, date string
	switch kind {
	case KindDaily:
		date = r.now().UTC().Format(dateLayout)
		indexKey = indexDailyKey(date, dev)
		rawScan = rawDailyPrefix(date)
	default:
		indexKey = indexAllTimeKey(dev)
		rawScan = rawAllTimeRoot
	}

	payload, ok := r.readIndex(ctx, indexKey)
	if !ok {
		built, err := r.builder.Build(ctx, rawScan, date, dev)
		if err != nil {
			log.Printf("Build-on-read for %s failed, serving empty leaderboard: %v", indexKey, err)
			return View{Kind: kind, Date: date, Entries: []types.RankedEntry{}}
		}
		r.persistIndex(ctx, indexKey, built)
		payload = built
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows := payload.Leaderboard
	if len(rows) > limit {
		rows = rows[:limit]
	}
	entries := lo.Map(rows, func(rec types.ScoreRecord, i int) types.RankedEntry {
		return types.RankedEntry{ScoreRecord: rec, Rank: i + 1}
	})
	return View{
		Kind:         kind,
		Date:         date,
		Entries:      entries,
		TotalEntries: payload.TotalEntries,
	}
}

// readIndex fetches and validates the cached index document. A missing key,
// unparsable JSON, or a missing/non-array leaderboard field all count as a
// cache miss and trigger build-on-read.
func (r *Reader) readIndex(ctx context.Context, key string) (types.IndexPayload, bool) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("Index read for %s failed, treating as cache miss: %v", key, err)
		}
		return types.IndexPayload{}, false
	}

	var probe struct {
		Leaderboard json.RawMessage `json:"leaderboard"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Printf("Index document %s is corrupt, rebuilding: %v", key, err)
		return types.IndexPayload{}, false
	}
	if len(probe.Leaderboard) == 0 || probe.Leaderboard[0] != '[' {
		log.Printf("Index document %s has no leaderboard array, rebuilding", key)
		return types.IndexPayload{}, false
	}

	var payload types.IndexPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("Index document %s failed to decode, rebuilding: %v", key, err)
		return types.IndexPayload{}, false
	}
	return payload, true
}

// persistIndex caches a freshly built payload with create-if-absent
// semantics. Losing the conditional write to a concurrent build is fine:
// the computed payload is still served to this caller, and the slot holds
// whichever deterministic build won.
func (r *Reader) persistIndex(ctx context.Context, key string, payload types.IndexPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal index payload for %s: %v", key, err)
		return
	}
	if err := r.store.SetIfAbsent(ctx, key, data); err != nil {
		if errors.Is(err, kvstore.ErrKeyExists) {
			log.Printf("Lost build-on-read race for %s, serving locally built payload", key)
			return
		}
		log.Printf("Failed to cache index payload for %s: %v", key, err)
	}
}
