package leaderboard

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/samber/lo"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

// Builder materializes an index document from a partition of raw score
// records. The fold is pure and idempotent: re-running it against the same
// raw set yields the same payload modulo UpdatedAt.
type Builder struct {
	store kvstore.Store
	now   func() time.Time
}

// NewBuilder returns a Builder scanning the given store.
func NewBuilder(store kvstore.Store) *Builder {
	return &Builder{store: store, now: time.Now}
}

// wireScore decodes a raw submission. Score is a pointer so a record
// missing the field entirely can be told apart from a legitimate zero.
type wireScore struct {
	PlayerName  string    `json:"playerName"`
	Score       *int      `json:"score"`
	Round       int       `json:"round"`
	TotalWords  int       `json:"totalWords"`
	LongestWord string    `json:"longestWord"`
	TimeSpent   int       `json:"timeSpent"`
	Date        string    `json:"date"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// decodeScore parses a raw record. Records that fail to parse or miss
// playerName or score are skipped, not fatal.
func decodeScore(raw []byte) (types.ScoreRecord, bool) {
	var w wireScore
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.ScoreRecord{}, false
	}
	if w.PlayerName == "" || w.Score == nil {
		return types.ScoreRecord{}, false
	}
	return types.ScoreRecord{
		PlayerName:  w.PlayerName,
		Score:       *w.Score,
		Round:       w.Round,
		TotalWords:  w.TotalWords,
		LongestWord: w.LongestWord,
		TimeSpent:   w.TimeSpent,
		Date:        w.Date,
		SubmittedAt: w.SubmittedAt,
	}, true
}

// beats reports whether a should replace b as a player's best record:
// strictly higher score, or equal score with strictly earlier SubmittedAt.
func beats(a, b types.ScoreRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmittedAt.Before(b.SubmittedAt)
}

// bestByPlayer accumulates the best record seen so far per player name.
type bestByPlayer map[string]types.ScoreRecord

func (m bestByPlayer) add(rec types.ScoreRecord) {
	cur, ok := m[rec.PlayerName]
	if !ok || beats(rec, cur) {
		m[rec.PlayerName] = rec
	}
}

// payload materializes the accumulated map into a sorted IndexPayload.
func (m bestByPlayer) payload(date string, now time.Time) types.IndexPayload {
	records := lo.Values(m)
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		// Full ties ordered by name so repeated builds emit identical
		// payloads regardless of map iteration order.
		return a.PlayerName < b.PlayerName
	})
	return types.IndexPayload{
		Date:         date,
		Leaderboard:  records,
		TotalEntries: len(records),
		UpdatedAt:    now.UTC(),
	}
}

// Build scans every raw record under prefix whose key matches the requested
// environment (dev or production), keeps the best record per player, and
// emits the sorted index payload. date is carried into the payload for
// daily partitions and left empty for all-time.
func (b *Builder) Build(ctx context.Context, prefix, date string, dev bool) (types.IndexPayload, error) {
	entries, err := kvstore.ListAll(ctx, b.store, prefix)
	if err != nil {
		return types.IndexPayload{}, err
	}

	best := bestByPlayer{}
	skipped := 0
	for _, entry := range entries {
		if isDevKey(entry.Key) != dev {
			continue
		}
		rec, ok := decodeScore(entry.Value)
		if !ok {
			skipped++
			continue
		}
		best.add(rec)
	}
	if skipped > 0 {
		log.Printf("Index build for %s skipped %d malformed raw records", prefix, skipped)
	}
	return best.payload(date, b.now()), nil
}
