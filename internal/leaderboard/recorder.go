package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

// ErrInvalidScore rejects submissions that cannot be ranked. Only the
// record's shape is checked; the server never validates gameplay.
var ErrInvalidScore = errors.New("score submission requires a player name and a non-negative score")

// Recorder appends score submissions to the raw score store. Every
// submission gets a fresh unique key, so appends are unconditional writes
// with no contention.
type Recorder struct {
	store kvstore.Store
	now   func() time.Time
}

// NewRecorder returns a Recorder over the given store.
func NewRecorder(store kvstore.Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Append persists one submission into both the daily and the all-time raw
// partition. Date and SubmittedAt are stamped server-side when absent.
func (r *Recorder) Append(ctx context.Context, rec types.ScoreRecord, dev bool) error {
	rec.PlayerName = strings.TrimSpace(rec.PlayerName)
	if rec.PlayerName == "" || rec.Score < 0 {
		return ErrInvalidScore
	}

	now := r.now().UTC()
	if rec.Date == "" {
		rec.Date = now.Format(dateLayout)
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = now
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	if err := r.store.Set(ctx, rawDailyKey(rec.Date, id, dev), data); err != nil {
		return err
	}
	if err := r.store.Set(ctx, rawAllTimeKey(id, dev), data); err != nil {
		return err
	}
	log.Printf("Recorded score %d for %s on %s", rec.Score, rec.PlayerName, rec.Date)
	return nil
}
