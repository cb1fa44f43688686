package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vortturo/internal/kvstore"
)

func TestPurgeRefusedWhenHosted(t *testing.T) {
	store := kvstore.NewMemoryStore()
	putScore(t, store, rawAllTimeRoot+DevMarker+"a", score("Synthetic", 1, testT1))

	count, err := NewPurger(store, true).Run(context.Background())
	if !errors.Is(err, ErrHostedPurge) {
		t.Fatalf("Run on hosted deployment = (%d, %v), want ErrHostedPurge", count, err)
	}
	// Nothing was touched.
	if _, err := store.Get(context.Background(), rawAllTimeRoot+DevMarker+"a"); err != nil {
		t.Errorf("dev record deleted despite refusal: %v", err)
	}
}

func TestPurgeDeletesOnlyDevRecords(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()
	dailyPrefix := rawDailyPrefix("2024-01-15")

	putScore(t, store, rawAllTimeRoot+"keep1", score("Alice", 100, testT1))
	putScore(t, store, dailyPrefix+"keep2", score("Alice", 100, testT1))
	putScore(t, store, rawAllTimeRoot+DevMarker+"gone1", score("Synthetic", 1, testT1))
	putScore(t, store, dailyPrefix+DevMarker+"gone2", score("Synthetic", 1, testT1))

	count, err := NewPurger(store, false).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted count = %d, want 2", count)
	}

	remaining, err := kvstore.ListAll(ctx, store, rawPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining raw records = %d, want 2", len(remaining))
	}
	for _, e := range remaining {
		if strings.Contains(e.Key, DevMarker) {
			t.Errorf("dev record survived purge: %s", e.Key)
		}
	}
}

// flakyDeleteStore fails deletion for one specific key.
type flakyDeleteStore struct {
	kvstore.Store
	failKey string
}

func (s *flakyDeleteStore) Delete(ctx context.Context, key string) error {
	if key == s.failKey {
		return errors.New("transient backend failure")
	}
	return s.Store.Delete(ctx, key)
}

func TestPurgeSkipsFailedDeletions(t *testing.T) {
	inner := kvstore.NewMemoryStore()
	putScore(t, inner, rawAllTimeRoot+DevMarker+"bad", score("Synthetic", 1, testT1))
	putScore(t, inner, rawAllTimeRoot+DevMarker+"ok1", score("Synthetic", 2, testT1))
	putScore(t, inner, rawAllTimeRoot+DevMarker+"ok2", score("Synthetic", 3, testT1))

	store := &flakyDeleteStore{Store: inner, failKey: rawAllTimeRoot + DevMarker + "bad"}
	count, err := NewPurger(store, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed despite best-effort contract: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted count = %d, want 2 successful deletions", count)
	}
}
