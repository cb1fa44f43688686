package leaderboard

import (
	"context"
	"encoding/json"
	"testing"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

func TestRebuildSeparatesBuckets(t *testing.T) {
	store := kvstore.NewMemoryStore()
	putScore(t, store, rawAllTimeRoot+"a", score("Alice", 100, testT1))
	putScore(t, store, rawAllTimeRoot+"b", score("Alice", 120, testT2))
	putScore(t, store, rawAllTimeRoot+"c", score("Bob", 90, testT1))
	putScore(t, store, rawAllTimeRoot+DevMarker+"d", score("Synthetic", 500, testT1))
	putScore(t, store, rawAllTimeRoot+DevMarker+"e", score("Synthetic", 400, testT2))

	result, err := NewRebuilder(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Prod != 2 {
		t.Errorf("Prod = %d, want 2 (Alice, Bob)", result.Prod)
	}
	if result.Dev != 1 {
		t.Errorf("Dev = %d, want 1 (Synthetic)", result.Dev)
	}

	// Dev entries must never leak into the production index and vice versa.
	prod := readIndexPayload(t, store, indexAllTimeKey(false))
	for _, rec := range prod.Leaderboard {
		if rec.PlayerName == "Synthetic" {
			t.Errorf("dev record leaked into production index: %+v", rec)
		}
	}
	if prod.Leaderboard[0].PlayerName != "Alice" || prod.Leaderboard[0].Score != 120 {
		t.Errorf("production index head = %+v, want Alice 120", prod.Leaderboard[0])
	}

	dev := readIndexPayload(t, store, indexAllTimeKey(true))
	if dev.TotalEntries != 1 || dev.Leaderboard[0].Score != 500 {
		t.Errorf("dev index = %+v, want only Synthetic 500", dev)
	}
}

func TestRebuildOverwritesStaleIndex(t *testing.T) {
	store := kvstore.NewMemoryStore()
	ctx := context.Background()

	stale := types.IndexPayload{
		Leaderboard:  []types.ScoreRecord{score("Stale", 1, testT1)},
		TotalEntries: 1,
	}
	data, _ := json.Marshal(stale)
	if err := store.Set(ctx, indexAllTimeKey(false), data); err != nil {
		t.Fatal(err)
	}

	putScore(t, store, rawAllTimeRoot+"a", score("Fresh", 777, testT1))

	if _, err := NewRebuilder(store).Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Unlike build-on-read, the rebuild replaces whatever was cached.
	got := readIndexPayload(t, store, indexAllTimeKey(false))
	if got.TotalEntries != 1 || got.Leaderboard[0].PlayerName != "Fresh" {
		t.Errorf("index after rebuild = %+v, want only Fresh", got)
	}
}

func TestRebuildEmptyStore(t *testing.T) {
	store := kvstore.NewMemoryStore()
	result, err := NewRebuilder(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run on empty store failed: %v", err)
	}
	if result.Prod != 0 || result.Dev != 0 {
		t.Errorf("result = %+v, want zero counts", result)
	}

	// Both index partitions are still written, as empty documents.
	for _, dev := range []bool{false, true} {
		payload := readIndexPayload(t, store, indexAllTimeKey(dev))
		if payload.TotalEntries != 0 || len(payload.Leaderboard) != 0 {
			t.Errorf("dev=%v index = %+v, want empty payload", dev, payload)
		}
	}
}

func readIndexPayload(t *testing.T, store kvstore.Store, key string) types.IndexPayload {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("index %s missing: %v", key, err)
	}
	var payload types.IndexPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("index %s corrupt: %v", key, err)
	}
	return payload
}
