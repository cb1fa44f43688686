// Package dailyseed derives the daily challenge's starting tiles
// deterministically from the UTC calendar date, so every player on a given
// date sees identical state without any coordination.
package dailyseed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"vortturo/internal/kvstore"
	"vortturo/internal/types"
)

// DateFormat is the calendar-date layout seeds are keyed by.
const DateFormat = "2006-01-02"

const seedKeyPrefix = "seed/"

// Draw counts, in stream order. The generator is stateful, so the order of
// these groups is part of the contract.
const lettersPerGroup = 3

// HashDate folds a date string into a 32-bit seed with the polynomial
// rolling hash hash = ((hash << 5) - hash) + charCode, truncated to 32 bits
// at each step, then takes the absolute value.
func HashDate(date string) uint32 {
	var h int32
	for _, c := range date {
		h = h<<5 - h + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// LCG is a linear-congruential generator producing floats in [0,1). The
// current state is exposed so a stored stream position can be resumed
// exactly.
type LCG struct {
	state uint32
}

// NewLCG seeds a generator.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns state / 2^32.
func (g *LCG) Next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / (1 << 32)
}

// State returns the current generator state.
func (g *LCG) State() uint32 {
	return g.state
}

type letterWeight struct {
	letter string
	weight int
}

// letterWeights is consulted in order during sampling; the order is part of
// the deterministic contract, so this stays a slice, never a map.
var letterWeights = []letterWeight{
	{"E", 12}, {"A", 10}, {"I", 9}, {"O", 8}, {"N", 7}, {"R", 7}, {"T", 7},
	{"L", 6}, {"S", 6}, {"U", 5}, {"D", 4}, {"G", 4}, {"B", 3}, {"C", 3},
	{"M", 3}, {"P", 3}, {"F", 2}, {"H", 2}, {"V", 2}, {"W", 2}, {"Y", 2},
	{"K", 2}, {"J", 1}, {"X", 1}, {"Q", 1}, {"Z", 1},
}

var totalWeight = func() int {
	sum := 0
	for _, lw := range letterWeights {
		sum += lw.weight
	}
	return sum
}()

// drawLetter samples one letter, scaling a generator output by the total
// weight and walking the table until the remainder drops to zero. The
// fallback covers floating-point edge cases where no weight matched.
func drawLetter(g *LCG) string {
	r := g.Next() * float64(totalWeight)
	for _, lw := range letterWeights {
		r -= float64(lw.weight)
		if r <= 0 {
			return lw.letter
		}
	}
	return "E"
}

func drawGroup(g *LCG) []string {
	letters := make([]string, 0, lettersPerGroup)
	for i := 0; i < lettersPerGroup; i++ {
		letters = append(letters, drawLetter(g))
	}
	return letters
}

// Generate computes the SeedRecord for a date without consulting storage.
// It is a pure function of the date string apart from CreatedAt.
func Generate(date string, now time.Time) types.SeedRecord {
	seed := HashDate(date)
	g := NewLCG(seed)

	// Draw order matters: starting letters, then first drop, then second.
	starting := drawGroup(g)
	first := drawGroup(g)
	second := drawGroup(g)

	return types.SeedRecord{
		Date: date,
		Seed: seed,
		GameState: types.DailyGameState{
			StartingLetters: starting,
			FirstDrop:       first,
			SecondDrop:      second,
			RNGState:        g.State(),
		},
		CreatedAt: now.UTC(),
	}
}

// Generator serves the persisted SeedRecord for a date, generating and
// storing it on first request. A nil store is the local-development
// fallback: records are regenerated per call and never persisted, which is
// allowed to diverge since nothing is shared.
type Generator struct {
	store kvstore.Store
	now   func() time.Time
}

// NewGenerator returns a Generator persisting into store. Pass nil to skip
// persistence.
func NewGenerator(store kvstore.Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

// ForDate returns the SeedRecord for a date. The first successful write for
// a date wins; all later calls return that stored record unchanged.
func (g *Generator) ForDate(ctx context.Context, date string) (types.SeedRecord, error) {
	if g.store == nil {
		return Generate(date, g.now()), nil
	}

	key := seedKeyPrefix + date
	if rec, ok := g.readStored(ctx, key); ok {
		return rec, nil
	}

	rec := Generate(date, g.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return types.SeedRecord{}, err
	}
	err = g.store.SetIfAbsent(ctx, key, data)
	if err == nil {
		log.Printf("Stored daily seed for %s (seed %d)", date, rec.Seed)
		return rec, nil
	}
	if errors.Is(err, kvstore.ErrKeyExists) {
		// Lost the creation race; the stored record is authoritative.
		if stored, ok := g.readStored(ctx, key); ok {
			return stored, nil
		}
	}
	return types.SeedRecord{}, err
}

func (g *Generator) readStored(ctx context.Context, key string) (types.SeedRecord, bool) {
	data, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("Failed to read stored seed %s: %v", key, err)
		}
		return types.SeedRecord{}, false
	}
	var rec types.SeedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("Stored seed %s is corrupt: %v", key, err)
		return types.SeedRecord{}, false
	}
	return rec, true
}
