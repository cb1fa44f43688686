package types

import "time"

// ScoreRecord is a single score submission as appended to the raw score
// store. Records are append-only and never mutated after the write.
// Identity for deduplication is PlayerName; two humans sharing a name
// collide by design.
type ScoreRecord struct {
	PlayerName  string    `json:"playerName"`
	Score       int       `json:"score"`
	Round       int       `json:"round"`
	TotalWords  int       `json:"totalWords"`
	LongestWord string    `json:"longestWord"`
	TimeSpent   int       `json:"timeSpent"`
	Date        string    `json:"date"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// IndexPayload is the materialized "best per player" document stored per
// leaderboard partition. Leaderboard holds at most one record per distinct
// player, sorted by score descending with earlier SubmittedAt breaking ties.
type IndexPayload struct {
	Date         string        `json:"date,omitempty"`
	Leaderboard  []ScoreRecord `json:"leaderboard"`
	TotalEntries int           `json:"totalEntries"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// RankedEntry is a leaderboard row annotated with its 1-based position in
// the sorted, truncated sequence served to clients.
type RankedEntry struct {
	ScoreRecord
	Rank int `json:"rank"`
}

// DailyGameState is the deterministic starting state for a daily challenge.
// RNGState is the generator state after the last draw so the stream can be
// extended later from the exact same position.
type DailyGameState struct {
	StartingLetters []string `json:"startingLetters"`
	FirstDrop       []string `json:"firstDrop"`
	SecondDrop      []string `json:"secondDrop"`
	RNGState        uint32   `json:"rngState"`
}

// SeedRecord is the persisted daily challenge seed. For a fixed Date, Seed
// and GameState are pure functions of the date string; once stored the
// record is immutable.
type SeedRecord struct {
	Date      string         `json:"date"`
	Seed      uint32         `json:"seed"`
	GameState DailyGameState `json:"gameState"`
	CreatedAt time.Time      `json:"createdAt"`
}

// RebuildResult reports how many leaderboard entries the administrative
// rebuild wrote per bucket.
type RebuildResult struct {
	Prod int `json:"prod"`
	Dev  int `json:"dev"`
}
