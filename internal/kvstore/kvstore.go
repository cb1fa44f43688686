// Package kvstore abstracts the durable, strongly-consistent key-value
// service the server persists into. Keys are slash-separated paths; listing
// is by key prefix and returns restartable pages so large partitions can be
// scanned in batches.
package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no value exists for the key.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrKeyExists is returned by SetIfAbsent when the conditional create
	// lost to an existing value.
	ErrKeyExists = errors.New("kvstore: key already exists")
)

// DefaultPageSize bounds a single List batch when the caller passes no limit.
const DefaultPageSize = 100

// Entry is one key/value pair returned by a prefix scan.
type Entry struct {
	Key   string
	Value []byte
}

// Page is one batch of a prefix scan. Cursor restarts the scan after the
// last returned key; More reports whether further batches remain.
type Page struct {
	Entries []Entry
	Cursor  string
	More    bool
}

// Store is the storage contract injected into every component. Both the
// in-memory and the file-backed implementation satisfy it.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes the value unconditionally.
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes the value only when no value currently exists for
	// the key. Returns ErrKeyExists when the slot is already taken.
	SetIfAbsent(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns one page of entries whose key starts with prefix, in
	// ascending key order, starting strictly after cursor.
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
}

// ListAll drains every page under prefix. Consumers treat a scan as
// complete only once the final page has been consumed.
func ListAll(ctx context.Context, s Store, prefix string) ([]Entry, error) {
	var out []Entry
	cursor := ""
	for {
		page, err := s.List(ctx, prefix, cursor, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Entries...)
		if !page.More {
			return out, nil
		}
		cursor = page.Cursor
	}
}
