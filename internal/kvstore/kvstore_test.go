package kvstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// storesUnderTest builds one instance of each Store implementation.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   file,
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "scores/daily/2024-01-15/abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, "scores/daily/2024-01-15/abc", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			val, err := s.Get(ctx, "scores/daily/2024-01-15/abc")
			if err != nil {
				t.Fatalf("Get after Set failed: %v", err)
			}
			if string(val) != `{"a":1}` {
				t.Errorf("Get = %q, want %q", val, `{"a":1}`)
			}

			if err := s.Delete(ctx, "scores/daily/2024-01-15/abc"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := s.Get(ctx, "scores/daily/2024-01-15/abc"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete = %v, want ErrNotFound", err)
			}

			// Deleting an absent key is not an error.
			if err := s.Delete(ctx, "scores/daily/2024-01-15/abc"); err != nil {
				t.Errorf("Delete of absent key = %v, want nil", err)
			}
		})
	}
}

func TestStoreSetIfAbsent(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SetIfAbsent(ctx, "index/alltime/all", []byte("first")); err != nil {
				t.Fatalf("SetIfAbsent on empty slot failed: %v", err)
			}
			if err := s.SetIfAbsent(ctx, "index/alltime/all", []byte("second")); !errors.Is(err, ErrKeyExists) {
				t.Fatalf("SetIfAbsent on taken slot = %v, want ErrKeyExists", err)
			}

			// First writer wins.
			val, err := s.Get(ctx, "index/alltime/all")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(val) != "first" {
				t.Errorf("Get = %q, want %q", val, "first")
			}
		})
	}
}

func TestStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{
				"scores/alltime/a1",
				"scores/alltime/dev_b2",
				"scores/daily/2024-01-15/c3",
				"scores/daily/2024-01-16/d4",
				"index/alltime/all",
			}
			for _, k := range keys {
				if err := s.Set(ctx, k, []byte(k)); err != nil {
					t.Fatalf("Set %s failed: %v", k, err)
				}
			}

			entries, err := ListAll(ctx, s, "scores/daily/2024-01-15/")
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(entries) != 1 || entries[0].Key != "scores/daily/2024-01-15/c3" {
				t.Errorf("ListAll daily partition = %+v, want single c3 entry", entries)
			}

			// Prefix ending mid-segment.
			entries, err = ListAll(ctx, s, "scores/alltime/dev_")
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(entries) != 1 || entries[0].Key != "scores/alltime/dev_b2" {
				t.Errorf("ListAll dev prefix = %+v, want single dev_b2 entry", entries)
			}

			entries, err = ListAll(ctx, s, "scores/")
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(entries) != 4 {
				t.Errorf("ListAll scores/ returned %d entries, want 4", len(entries))
			}
			for i := 1; i < len(entries); i++ {
				if entries[i-1].Key >= entries[i].Key {
					t.Errorf("ListAll not in ascending key order: %q before %q", entries[i-1].Key, entries[i].Key)
				}
			}
		})
	}
}

func TestStoreListEmptyPartition(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			page, err := s.List(ctx, "scores/daily/1999-01-01/", "", 10)
			if err != nil {
				t.Fatalf("List on empty partition failed: %v", err)
			}
			if len(page.Entries) != 0 || page.More {
				t.Errorf("List on empty partition = %+v, want empty page", page)
			}
		})
	}
}

func TestStoreListPagination(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 7; i++ {
				key := fmt.Sprintf("scores/alltime/k%02d", i)
				if err := s.Set(ctx, key, []byte("v")); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}

			var got []string
			cursor := ""
			pages := 0
			for {
				page, err := s.List(ctx, "scores/alltime/", cursor, 3)
				if err != nil {
					t.Fatalf("List failed: %v", err)
				}
				for _, e := range page.Entries {
					got = append(got, e.Key)
				}
				pages++
				if !page.More {
					break
				}
				cursor = page.Cursor
			}

			if len(got) != 7 {
				t.Errorf("Paginated scan returned %d keys, want 7", len(got))
			}
			if pages < 3 {
				t.Errorf("Paginated scan used %d pages, want at least 3 for limit=3", pages)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1] >= got[i] {
					t.Errorf("Scan out of order: %q before %q", got[i-1], got[i])
				}
			}
		})
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	for _, key := range []string{"", "../escape", "a//b", "a/./b", "a/../b"} {
		if err := s.Set(ctx, key, []byte("x")); err == nil {
			t.Errorf("Set(%q) succeeded, want error", key)
		}
	}
}
