package kvstore

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore persists each key as a JSON blob on disk under a base
// directory, with key segments mapped to subdirectories. It is the durable
// backend for single-host deployments; writes go through O_EXCL for the
// conditional create so racing processes on the same volume still get
// first-writer-wins.
type FileStore struct {
	baseDir string
}

const fileExt = ".json"

// NewFileStore creates the base directory if needed and returns a store
// rooted there.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Printf("Failed to create store directory %s: %v", baseDir, err)
		return nil, err
	}
	return &FileStore{baseDir: baseDir}, nil
}

// keyPath maps a key to its on-disk path. Keys with empty or dot-dot
// segments are rejected so a malformed key can never escape the base dir.
func (f *FileStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", errors.New("kvstore: empty key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.New("kvstore: invalid key segment in " + key)
		}
	}
	return filepath.Join(f.baseDir, filepath.FromSlash(key)+fileExt), nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		log.Printf("Failed to read store file %s: %v", path, err)
		return nil, err
	}
	return data, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	path, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Failed to create directory for %s: %v", path, err)
		return err
	}
	if err := os.WriteFile(path, value, 0644); err != nil {
		log.Printf("Failed to write store file %s: %v", path, err)
		return err
	}
	return nil
}

func (f *FileStore) SetIfAbsent(_ context.Context, key string, value []byte) error {
	path, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Failed to create directory for %s: %v", path, err)
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return ErrKeyExists
		}
		log.Printf("Failed to create store file %s: %v", path, err)
		return err
	}
	defer file.Close()
	if _, err := file.Write(value); err != nil {
		log.Printf("Failed to write store file %s: %v", path, err)
		return err
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	path, err := f.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove store file %s: %v", path, err)
		return err
	}
	return nil
}

func (f *FileStore) List(_ context.Context, prefix, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	// The prefix may end mid-segment (e.g. ".../dev_"), so walk the deepest
	// complete directory and filter reconstructed keys against the prefix.
	walkRoot := f.baseDir
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		walkRoot = filepath.Join(f.baseDir, filepath.FromSlash(prefix[:i]))
	}

	var keys []string
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, fileExt) {
			return nil
		}
		rel, err := filepath.Rel(f.baseDir, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), fileExt)
		if strings.HasPrefix(key, prefix) && key > cursor {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to walk store directory %s: %v", walkRoot, err)
		return Page{}, err
	}

	sort.Strings(keys)

	page := Page{}
	if len(keys) > limit {
		page.More = true
		keys = keys[:limit]
	}
	for _, k := range keys {
		val, err := f.Get(context.Background(), k)
		if err != nil {
			// Removed between walk and read; skip.
			continue
		}
		page.Entries = append(page.Entries, Entry{Key: k, Value: val})
	}
	if len(keys) > 0 {
		page.Cursor = keys[len(keys)-1]
	}
	return page, nil
}
