// Package archive persists a run's outputs as UTF-8 text files under one
// directory per analysis date. Existence probes on deterministic filenames
// are what make the whole pipeline idempotent and resumable.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kolpulse/kolpulse/internal/market"
)

// ErrNotFound is returned when a logical key has no file in the bucket.
var ErrNotFound = errors.New("archive: key not found")

// Store is the root of all date buckets.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir. The directory itself is created
// lazily, when the first bucket is opened.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Bucket ensures the per-date directory for res exists and returns it.
func (s *Store) Bucket(res market.Resolution) (Bucket, error) {
	dir := filepath.Join(s.root, res.BucketDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Bucket{}, fmt.Errorf("create bucket %s: %w", dir, err)
	}
	return Bucket{DateKey: res.DateKey, Dir: dir}, nil
}

// Bucket is one analysis date's archive directory.
type Bucket struct {
	DateKey string
	Dir     string
}

// Exists probes whether key has already been written.
func (b Bucket) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(b.Dir, key))
	return err == nil
}

// Read returns the text stored under key, or ErrNotFound.
func (b Bucket) Read(key string) (string, error) {
	data, err := os.ReadFile(filepath.Join(b.Dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), nil
}

// Write stores text under key, replacing any previous content. Concurrent
// writers on the same key produce identical content, so the last write
// winning is harmless.
func (b Bucket) Write(key, text string) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.Dir, err)
	}
	if err := os.WriteFile(filepath.Join(b.Dir, key), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Append adds text to the end of key, creating it if absent.
func (b Bucket) Append(key, text string) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(b.Dir, key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("append %s: %w", key, err)
	}
	return nil
}

// List returns the keys in the bucket matching prefix and suffix, sorted.
func (b Bucket) List(prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list bucket %s: %w", b.Dir, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
