// Package store serializes access to a ternary search trie so it can back a
// concurrent service.
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/kumarlokesh/sysd/exercises/tst/internal/tst"
)

var (
	// ErrNotFound is returned when a key is not in the store
	ErrNotFound = tst.ErrNotFound
	// ErrEmptyKey is returned for zero-length keys
	ErrEmptyKey = tst.ErrEmptyKey
	// ErrKeyTooLong is returned for keys above the configured maximum length
	ErrKeyTooLong = errors.New("key too long")
)

// Entry is one key and its value
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Store defines the operations a keyed value service needs
type Store interface {
	Put(ctx context.Context, key string, value []byte, overwrite bool) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
	Size(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// TrieStore is a Store backed by a ternary search trie guarded by a
// read-write mutex.
type TrieStore struct {
	mu        sync.RWMutex
	trie      *tst.Trie[[]byte]
	maxKeyLen int
	logger    zerolog.Logger
}

var _ Store = (*TrieStore)(nil)

// NewTrieStore creates an empty store accepting keys up to maxKeyLen bytes.
// A non-positive maxKeyLen disables the limit.
func NewTrieStore(logger zerolog.Logger, maxKeyLen int) *TrieStore {
	return &TrieStore{
		trie:      tst.New[[]byte](tst.WithLogger(logger.With().Str("component", "tst").Logger())),
		maxKeyLen: maxKeyLen,
		logger:    logger.With().Str("component", "store").Logger(),
	}
}

func (s *TrieStore) checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if s.maxKeyLen > 0 && len(key) > s.maxKeyLen {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrKeyTooLong, len(key), s.maxKeyLen)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Put stores value under key. An existing value is only replaced when
// overwrite is set. It reports whether the key was new.
func (s *TrieStore) Put(ctx context.Context, key string, value []byte, overwrite bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.checkKey(key); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, pos, err := s.trie.Insert(key, clone(value))
	if err != nil {
		return false, fmt.Errorf("failed to insert key: %w", err)
	}
	if !created && overwrite {
		s.trie.SetValue(pos, clone(value))
	}
	s.logger.Debug().
		Int("key_len", len(key)).
		Bool("created", created).
		Bool("overwrite", overwrite).
		Msg("put")
	return created, nil
}

// Get returns a copy of the value stored under key.
func (s *TrieStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, err := s.trie.Find(key)
	if err != nil {
		return nil, err
	}
	return clone(s.trie.Value(pos)), nil
}

// Delete removes key and returns the value it held.
func (s *TrieStore) Delete(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.trie.Remove(key)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("key_len", len(key)).Msg("deleted")
	return old, nil
}

// List returns every entry whose key starts with prefix, sorted by key.
func (s *TrieStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string][]byte)
	keys := make([]string, 0)
	var walkErr error
	s.trie.WalkPrefix(prefix, func(t *tst.Trie[[]byte], pos tst.Position, key string) bool {
		if walkErr = ctx.Err(); walkErr != nil {
			return false
		}
		keys = append(keys, key)
		values[key] = clone(t.Value(pos))
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	slices.Sort(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: values[k]})
	}
	return entries, nil
}

// Size returns the number of keys in the store.
func (s *TrieStore) Size(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trie.Size(), nil
}

// Ping checks the structural invariants of the underlying trie.
func (s *TrieStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trie.Validate()
}

// Load reads one entry per line from r and inserts it. A line is either a
// bare key, stored with an empty value, or a key and a value separated by a
// tab. Blank lines are skipped and existing keys keep their value. It returns
// the number of keys created.
func (s *TrieStore) Load(ctx context.Context, r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return created, err
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		key, value, _ := strings.Cut(text, "\t")
		if err := s.checkKey(key); err != nil {
			return created, fmt.Errorf("line %d: %w", line, err)
		}
		ok, _, err := s.trie.Insert(key, []byte(value))
		if err != nil {
			return created, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			created++
		}
	}
	if err := scanner.Err(); err != nil {
		return created, fmt.Errorf("failed to read entries: %w", err)
	}

	s.logger.Info().Int("lines", line).Int("created", created).Msg("loaded entries")
	return created, nil
}

// Reset drops every key and returns how many there were.
func (s *TrieStore) Reset(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	s.trie.Destroy(func([]byte) { dropped++ })
	s.logger.Info().Int("dropped", dropped).Msg("store reset")
	return dropped, nil
}
