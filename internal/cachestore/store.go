// Package cachestore persists score cache snapshots in BadgerDB so a
// restarted server does not have to rediscover its transpositions.
//
// Each snapshot lives under its own name, usually the board geometry
// ("3x3k3"). Keys are "score/<name>/" followed by the 8-byte big-endian
// position key; values are JSON-encoded cache entries.
package cachestore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

const keyPrefix = "score/"

var ErrInvalidName = errors.New("invalid snapshot name")

// Config selects where the store lives.
type Config struct {
	Path       string `json:"path"`
	InMemory   bool   `json:"inMemory"`
	SyncWrites bool   `json:"syncWrites"`
}

// Store wraps a badger database holding cache snapshots.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// badgerLogger routes badger's own logging through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}

// Open opens or creates the store.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache store path is required unless inMemory is set")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	logger = logger.With().Str("component", "cachestore").Logger()
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func prefixFor(name string) ([]byte, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return []byte(keyPrefix + name + "/"), nil
}

func encodeKey(prefix []byte, key zobrist.Key) []byte {
	out := make([]byte, len(prefix)+8)
	copy(out, prefix)
	binary.BigEndian.PutUint64(out[len(prefix):], uint64(key))
	return out
}

// Save replaces the snapshot called name with the current contents of c.
func (s *Store) Save(ctx context.Context, name string, c *cache.ScoreCache) (int, error) {
	prefix, err := prefixFor(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.db.DropPrefix(prefix); err != nil {
		return 0, fmt.Errorf("drop old snapshot %s: %w", name, err)
	}

	records := c.Snapshot()
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		val, err := json.Marshal(r.Entry)
		if err != nil {
			return 0, fmt.Errorf("encode entry %s: %w", r.Key, err)
		}
		if err := wb.Set(encodeKey(prefix, r.Key), val); err != nil {
			return 0, fmt.Errorf("write entry %s: %w", r.Key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush snapshot %s: %w", name, err)
	}

	s.logger.Info().Str("snapshot", name).Int("entries", len(records)).Msg("saved score cache")
	return len(records), nil
}

// Load restores the snapshot called name into c. A missing snapshot loads
// nothing and is not an error.
func (s *Store) Load(ctx context.Context, name string, c *cache.ScoreCache) (int, error) {
	records, err := s.Records(ctx, name)
	if err != nil {
		return 0, err
	}
	c.Restore(records)
	s.logger.Info().Str("snapshot", name).Int("entries", len(records)).Msg("restored score cache")
	return len(records), nil
}

// Records reads a snapshot without loading it anywhere.
func (s *Store) Records(ctx context.Context, name string) ([]cache.Record, error) {
	prefix, err := prefixFor(name)
	if err != nil {
		return nil, err
	}
	var out []cache.Record
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			k := item.Key()
			if len(k) != len(prefix)+8 {
				return fmt.Errorf("malformed key %q in snapshot %s", k, name)
			}
			r := cache.Record{Key: zobrist.Key(binary.BigEndian.Uint64(k[len(prefix):]))}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r.Entry)
			}); err != nil {
				return fmt.Errorf("decode entry %s: %w", r.Key, err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Names lists the stored snapshots.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			name, _, ok := strings.Cut(rest, "/")
			if ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return nil
	})
	return names, err
}

// Delete drops a snapshot.
func (s *Store) Delete(name string) error {
	prefix, err := prefixFor(name)
	if err != nil {
		return err
	}
	return s.db.DropPrefix(prefix)
}
