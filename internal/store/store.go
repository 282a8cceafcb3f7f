// internal/store/store.go
// Persisted blob store: whole-collection JSON snapshots over a key-value
// backend. Mirrors the client-side storage contract the platform was built
// on: loads never fail outward, corrupt or missing blobs fall back to the
// caller's default, saves are best-effort write-through.

package store

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// ErrKeyNotFound is returned by KV backends for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal backend contract the store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LoadResult describes how a Load resolved.
type LoadResult int

const (
	// LoadOK means the blob decoded into the destination value.
	LoadOK LoadResult = iota
	// LoadMissing means the key was absent; the fallback value was returned.
	LoadMissing
	// LoadCorrupt means the blob existed but did not decode into the
	// expected shape; the fallback value was returned.
	LoadCorrupt
)

// Store reads and writes JSON blobs through a KV backend.
type Store struct {
	kv  KV
	log *zap.SugaredLogger
}

func New(kv KV, log *zap.SugaredLogger) *Store {
	return &Store{kv: kv, log: log}
}

// Load decodes the blob at key into a fresh value of type T. On a missing
// key, undecodable JSON, or a shape mismatch (e.g. an object where an array
// was expected) it returns the fallback and the reason. It never returns an
// error: persistence problems are recovered locally and logged.
func Load[T any](ctx context.Context, s *Store, key string, fallback T) (T, LoadResult) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.log.Warnw("blob read failed, using fallback", "key", key, "error", err)
		}
		return fallback, LoadMissing
	}

	// Decode into a fresh value so a partial decode cannot leak into the
	// returned result.
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Warnw("blob decode failed, using fallback", "key", key, "error", err)
		return fallback, LoadCorrupt
	}
	return out, LoadOK
}

// Save serializes value and writes it through. Failures are logged and
// swallowed: persistence here is best-effort, not transactional.
func (s *Store) Save(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warnw("blob encode failed, skipping save", "key", key, "error", err)
		return
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		s.log.Warnw("blob write failed", "key", key, "error", err)
	}
}
