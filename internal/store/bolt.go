package store

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/asdine/storm/v3"
)

// All keys live in one bucket so Clear can wipe the whole store in one drop.
const boltBucket = "kv"

// BoltStore implements Store on top of a storm-managed BoltDB file. This is
// the durable backend; values survive process restarts, which is what makes
// offline reads possible.
type BoltStore struct {
	db *storm.DB
}

// NewBoltStore opens (or creates) the database file under dir.
func NewBoltStore(dir string) (*BoltStore, error) {
	db, err := storm.Open(filepath.Join(dir, "weatherapp.db"))
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get returns the value for key if present.
func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	var value []byte
	if err := s.db.Get(boltBucket, key, &value); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.db.Set(boltBucket, key, value)
}

// Clear drops the whole bucket. A store that was never written to has no
// bucket yet; that counts as already clear.
func (s *BoltStore) Clear(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := s.db.Drop(boltBucket); err != nil && !errors.Is(err, storm.ErrNotFound) {
		return err
	}
	return nil
}

// Close closes the underlying database file. Call during shutdown.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
