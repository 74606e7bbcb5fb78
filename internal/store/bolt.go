package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/wmgeolab/NICFI-download/internal/catalog"
)

var quadsBucket = []byte("quads")

// BoltStore keeps the quad cache in a bbolt database, one key per mosaic
// with a JSON-encoded record array as the value. Every Put commits a
// transaction, so Flush has nothing left to do; bolt's own write-ahead
// semantics give the crash safety the JSON backend gets from
// write-temp-then-rename.
type BoltStore struct {
	db  *bolt.DB
	log *zap.Logger
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string, log *zap.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open quad cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(quadsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init quad cache db: %w", err)
	}

	return &BoltStore{db: db, log: log}, nil
}

// Get returns the known quads for a mosaic, empty if none. A corrupt value
// is logged and treated as absent.
func (s *BoltStore) Get(mosaicID string) []catalog.Quad {
	var quads []catalog.Quad

	s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(quadsBucket).Get([]byte(mosaicID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &quads); err != nil {
			s.log.Warn("corrupt quad cache entry, ignoring",
				zap.String("mosaic", mosaicID),
				zap.Error(err))
			quads = nil
		}
		return nil
	})

	return quads
}

// Put replaces the stored quads for a mosaic.
func (s *BoltStore) Put(mosaicID string, quads []catalog.Quad) {
	data, err := json.Marshal(quads)
	if err != nil {
		s.log.Error("encode quads for cache", zap.String("mosaic", mosaicID), zap.Error(err))
		return
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(quadsBucket).Put([]byte(mosaicID), data)
	})
	if err != nil {
		s.log.Error("write quads to cache", zap.String("mosaic", mosaicID), zap.Error(err))
	}
}

// Flush is a no-op: Put commits transactionally.
func (s *BoltStore) Flush() error {
	return nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
