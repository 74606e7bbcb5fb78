package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/wmgeolab/NICFI-download/internal/catalog"
)

// JSONStore keeps the quad cache in a single JSON file: an object mapping
// mosaic id to an array of quad records. Loaded once at open; Flush writes
// the whole store to a temp file and renames it over the old one, so a
// crash mid-flush leaves either the old file or the new one, never a
// half-written mix.
type JSONStore struct {
	mu    sync.Mutex
	path  string
	log   *zap.Logger
	quads map[string][]catalog.Quad
}

// OpenJSON loads the store from path. A missing file yields an empty store;
// a corrupt one is logged loudly and treated as empty rather than aborting
// the run.
func OpenJSON(path string, log *zap.Logger) (*JSONStore, error) {
	s := &JSONStore{
		path:  path,
		log:   log,
		quads: make(map[string][]catalog.Quad),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read quad cache: %w", err)
	}

	if err := json.Unmarshal(data, &s.quads); err != nil {
		log.Warn("quad cache is corrupt, starting from an empty cache",
			zap.String("path", path),
			zap.Error(err))
		s.quads = make(map[string][]catalog.Quad)
	}

	return s, nil
}

// Get returns the known quads for a mosaic, empty if none. The returned
// slice is a copy; callers cannot mutate the cache through it.
func (s *JSONStore) Get(mosaicID string) []catalog.Quad {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.quads[mosaicID]
	if len(stored) == 0 {
		return nil
	}
	out := make([]catalog.Quad, len(stored))
	copy(out, stored)
	return out
}

// Put replaces the stored quads for a mosaic.
func (s *JSONStore) Put(mosaicID string, quads []catalog.Quad) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]catalog.Quad, len(quads))
	copy(stored, quads)
	s.quads[mosaicID] = stored
}

// Flush durably persists the entire store. Idempotent; only one flush runs
// at a time.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.quads, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quad cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write quad cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace quad cache: %w", err)
	}

	return nil
}

// Close releases nothing for the JSON backend.
func (s *JSONStore) Close() error {
	return nil
}
