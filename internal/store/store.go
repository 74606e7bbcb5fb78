package store

import (
	"github.com/wmgeolab/NICFI-download/internal/catalog"
)

// Store is the persistent quad cache: mosaic id -> ordered quad records.
// Entries grow monotonically within a run; Put replaces a mosaic's records
// wholesale and Flush makes the whole store durable. Implementations must
// serialize Flush and survive a crash mid-flush without corrupting the
// backing file.
type Store interface {
	catalog.Store

	// Close releases the backing resources. Close does not flush.
	Close() error
}
