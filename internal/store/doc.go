// Package store persists discovered quad records between runs.
//
// Two backends implement the same Store interface: a single JSON file
// (the default, human-inspectable, flushed atomically via temp-then-rename)
// and a bbolt database for large catalogs. Open selects one from config.
package store
