// Package catalog models the Planet mosaics API and walks it.
//
// A Mosaic is one imagery epoch; a Quad is one downloadable tile within it.
// The Walker paginates both listings via each response's _links._next URL,
// filters mosaics by name prefix, and deduplicates quads against the
// persistent store by (mosaic id, quad id).
//
// Mosaic listing failure is fatal. Quad page failure is not: the walker
// returns and persists whatever it gathered, so the next run resumes from
// the cache instead of re-listing known quads.
package catalog
