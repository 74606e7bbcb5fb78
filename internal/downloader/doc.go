// Package downloader performs bulk quad downloads with bounded parallelism.
//
// Workers receive quads from a channel, check for an existing destination
// object, and stream the GeoTIFF into the bucket in one attempt. A quad
// whose destination already exists costs no network call, which is what
// makes re-running the whole program after a crash cheap.
//
// Failed transfers abort the blob writer before it commits, so the
// destination key never holds a truncated file.
package downloader
