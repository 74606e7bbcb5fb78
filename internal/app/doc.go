// Package app wires the catalog walker, quad cache, and downloader into a
// single run: for each matching mosaic, list its quads within the region
// bounding box, persist what was found, and download whatever is not
// already on disk. One bad mosaic never aborts the batch.
package app
