package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is an axis-aligned bounding box: min-x, min-y, max-x, max-y.
type BBox [4]float64

// Valid reports whether min <= max on both axes.
func (b BBox) Valid() bool {
	return b[0] <= b[2] && b[1] <= b[3]
}

// String renders the box as the comma-joined form the quads endpoint
// expects: "minx,miny,maxx,maxy".
func (b BBox) String() string {
	parts := make([]string, 4)
	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Mosaic is one catalog entry: a named group of quads covering one imagery
// epoch. Immutable once fetched.
type Mosaic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
}

// Quad identifies one downloadable tile. Quads are uniquely keyed by
// (MosaicID, ID); the cache and the walker never hold two records with the
// same key. Field names match the persisted cache file format.
type Quad struct {
	MosaicID       string  `json:"mosaic"`
	ID             string  `json:"id"`
	BBox           BBox    `json:"bbox"`
	PercentCovered float64 `json:"percent_covered"`
	DownloadURL    string  `json:"download_url"`
}

// Key returns the composite dedup key for the quad.
func (q Quad) Key() string {
	return fmt.Sprintf("%s/%s", q.MosaicID, q.ID)
}

// Store persists discovered quads between runs. Implemented by
// internal/store; declared here so the walker depends only on what it uses.
type Store interface {
	// Get returns the known quads for a mosaic, empty if none.
	Get(mosaicID string) []Quad

	// Put replaces the stored quads for a mosaic.
	Put(mosaicID string, quads []Quad)

	// Flush durably persists the whole store.
	Flush() error
}
