// Package geometry loads the region of interest.
//
// The only geometry work the program needs is the envelope of the region:
// the catalog API filters quads by bounding box, not by exact shape. Load
// walks every coordinate in a GeoJSON file and returns the axis-aligned
// box enclosing them all.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/wmgeolab/NICFI-download/internal/catalog"
)

type geojson struct {
	Type        string          `json:"type"`
	Features    []geojson       `json:"features"`
	Geometry    *geojson        `json:"geometry"`
	Geometries  []geojson       `json:"geometries"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Load reads a GeoJSON file and returns the bounding box of everything in
// it. FeatureCollections, Features, GeometryCollections and bare geometries
// are all accepted.
func Load(path string) (catalog.BBox, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.BBox{}, fmt.Errorf("read region file: %w", err)
	}
	return Envelope(data)
}

// Envelope computes the bounding box of a GeoJSON document.
func Envelope(data []byte) (catalog.BBox, error) {
	var g geojson
	if err := json.Unmarshal(data, &g); err != nil {
		return catalog.BBox{}, fmt.Errorf("parse region geojson: %w", err)
	}

	bbox := catalog.BBox{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	if err := extend(&g, &bbox); err != nil {
		return catalog.BBox{}, err
	}

	if math.IsInf(bbox[0], 1) {
		return catalog.BBox{}, errors.New("region geojson contains no coordinates")
	}
	return bbox, nil
}

func extend(g *geojson, bbox *catalog.BBox) error {
	for i := range g.Features {
		if err := extend(&g.Features[i], bbox); err != nil {
			return err
		}
	}
	if g.Geometry != nil {
		if err := extend(g.Geometry, bbox); err != nil {
			return err
		}
	}
	for i := range g.Geometries {
		if err := extend(&g.Geometries[i], bbox); err != nil {
			return err
		}
	}
	if len(g.Coordinates) > 0 {
		return extendCoords(g.Coordinates, bbox)
	}
	return nil
}

// extendCoords recurses through nested coordinate arrays until it reaches
// [x, y] positions.
func extendCoords(raw json.RawMessage, bbox *catalog.BBox) error {
	var pos []float64
	if err := json.Unmarshal(raw, &pos); err == nil {
		if len(pos) < 2 {
			return fmt.Errorf("position with %d coordinates", len(pos))
		}
		bbox[0] = math.Min(bbox[0], pos[0])
		bbox[1] = math.Min(bbox[1], pos[1])
		bbox[2] = math.Max(bbox[2], pos[0])
		bbox[3] = math.Max(bbox[3], pos[1])
		return nil
	}

	var nested []json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return fmt.Errorf("unexpected coordinates structure: %w", err)
	}
	for _, inner := range nested {
		if err := extendCoords(inner, bbox); err != nil {
			return err
		}
	}
	return nil
}
