// Package http provides the retrying HTTP client behind every Planet API
// call.
//
// This package handles:
//   - Bearer-token auth via the "api-key" Authorization scheme
//   - Retry with per-caller backoff policies (constant for the catalog
//     root, exponential for quad pages)
//   - Single-attempt streaming GETs for quad downloads
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Token:   apiKey,
//	    Timeout: 120 * time.Second,
//	})
//
//	// Catalog listing with retries
//	body, err := client.Get(ctx, url, nil, http.CatalogPolicy())
//
//	// Tile download, one attempt
//	rc, err := client.Stream(ctx, downloadURL)
//	defer rc.Close()
package http
