package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	planethttp "github.com/wmgeolab/NICFI-download/internal/http"
)

// Wire format of the mosaics API. Pagination is driven entirely by the
// _links._next URL in each response; the first page is the only request
// that carries query parameters.
type mosaicPage struct {
	Mosaics []Mosaic  `json:"mosaics"`
	Links   pageLinks `json:"_links"`
}

type quadPage struct {
	Items []quadItem `json:"items"`
	Links pageLinks  `json:"_links"`
}

type quadItem struct {
	ID             string    `json:"id"`
	BBox           []float64 `json:"bbox"`
	PercentCovered float64   `json:"percent_covered"`
	Links          itemLinks `json:"_links"`
}

type pageLinks struct {
	Next string `json:"_next"`
}

type itemLinks struct {
	Download string `json:"download"`
}

// Options configures the walker.
type Options struct {
	// BaseURL is the mosaics API root, e.g.
	// "https://api.planet.com/basemaps/v1".
	BaseURL string

	// NamePrefix filters mosaics by name. Default: "nicfi".
	NamePrefix string

	// PageSize is the _page_size hint sent on the first quads page.
	// Default: 50
	PageSize int

	// CatalogPolicy is the retry policy for mosaic listing pages.
	CatalogPolicy planethttp.Policy

	// PagePolicy is the retry policy for quad listing pages.
	PagePolicy planethttp.Policy
}

// Walker paginates the mosaics catalog, deduplicating quads against the
// persistent store as it goes.
type Walker struct {
	client *planethttp.Client
	store  Store
	log    *zap.Logger
	opts   Options
}

// NewWalker creates a walker over the given API client and store.
func NewWalker(client *planethttp.Client, store Store, log *zap.Logger, opts Options) *Walker {
	if opts.NamePrefix == "" {
		opts.NamePrefix = "nicfi"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.CatalogPolicy.Attempts == 0 {
		opts.CatalogPolicy = planethttp.CatalogPolicy()
	}
	if opts.PagePolicy.Attempts == 0 {
		opts.PagePolicy = planethttp.PagePolicy()
	}

	return &Walker{
		client: client,
		store:  store,
		log:    log,
		opts:   opts,
	}
}

// ListMosaics returns all mosaics whose name carries the configured prefix,
// following _links._next until absent. Retry exhaustion on any page is
// fatal: the mosaic list is a prerequisite for everything else.
func (w *Walker) ListMosaics(ctx context.Context) ([]Mosaic, error) {
	var mosaics []Mosaic

	next := strings.TrimSuffix(w.opts.BaseURL, "/") + "/mosaics"
	for next != "" {
		body, err := w.client.Get(ctx, next, nil, w.opts.CatalogPolicy)
		if err != nil {
			return nil, fmt.Errorf("list mosaics: %w", err)
		}

		var page mosaicPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode mosaics page: %w", err)
		}

		for _, m := range page.Mosaics {
			if strings.HasPrefix(m.Name, w.opts.NamePrefix) {
				mosaics = append(mosaics, m)
			}
		}

		next = page.Links.Next
	}

	w.log.Info("listed mosaics",
		zap.String("prefix", w.opts.NamePrefix),
		zap.Int("count", len(mosaics)))

	return mosaics, nil
}

// ListQuads returns every known quad of the mosaic intersecting bbox,
// seeding from the store and appending newly discovered records in page
// order. If a page's retries are exhausted the quads gathered so far are
// returned rather than failing the mosaic. The updated record list is
// persisted before returning either way; a persistence failure is returned
// alongside the records so the caller can still download them.
func (w *Walker) ListQuads(ctx context.Context, mosaic Mosaic, bbox BBox) ([]Quad, error) {
	quads := w.store.Get(mosaic.ID)
	seen := make(map[string]struct{}, len(quads))
	for _, q := range quads {
		seen[q.Key()] = struct{}{}
	}

	// Only the first page carries query parameters; _links._next URLs are
	// self-describing.
	query := url.Values{
		"bbox":       []string{bbox.String()},
		"_page_size": []string{strconv.Itoa(w.opts.PageSize)},
	}
	next := fmt.Sprintf("%s/mosaics/%s/quads", strings.TrimSuffix(w.opts.BaseURL, "/"), mosaic.ID)

	added := 0
	for next != "" {
		body, err := w.client.Get(ctx, next, query, w.opts.PagePolicy)
		if err != nil {
			w.log.Warn("quad page fetch failed, keeping partial results",
				zap.String("mosaic", mosaic.Name),
				zap.String("url", next),
				zap.Error(err))
			break
		}
		query = nil

		var page quadPage
		if err := json.Unmarshal(body, &page); err != nil {
			w.log.Warn("quad page decode failed, keeping partial results",
				zap.String("mosaic", mosaic.Name),
				zap.Error(err))
			break
		}

		for _, item := range page.Items {
			if item.Links.Download == "" {
				continue
			}
			q := Quad{
				MosaicID:       mosaic.ID,
				ID:             item.ID,
				PercentCovered: item.PercentCovered,
				DownloadURL:    item.Links.Download,
			}
			copy(q.BBox[:], item.BBox)
			if _, ok := seen[q.Key()]; ok {
				continue
			}
			seen[q.Key()] = struct{}{}
			quads = append(quads, q)
			added++
		}

		next = page.Links.Next
	}

	w.store.Put(mosaic.ID, quads)
	if err := w.store.Flush(); err != nil {
		return quads, fmt.Errorf("persist quads for %s: %w", mosaic.ID, err)
	}

	w.log.Info("listed quads",
		zap.String("mosaic", mosaic.Name),
		zap.Int("known", len(quads)),
		zap.Int("new", added))

	return quads, nil
}
