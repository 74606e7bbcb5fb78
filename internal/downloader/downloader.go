package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sync"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/wmgeolab/NICFI-download/internal/catalog"
	planethttp "github.com/wmgeolab/NICFI-download/internal/http"
	"github.com/wmgeolab/NICFI-download/internal/progress"
)

// Status classifies the result of one quad download.
type Status int

const (
	// StatusDownloaded means the quad was fetched and written.
	StatusDownloaded Status = iota

	// StatusSkipped means the destination already existed; no request was
	// made. This is the resumability guarantee: a re-run costs nothing.
	StatusSkipped

	// StatusFailed means the quad could not be downloaded. The destination
	// holds no partial file.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the per-quad result of a DownloadAll call.
type Outcome struct {
	Quad   catalog.Quad
	Status Status
	Key    string // destination key within the bucket
	Bytes  int64  // bytes written, zero unless downloaded
	Err    error  // nil unless failed
}

// Options configures a DownloadAll call.
type Options struct {
	// Workers is the number of parallel downloads.
	// Default: 5
	Workers int

	// Prefix names the destination directory for the batch, usually the
	// mosaic name. Keys take the form "<prefix>/<prefix>_<quadID>.tif".
	Prefix string

	// Progress is an optional progress reporter.
	Progress *progress.Reporter
}

// Downloader writes quads into a blob bucket with bounded parallelism and
// idempotent skip-if-present semantics.
type Downloader struct {
	client *planethttp.Client
	bucket *blob.Bucket
	log    *zap.Logger
}

// New creates a downloader writing through the given client and bucket.
func New(client *planethttp.Client, bucket *blob.Bucket, log *zap.Logger) *Downloader {
	return &Downloader{
		client: client,
		bucket: bucket,
		log:    log,
	}
}

// Key returns the deterministic destination key for a quad, so re-runs
// address the same path.
func Key(prefix string, q catalog.Quad) string {
	return path.Join(prefix, fmt.Sprintf("%s_%s.tif", prefix, q.ID))
}

// DownloadAll downloads every quad, up to opts.Workers at a time, and
// returns one Outcome per quad. It returns only after every worker has
// finished; completion order is whichever quad finishes first.
func (d *Downloader) DownloadAll(ctx context.Context, quads []catalog.Quad, opts Options) []Outcome {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}

	jobs := make(chan catalog.Quad)
	results := make(chan Outcome, len(quads))
	var wg sync.WaitGroup

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				results <- d.downloadOne(ctx, q, opts)
			}
		}()
	}

	for _, q := range quads {
		jobs <- q
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]Outcome, 0, len(quads))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// downloadOne fetches a single quad into the bucket. On any transfer error
// the blob writer is aborted, so no partial object lands at the final key.
func (d *Downloader) downloadOne(ctx context.Context, q catalog.Quad, opts Options) Outcome {
	out := Outcome{Quad: q, Key: Key(opts.Prefix, q)}

	if _, err := url.ParseRequestURI(q.DownloadURL); err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("malformed download url %q: %w", q.DownloadURL, err)
		if opts.Progress != nil {
			opts.Progress.QuadFailed()
		}
		d.log.Error("bad download url",
			zap.String("quad", q.Key()),
			zap.String("url", q.DownloadURL))
		return out
	}

	exists, err := d.bucket.Exists(ctx, out.Key)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("check destination: %w", err)
		if opts.Progress != nil {
			opts.Progress.QuadFailed()
		}
		return out
	}
	if exists {
		out.Status = StatusSkipped
		if opts.Progress != nil {
			opts.Progress.QuadSkipped()
		}
		d.log.Debug("already downloaded", zap.String("key", out.Key))
		return out
	}

	// Single attempt: a failed download is logged and reported, never
	// retried over a possibly half-written destination.
	body, err := d.client.Stream(ctx, q.DownloadURL)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("fetch quad: %w", err)
		if opts.Progress != nil {
			opts.Progress.QuadFailed()
		}
		d.log.Error("download failed",
			zap.String("quad", q.Key()),
			zap.String("url", q.DownloadURL),
			zap.Error(err))
		return out
	}
	defer body.Close()

	n, err := d.write(ctx, out.Key, body)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		if opts.Progress != nil {
			opts.Progress.QuadFailed()
		}
		d.log.Error("write failed",
			zap.String("quad", q.Key()),
			zap.String("key", out.Key),
			zap.Error(err))
		return out
	}

	out.Status = StatusDownloaded
	out.Bytes = n
	if opts.Progress != nil {
		opts.Progress.QuadCompleted(n)
	}
	d.log.Info("downloaded",
		zap.String("key", out.Key),
		zap.Int64("bytes", n))
	return out
}

// write streams body into the bucket at key. The writer's context is
// cancelled before Close on error so the blob is aborted rather than
// committed; any partial data is deleted best-effort.
func (d *Downloader) write(ctx context.Context, key string, body io.Reader) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := d.bucket.NewWriter(wctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("create writer: %w", err)
	}

	n, err := io.Copy(w, body)
	if err != nil {
		cancel()
		w.Close()
		d.bucket.Delete(ctx, key) // best effort
		return 0, fmt.Errorf("stream quad: %w", err)
	}

	if err := w.Close(); err != nil {
		d.bucket.Delete(ctx, key) // best effort
		return 0, fmt.Errorf("commit quad: %w", err)
	}

	return n, nil
}
