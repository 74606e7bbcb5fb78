package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/wmgeolab/NICFI-download/internal/catalog"
	"github.com/wmgeolab/NICFI-download/internal/config"
	"github.com/wmgeolab/NICFI-download/internal/downloader"
	planethttp "github.com/wmgeolab/NICFI-download/internal/http"
	"github.com/wmgeolab/NICFI-download/internal/progress"
	"github.com/wmgeolab/NICFI-download/internal/store"
)

// Summary is the run-level accounting returned by Run.
type Summary struct {
	Mosaics       int
	FailedMosaics int
	Downloaded    int
	Skipped       int
	Failed        int
	Bytes         int64
}

// App sequences the walker and downloader per mosaic. It owns the store
// and output bucket lifecycles.
type App struct {
	cfg    config.Config
	log    *zap.Logger
	store  store.Store
	bucket *blob.Bucket
	walker *catalog.Walker
	dl     *downloader.Downloader
	runID  string
}

// New wires up the application from config, writing quads under
// cfg.OutputDir. The token is passed in rather than resolved here so tests
// can inject one.
func New(cfg config.Config, token string, log *zap.Logger) (*App, error) {
	bucket, err := fileblob.OpenBucket(cfg.OutputDir, &fileblob.Options{
		CreateDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open output dir: %w", err)
	}
	return NewWithBucket(cfg, token, bucket, log)
}

// NewWithBucket is like New but writes into the given bucket. Tests use it
// with memblob.
func NewWithBucket(cfg config.Config, token string, bucket *blob.Bucket, log *zap.Logger) (*App, error) {
	st, err := store.Open(cfg.CacheBackend, cfg.CachePath, log)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("open quad cache: %w", err)
	}

	client := planethttp.NewClient(planethttp.Options{
		Token:   token,
		Timeout: cfg.Timeout,
	})

	walker := catalog.NewWalker(client, st, log, catalog.Options{
		BaseURL:    cfg.APIBaseURL,
		NamePrefix: cfg.MosaicPrefix,
		PageSize:   cfg.PageSize,
		CatalogPolicy: planethttp.Policy{
			Attempts:    cfg.Catalog.Attempts,
			Backoff:     cfg.Catalog.Backoff,
			MaxBackoff:  cfg.Catalog.MaxBackoff,
			Exponential: cfg.Catalog.Exponential,
		},
		PagePolicy: planethttp.Policy{
			Attempts:    cfg.Quads.Attempts,
			Backoff:     cfg.Quads.Backoff,
			MaxBackoff:  cfg.Quads.MaxBackoff,
			Exponential: cfg.Quads.Exponential,
		},
	})

	runID := uuid.NewString()

	return &App{
		cfg:    cfg,
		log:    log.With(zap.String("run_id", runID)),
		store:  st,
		bucket: bucket,
		walker: walker,
		dl:     downloader.New(client, bucket, log),
		runID:  runID,
	}, nil
}

// Close flushes and releases the store and output bucket.
func (a *App) Close() {
	if err := a.store.Flush(); err != nil {
		a.log.Error("final cache flush failed", zap.Error(err))
	}
	a.store.Close()
	a.bucket.Close()
}

// Run lists the matching mosaics and, for each one, lists and downloads its
// quads. A failure inside one mosaic is logged and the run moves on; only a
// mosaic listing failure aborts, since nothing can proceed without it.
func (a *App) Run(ctx context.Context, bbox catalog.BBox) (Summary, error) {
	var sum Summary

	if !bbox.Valid() {
		return sum, fmt.Errorf("invalid bounding box: %s", bbox)
	}

	mosaics, err := a.walker.ListMosaics(ctx)
	if err != nil {
		return sum, err
	}
	sum.Mosaics = len(mosaics)

	for _, m := range mosaics {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		a.log.Info("processing mosaic",
			zap.String("mosaic", m.Name),
			zap.String("id", m.ID))

		quads, err := a.walker.ListQuads(ctx, m, bbox)
		if err != nil {
			// Records were still returned; only persistence failed.
			a.log.Error("quad cache persist failed",
				zap.String("mosaic", m.Name),
				zap.Error(err))
		}
		if len(quads) == 0 {
			sum.FailedMosaics++
			a.log.Warn("no quads for mosaic", zap.String("mosaic", m.Name))
			continue
		}

		var rep *progress.Reporter
		if a.cfg.Progress {
			rep = progress.NewReporter(progress.Options{
				Total: len(quads),
				Label: m.Name,
			})
			rep.Start()
		}

		outcomes := a.dl.DownloadAll(ctx, quads, downloader.Options{
			Workers:  a.cfg.Workers,
			Prefix:   m.Name,
			Progress: rep,
		})

		if rep != nil {
			rep.Stop()
		}

		for _, o := range outcomes {
			switch o.Status {
			case downloader.StatusDownloaded:
				sum.Downloaded++
				sum.Bytes += o.Bytes
			case downloader.StatusSkipped:
				sum.Skipped++
			case downloader.StatusFailed:
				sum.Failed++
			}
		}
	}

	a.log.Info("run complete",
		zap.Int("mosaics", sum.Mosaics),
		zap.Int("downloaded", sum.Downloaded),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Int64("bytes", sum.Bytes))

	return sum, nil
}
