package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wmgeolab/NICFI-download/internal/app"
	"github.com/wmgeolab/NICFI-download/internal/config"
	"github.com/wmgeolab/NICFI-download/internal/geometry"
	"github.com/wmgeolab/NICFI-download/internal/logger"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitInvalidConfig = 2
	ExitGeometryError = 3
	ExitCacheError    = 4
	ExitCatalogError  = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("quadfetch", flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	region := fs.String("region", "", "Region GeoJSON file (overrides config)")
	output := fs.String("output", "", "Output directory (overrides config)")
	workers := fs.Int("workers", 0, "Parallel downloads (overrides config)")
	prefix := fs.String("prefix", "", "Mosaic name prefix filter (overrides config)")
	showProgress := fs.Bool("progress", false, "Show download progress")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: quadfetch [options]

Download NICFI basemap quads intersecting a region of interest.
Already-downloaded quads are skipped, so re-running after a crash
resumes where the previous run stopped.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidConfig
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidConfig
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidConfig
	}
	if *region != "" {
		cfg.RegionFile = *region
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	if *prefix != "" {
		cfg.MosaicPrefix = *prefix
	}
	if *showProgress {
		cfg.Progress = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidConfig
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}
	defer log.Sync()

	token, err := cfg.APIKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidConfig
	}

	bbox, err := geometry.Load(cfg.RegionFile)
	if err != nil {
		log.Error("load region", zap.Error(err))
		return ExitGeometryError
	}
	log.Info("region loaded",
		zap.String("file", cfg.RegionFile),
		zap.String("bbox", bbox.String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[quadfetch] Received interrupt, shutting down...")
		cancel()
	}()

	a, err := app.New(cfg, token, log)
	if err != nil {
		log.Error("startup", zap.Error(err))
		return ExitCacheError
	}
	defer a.Close()

	sum, err := a.Run(ctx, bbox)
	if err != nil {
		log.Error("run aborted", zap.Error(err))
		return ExitCatalogError
	}

	fmt.Fprintf(os.Stderr, "[quadfetch] %d mosaics | %d downloaded | %d skipped | %d failed\n",
		sum.Mosaics, sum.Downloaded, sum.Skipped, sum.Failed)

	return ExitSuccess
}
