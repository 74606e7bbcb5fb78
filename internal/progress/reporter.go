package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Total is the number of quads queued for download.
	Total int

	// Label identifies the batch being reported, usually the mosaic name.
	Label string

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter outputs human-readable download progress.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	downloaded atomic.Int32
	skipped    atomic.Int32
	failed     atomic.Int32
	bytes      atomic.Int64
	startTime  time.Time
	stopCh     chan struct{}
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.startTime = time.Now()

	fmt.Fprintf(r.opts.Output, "[quadfetch] %s: %d quads queued\n", r.opts.Label, r.opts.Total)

	go r.updateLoop()
}

// Stop stops the reporter and prints a final summary line.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
}

// QuadCompleted records one finished download of the given size.
func (r *Reporter) QuadCompleted(size int64) {
	r.downloaded.Add(1)
	r.bytes.Add(size)
}

// QuadSkipped records one quad that was already present on disk.
func (r *Reporter) QuadSkipped() {
	r.skipped.Add(1)
}

// QuadFailed records one failed download.
func (r *Reporter) QuadFailed() {
	r.failed.Add(1)
}

func (r *Reporter) updateLoop() {
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinal()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	done := int(r.downloaded.Load() + r.skipped.Load() + r.failed.Load())
	fmt.Fprintf(r.opts.Output, "\r[quadfetch] %s: %d/%d | %d downloaded | %d skipped | %d failed | %s    ",
		r.opts.Label,
		done,
		r.opts.Total,
		r.downloaded.Load(),
		r.skipped.Load(),
		r.failed.Load(),
		formatBytes(r.bytes.Load()),
	)
}

func (r *Reporter) printFinal() {
	duration := time.Since(r.startTime)
	fmt.Fprintf(r.opts.Output, "\r[quadfetch] %s: done | %d downloaded | %d skipped | %d failed | %s in %s\n",
		r.opts.Label,
		r.downloaded.Load(),
		r.skipped.Load(),
		r.failed.Load(),
		formatBytes(r.bytes.Load()),
		formatDuration(duration),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
