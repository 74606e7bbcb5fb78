// Package progress provides progress reporting for quad downloads.
//
// The reporter prints per-mosaic counters to stderr while the downloader
// works, then a final summary line on Stop:
//
//	[quadfetch] nicfi_monthly_2024-01: 120 quads queued
//	[quadfetch] nicfi_monthly_2024-01: 87/120 | 41 downloaded | 44 skipped | 2 failed | 2.41 GB
package progress
