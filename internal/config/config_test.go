package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.APIBaseURL != "https://api.planet.com/basemaps/v1" {
		t.Errorf("unexpected base URL: %s", cfg.APIBaseURL)
	}
	if cfg.MosaicPrefix != "nicfi" {
		t.Errorf("unexpected mosaic prefix: %s", cfg.MosaicPrefix)
	}
	if cfg.Workers != 5 {
		t.Errorf("unexpected workers: %d", cfg.Workers)
	}

	// The retry asymmetry: constant delay for the catalog root,
	// exponential for quad pages.
	if cfg.Catalog.Exponential {
		t.Error("catalog retry must use constant delay")
	}
	if cfg.Catalog.Backoff != 10*time.Second {
		t.Errorf("catalog backoff = %v, want 10s", cfg.Catalog.Backoff)
	}
	if !cfg.Quads.Exponential {
		t.Error("quad page retry must be exponential")
	}
	if cfg.Quads.Backoff != 2*time.Second {
		t.Errorf("quad backoff = %v, want 2s", cfg.Quads.Backoff)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
api_base_url: https://example.com/v1
region_file: region.geojson
output_dir: /data/quads
cache_backend: bolt
cache_path: /data/cache.db
mosaic_prefix: planet_medres
page_size: 100
workers: 8
timeout: 30s
quad_retry:
  attempts: 3
  backoff: 500ms
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.APIBaseURL != "https://example.com/v1" {
		t.Errorf("base URL not loaded: %s", cfg.APIBaseURL)
	}
	if cfg.CacheBackend != "bolt" {
		t.Errorf("cache backend not loaded: %s", cfg.CacheBackend)
	}
	if cfg.Workers != 8 {
		t.Errorf("workers not loaded: %d", cfg.Workers)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout not loaded: %v", cfg.Timeout)
	}
	if cfg.Quads.Attempts != 3 || cfg.Quads.Backoff != 500*time.Millisecond {
		t.Errorf("quad retry not loaded: %+v", cfg.Quads)
	}
	// Unset fields keep defaults.
	if cfg.Quads.MaxBackoff != 60*time.Second {
		t.Errorf("quad max backoff should default: %v", cfg.Quads.MaxBackoff)
	}
	if !cfg.Quads.Exponential {
		t.Error("quad retry should stay exponential by default")
	}
	if cfg.Catalog.Attempts != 5 {
		t.Errorf("catalog retry should default: %+v", cfg.Catalog)
	}
}

func TestLoadFromFileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: soon"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUADFETCH_OUTPUT_DIR", "/tmp/out")
	t.Setenv("QUADFETCH_WORKERS", "7")
	t.Setenv("QUADFETCH_TIMEOUT", "45s")
	t.Setenv("QUADFETCH_CACHE_BACKEND", "bolt")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("output dir not loaded: %s", cfg.OutputDir)
	}
	if cfg.Workers != 7 {
		t.Errorf("workers not loaded: %d", cfg.Workers)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("timeout not loaded: %v", cfg.Timeout)
	}
	if cfg.CacheBackend != "bolt" {
		t.Errorf("cache backend not loaded: %s", cfg.CacheBackend)
	}
}

func TestLoadFromEnvBadInt(t *testing.T) {
	t.Setenv("QUADFETCH_WORKERS", "many")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for unparseable QUADFETCH_WORKERS")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("QUADFETCH_API_KEY", "env-key")

	cfg := Default()
	key, err := cfg.APIKey()
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "env-key" {
		t.Errorf("expected env key, got %q", key)
	}
}

func TestAPIKeyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planet.key")
	if err := os.WriteFile(path, []byte("  file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.APIKeyFile = path
	key, err := cfg.APIKey()
	if err != nil {
		t.Fatalf("APIKey: %v", err)
	}
	if key != "file-key" {
		t.Errorf("expected trimmed file key, got %q", key)
	}
}

func TestAPIKeyMissing(t *testing.T) {
	cfg := Default()
	if _, err := cfg.APIKey(); err == nil {
		t.Error("expected error when no key source is configured")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.RegionFile = "region.geojson"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := cfg
	bad.RegionFile = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for missing region file")
	}

	bad = cfg
	bad.Workers = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}

	bad = cfg
	bad.Timeout = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero timeout")
	}
}
