package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/stickersmash/pkg/errors"
)

// isolate points the XDG variables at a temp dir and runs in an empty
// working directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	isolate(t)
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Location.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", cfg.Location.Timeout)
	}
	if cfg.Location.MinInterval != 5*time.Second {
		t.Errorf("min interval = %v, want 5s", cfg.Location.MinInterval)
	}
}

func TestPaths(t *testing.T) {
	dir := isolate(t)
	if got, want := Path(), filepath.Join(dir, "config", AppName, FileName); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got, want := DataDir(), filepath.Join(dir, "data", AppName); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runtime != "native" || cfg.Library.Backend != "dir" {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	writeFile(t, Path(), `
runtime = "web"

[location]
provider = "ipgeo"
endpoint = "https://geo.example.com/json"
timeout = "3s"
simulate = "on"

[library]
backend = "redis"
url = "redis://localhost:6379/0"
`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runtime != "web" {
		t.Errorf("runtime = %q, want web", cfg.Runtime)
	}
	if cfg.Location.Provider != "ipgeo" || cfg.Location.Timeout != 3*time.Second {
		t.Errorf("location = %+v", cfg.Location)
	}
	if !cfg.Simulated(false) {
		t.Error("Simulated(false) = false with simulate = on")
	}
	if cfg.Location.MinInterval != 5*time.Second {
		t.Errorf("min interval = %v, want default 5s kept", cfg.Location.MinInterval)
	}
	if cfg.Library.Backend != "redis" || cfg.Library.URL != "redis://localhost:6379/0" {
		t.Errorf("library = %+v", cfg.Library)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	isolate(t)
	writeFile(t, Path(), "runtim = \"web\"\n")
	_, err := Load("")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("Load() error = %v, want INVALID_CONFIG", err)
	}
	if !strings.Contains(err.Error(), "runtim") {
		t.Errorf("error %q does not name the key", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	writeFile(t, Path(), "runtime = \"web\"\n")
	t.Setenv("STICKERSMASH_RUNTIME", "native")
	t.Setenv("STICKERSMASH_LOCATION_TIMEOUT", "2s")
	t.Setenv("STICKERSMASH_LOCATION_SERVICES_DISABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runtime != "native" {
		t.Errorf("runtime = %q, want native from env", cfg.Runtime)
	}
	if cfg.Location.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.Location.Timeout)
	}
	if cfg.ProviderConfig().ServicesEnabled {
		t.Error("ServicesEnabled = true, want false from env")
	}
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "STICKERSMASH_LIBRARY_DIR="+filepath.Join(dir, "pics")+"\n")
	t.Cleanup(func() { os.Unsetenv("STICKERSMASH_LIBRARY_DIR") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Library.Dir != filepath.Join(dir, "pics") {
		t.Errorf("library dir = %q, want value from .env", cfg.Library.Dir)
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"runtime", func(c *Config) { c.Runtime = "desktop" }},
		{"backend", func(c *Config) { c.Library.Backend = "s3" }},
		{"dir backend without dir", func(c *Config) { c.Library.Dir = "" }},
		{"redis without url", func(c *Config) { c.Library.Backend = "redis" }},
		{"provider", func(c *Config) { c.Location.Provider = "gps" }},
		{"latitude", func(c *Config) { c.Location.Latitude = 91 }},
		{"endpoint scheme", func(c *Config) {
			c.Location.Provider = "ipgeo"
			c.Location.Endpoint = "ftp://example.com"
		}},
		{"timeout", func(c *Config) { c.Location.Timeout = 0 }},
		{"min interval", func(c *Config) { c.Location.MinInterval = -time.Second }},
		{"simulate", func(c *Config) { c.Location.Simulate = "maybe" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Runtime = "web"
	cfg.Location.Timeout = 7 * time.Second
	if err := cfg.Save(""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Runtime != "web" || got.Location.Timeout != 7*time.Second {
		t.Errorf("loaded = %+v", got)
	}
}

func TestSimulated(t *testing.T) {
	tests := []struct {
		mode     string
		detected bool
		want     bool
	}{
		{SimulateAuto, true, true},
		{SimulateAuto, false, false},
		{SimulateOn, false, true},
		{SimulateOff, true, false},
	}
	for _, tt := range tests {
		c := &Config{Location: Location{Simulate: tt.mode}}
		if got := c.Simulated(tt.detected); got != tt.want {
			t.Errorf("Simulated(%v) with %s = %v, want %v", tt.detected, tt.mode, got, tt.want)
		}
	}
}
