// Package config loads application settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. the TOML file at $XDG_CONFIG_HOME/stickersmash/config.toml
//  3. a .env file in the working directory (never overriding the real
//     environment)
//  4. STICKERSMASH_* environment variables
//
// Command-line flags are applied by the caller on top of the result.
package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/export/library"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/settings"
)

const (
	// AppName names the XDG directories.
	AppName = "stickersmash"
	// FileName is the config file name inside the config directory.
	FileName = "config.toml"
)

// Simulation modes.
const (
	SimulateAuto = "auto"
	SimulateOn   = "on"
	SimulateOff  = "off"
)

// Config is the full application configuration.
type Config struct {
	// Runtime selects the export strategy: "native" or "web".
	Runtime string `toml:"runtime" env:"STICKERSMASH_RUNTIME"`
	// AppID is passed to the OS settings launcher.
	AppID string `toml:"app_id" env:"STICKERSMASH_APP_ID"`
	// DownloadsDir receives web-runtime downloads made from the CLI.
	DownloadsDir string `toml:"downloads_dir" env:"STICKERSMASH_DOWNLOADS_DIR"`
	// StateDir holds the location consent record.
	StateDir string `toml:"state_dir" env:"STICKERSMASH_STATE_DIR"`

	Location Location `toml:"location"`
	Library  Library  `toml:"library"`
	Server   Server   `toml:"server"`
}

// Location configures position acquisition.
type Location struct {
	Provider         string        `toml:"provider" env:"STICKERSMASH_LOCATION_PROVIDER"`
	ServicesDisabled bool          `toml:"services_disabled" env:"STICKERSMASH_LOCATION_SERVICES_DISABLED"`
	Latitude         float64       `toml:"latitude" env:"STICKERSMASH_LOCATION_LATITUDE"`
	Longitude        float64       `toml:"longitude" env:"STICKERSMASH_LOCATION_LONGITUDE"`
	Endpoint         string        `toml:"endpoint" env:"STICKERSMASH_LOCATION_ENDPOINT"`
	Timeout          time.Duration `toml:"timeout" env:"STICKERSMASH_LOCATION_TIMEOUT"`
	MinInterval      time.Duration `toml:"min_interval" env:"STICKERSMASH_LOCATION_MIN_INTERVAL"`
	// Simulate forces the simulated-environment accuracy tier: auto, on or off.
	Simulate string `toml:"simulate" env:"STICKERSMASH_LOCATION_SIMULATE"`
}

// Library configures where native exports are saved.
type Library struct {
	Backend  string `toml:"backend" env:"STICKERSMASH_LIBRARY_BACKEND"`
	Dir      string `toml:"dir" env:"STICKERSMASH_LIBRARY_DIR"`
	URL      string `toml:"url" env:"STICKERSMASH_LIBRARY_URL"`
	Database string `toml:"database" env:"STICKERSMASH_LIBRARY_DATABASE"`
	Name     string `toml:"name" env:"STICKERSMASH_LIBRARY_NAME"`
}

// Server configures the browser runtime.
type Server struct {
	Addr string `toml:"addr" env:"STICKERSMASH_SERVER_ADDR"`
	// Metrics exposes /metrics when true.
	Metrics bool `toml:"metrics" env:"STICKERSMASH_SERVER_METRICS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	data := DataDir()
	return &Config{
		Runtime:      export.RuntimeNative,
		AppID:        settings.DefaultAppID,
		DownloadsDir: filepath.Join(data, "downloads"),
		StateDir:     data,
		Location: Location{
			Provider:    provider.NameFixed,
			Latitude:    37.3318,
			Longitude:   -122.0312,
			Timeout:     location.DefaultTimeout,
			MinInterval: location.DefaultMinInterval,
			Simulate:    SimulateAuto,
		},
		Library: Library{
			Backend: library.BackendDir,
			Dir:     filepath.Join(data, "album"),
		},
		Server: Server{
			Addr:    "127.0.0.1:8080",
			Metrics: true,
		},
	}
}

// =============================================================================
// Paths
// =============================================================================

// Dir returns $XDG_CONFIG_HOME/stickersmash, falling back to ~/.config.
func Dir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/stickersmash, falling back to ~/.local/share.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, fallback, AppName)
}

// =============================================================================
// Loading
// =============================================================================

// Load builds the configuration from defaults, the file at path (Path() if
// empty; a missing file is not an error), .env and the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if err := cfg.decodeFile(path); err != nil {
		return nil, err
	}
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}

// ApplyEnv overrides fields from STICKERSMASH_* variables. Unset variables
// leave the current values alone.
func (c *Config) ApplyEnv() error {
	err := envdecode.Decode(c)
	if err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode environment")
	}
	return nil
}

// Save writes c to path as TOML, creating the parent directory.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if err := export.ValidateRuntime(c.Runtime); err != nil {
		return err
	}
	if !library.ValidBackends[c.Library.Backend] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid library backend: %q (must be one of: dir, redis, mongo)", c.Library.Backend)
	}
	if c.Library.Backend == library.BackendDir && c.Library.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "library.dir is required for the dir backend")
	}
	if c.Library.Backend != library.BackendDir && c.Library.URL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "library.url is required for the %s backend", c.Library.Backend)
	}

	switch c.Location.Provider {
	case provider.NameFixed:
		if err := errors.ValidateCoordinates(c.Location.Latitude, c.Location.Longitude); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "location")
		}
	case provider.NameIPGeo:
		if c.Location.Endpoint != "" {
			if err := errors.ValidateURL(c.Location.Endpoint); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "location.endpoint")
			}
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid location provider: %q (must be one of: fixed, ipgeo)", c.Location.Provider)
	}
	if c.Location.Timeout <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "location.timeout must be positive")
	}
	if c.Location.MinInterval < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "location.min_interval cannot be negative")
	}
	switch c.Location.Simulate {
	case SimulateAuto, SimulateOn, SimulateOff:
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid location.simulate: %q (must be one of: auto, on, off)", c.Location.Simulate)
	}
	return nil
}

// =============================================================================
// Adapters
// =============================================================================

// ProviderConfig returns the positioning provider settings.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Name:            c.Location.Provider,
		ServicesEnabled: !c.Location.ServicesDisabled,
		Latitude:        c.Location.Latitude,
		Longitude:       c.Location.Longitude,
		Endpoint:        c.Location.Endpoint,
	}
}

// LibraryConfig returns the media library settings.
func (c *Config) LibraryConfig() library.Config {
	return library.Config{
		Backend:  c.Library.Backend,
		Dir:      c.Library.Dir,
		URL:      c.Library.URL,
		Database: c.Library.Database,
		Name:     c.Library.Name,
	}
}

// Simulated resolves the simulation mode against the detected value.
func (c *Config) Simulated(detected bool) bool {
	switch c.Location.Simulate {
	case SimulateOn:
		return true
	case SimulateOff:
		return false
	default:
		return detected
	}
}
