// Package cli implements the stickersmash command-line interface.
//
// The subcommands act as the app's screens: locate is the About screen
// (interactive with -i), compose is the Home screen, settings and
// permission manage the location permission, and serve hosts the browser
// runtime.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stickersmash/pkg/buildinfo"
	"github.com/matzehuels/stickersmash/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "StickerSmash puts stickers on your photos",
		Long:         `StickerSmash composes a sticker onto a photo and exports the result as a JPEG, and shows your current position on a map.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.Path()+")")

	root.AddCommand(c.locateCommand())
	root.AddCommand(c.composeCommand())
	root.AddCommand(c.settingsCommand())
	root.AddCommand(c.permissionCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", c.resolvedConfigPath(), "runtime", cfg.Runtime, "provider", cfg.Location.Provider)
	return cfg, nil
}

func (c *CLI) resolvedConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.Path()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stickersmash/).
// Export temp files are staged here.
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
