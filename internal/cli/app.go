package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/stickersmash/pkg/buildinfo"
	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/config"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/export/library"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/platform"
	"github.com/matzehuels/stickersmash/pkg/screen"
	"github.com/matzehuels/stickersmash/pkg/settings"
)

// app assembles the screen controllers from the configuration.
type app struct {
	cfg    *config.Config
	logger *log.Logger

	locationConsent *provider.ConsentStore
	mediaConsent    *provider.ConsentStore
}

func (c *CLI) newApp() (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := provider.NewConsentStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	media, err := provider.NewConsentStoreFile(cfg.StateDir, provider.MediaConsentFile)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: c.Logger, locationConsent: loc, mediaConsent: media}, nil
}

// environment resolves the accuracy-tier inputs for this host.
func (a *app) environment(ctx context.Context) location.Environment {
	info := platform.Detect(ctx)
	env := location.Environment{
		Simulated: a.cfg.Simulated(info.Simulated),
		DevBuild:  buildinfo.IsDev(),
	}
	a.logger.Debug("environment", "os", info.OS, "virtualization", info.Virtualization, "simulated", env.Simulated, "dev", env.DevBuild)
	return env
}

// permissions returns the location permission requester. A nil prompter
// leaves undecided permissions undetermined.
func (a *app) permissions(prompter provider.Prompter) *provider.Permissions {
	return provider.NewPermissions(a.locationConsent, prompter, a.logger)
}

func (a *app) acquirer(ctx context.Context, perms *provider.Permissions) (*location.Acquirer, error) {
	svc, err := provider.New(a.cfg.ProviderConfig(), perms)
	if err != nil {
		return nil, err
	}
	return location.NewAcquirer(svc,
		location.WithEnvironment(a.environment(ctx)),
		location.WithTimeout(a.cfg.Location.Timeout),
		location.WithMinInterval(a.cfg.Location.MinInterval),
		location.WithLogger(a.logger),
	), nil
}

func (a *app) about(ctx context.Context, perms *provider.Permissions, opts ...screen.AboutOption) (*screen.About, error) {
	acq, err := a.acquirer(ctx, perms)
	if err != nil {
		return nil, err
	}
	opener := settings.NewLauncher(a.cfg.AppID, a.logger)
	return screen.NewAbout(acq, opener, append([]screen.AboutOption{screen.WithAboutLogger(a.logger)}, opts...)...), nil
}

// strategy builds the export strategy for the configured runtime. The
// returned closer releases the media library.
func (a *app) strategy(ctx context.Context, saved func(string)) (export.Strategy, io.Closer, error) {
	opts := []export.Option{export.WithLogger(a.logger)}
	if dir, err := cacheDir(); err == nil {
		if err := os.MkdirAll(filepath.Join(dir, "exports"), 0o755); err == nil {
			opts = append(opts, export.WithTempDir(filepath.Join(dir, "exports")))
		}
	}

	if a.cfg.Runtime == export.RuntimeWeb {
		dl, err := library.NewFileDownloader(a.cfg.DownloadsDir, a.logger)
		if err != nil {
			return nil, nil, err
		}
		dl.Saved = saved
		s, err := export.ForRuntime(a.cfg.Runtime, nil, dl, opts...)
		return s, nopCloser{}, err
	}

	lib, closer, err := library.Open(ctx, a.cfg.LibraryConfig(), a.logger)
	if err != nil {
		return nil, nil, err
	}
	s, err := export.ForRuntime(a.cfg.Runtime, lib, nil, opts...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return s, closer, nil
}

func (a *app) home(surface *compose.Surface, strategy export.Strategy, opts ...screen.HomeOption) *screen.Home {
	base := []screen.HomeOption{screen.WithHomeLogger(a.logger)}
	if strategy.Name() == export.StrategyNative {
		base = append(base, screen.WithMediaPermission(provider.NewMediaPermissions(a.mediaConsent, a.terminalPrompter(), a.logger)))
	}
	return screen.NewHome(surface, export.New(strategy, a.logger), append(base, opts...)...)
}

// terminalPrompter asks on the terminal, or returns nil when stdin is not
// interactive so that no decision is recorded from a pipe.
func (a *app) terminalPrompter() provider.Prompter {
	if !isTerminal(os.Stdin) {
		return nil
	}
	return provider.NewReaderPrompter(os.Stdin, os.Stderr)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
