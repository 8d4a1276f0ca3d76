// Package settings opens the operating system page where the user can grant
// location access to the application.
//
// Launching is fire-and-forget: it never changes acquisition state, and a
// failed launch is reported as an alert asking the user to navigate there by
// hand rather than as a crash.
package settings

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/pkg/browser"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/observability"
)

// DefaultAppID is the application identifier passed to intent-style launchers.
const DefaultAppID = "com.tofiksa.StickerSmash"

// LaunchFailedAlert is shown when the settings page cannot be opened.
var LaunchFailedAlert = errors.Alert{
	Title:   "Unable to open settings",
	Message: "Please open your device settings and enable location permissions for this app manually.",
}

// Settings URLs per platform.
const (
	iosSettingsURL     = "app-settings:"
	darwinSettingsURL  = "x-apple.systempreferences:com.apple.preference.security?Privacy_LocationServices"
	windowsSettingsURL = "ms-settings:privacy-location"
	androidAction      = "android.settings.APPLICATION_DETAILS_SETTINGS"
)

// Opener opens the application's permission settings.
type Opener interface {
	Open(ctx context.Context) error
}

// Launcher is the Opener for the current platform: a URL scheme on Apple
// platforms and Windows, an intent action carrying the application
// identifier on Android, and the desktop settings panel on Linux.
type Launcher struct {
	goos    string
	appID   string
	logger  *log.Logger
	openURL func(url string) error
	run     func(ctx context.Context, name string, args ...string) error
}

// NewLauncher creates a launcher for the running platform.
func NewLauncher(appID string, logger *log.Logger) *Launcher {
	if appID == "" {
		appID = DefaultAppID
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Launcher{
		goos:    runtime.GOOS,
		appID:   appID,
		logger:  logger,
		openURL: browser.OpenURL,
		run:     runCommand,
	}
}

// Open launches the settings page. Failures come back as an
// *errors.AlertError carrying LaunchFailedAlert.
func (l *Launcher) Open(ctx context.Context) error {
	err := l.launch(ctx)
	observability.Settings().OnSettingsLaunch(ctx, l.goos, err)
	if err != nil {
		l.logger.Error("failed to open settings", "platform", l.goos, "err", err)
		return &errors.AlertError{
			Alert: LaunchFailedAlert,
			Err:   errors.Wrap(errors.ErrCodeSettingsLaunch, err, "open %s settings", l.goos),
		}
	}
	l.logger.Debug("opened settings", "platform", l.goos)
	return nil
}

func (l *Launcher) launch(ctx context.Context) error {
	switch l.goos {
	case "ios":
		return l.openURL(iosSettingsURL)
	case "darwin":
		return l.openURL(darwinSettingsURL)
	case "windows":
		return l.openURL(windowsSettingsURL)
	case "android":
		return l.run(ctx, "am", "start", "-a", androidAction, "-d", "package:"+l.appID)
	case "linux", "freebsd", "openbsd", "netbsd":
		return l.run(ctx, "gnome-control-center", "location")
	default:
		return errors.New(errors.ErrCodeUnsupported, "no settings launcher for %s", l.goos)
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not found in PATH", name)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %v: %s", name, err, out)
	}
	return nil
}

var _ Opener = (*Launcher)(nil)
