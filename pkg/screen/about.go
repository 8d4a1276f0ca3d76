package screen

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/mapview"
	"github.com/matzehuels/stickersmash/pkg/settings"
)

// About screen copy.
const (
	LoadingText     = "Loading your location..."
	LoadingHelpText = "Please accept the location permission request when prompted"
	RefusedHelpText = "If you've denied permission permanently, you'll need to enable it in your device settings."
	RefusedFallback = "Location permission is required to use this feature"
)

// Actions offered by the About screen.
const (
	ActionTryAgain     = "Try Again"
	ActionOpenSettings = "Open Settings"
	ActionRetry        = "Retry"
)

// PermissionRequiredDialog precedes the settings launch.
var PermissionRequiredDialog = Dialog{
	Title:   "Location Permission Required",
	Message: "This app needs location access to show your position on the map. Please grant location permission in your device settings.",
	Cancel:  "Cancel",
	Confirm: ActionOpenSettings,
}

// AboutView is the render model of the About screen.
type AboutView struct {
	State   location.State `json:"state"`
	Spinner bool           `json:"spinner,omitempty"`
	Message string         `json:"message,omitempty"`
	Help    string         `json:"help,omitempty"`
	Actions []string       `json:"actions,omitempty"`
	Map     *mapview.View  `json:"map,omitempty"`
}

// About drives the location screen.
type About struct {
	acquirer *location.Acquirer
	opener   settings.Opener
	confirm  Confirmer
	notify   Notifier
	logger   *log.Logger
}

// AboutOption configures an About controller.
type AboutOption func(*About)

// WithConfirmer sets the dialog used before opening settings. Without one
// the settings page is opened directly.
func WithConfirmer(c Confirmer) AboutOption {
	return func(a *About) { a.confirm = c }
}

// WithAboutNotifier sets where alerts go.
func WithAboutNotifier(n Notifier) AboutOption {
	return func(a *About) { a.notify = n }
}

// WithAboutLogger sets the logger.
func WithAboutLogger(l *log.Logger) AboutOption {
	return func(a *About) { a.logger = l }
}

// NewAbout creates the controller.
func NewAbout(acq *location.Acquirer, opener settings.Opener, opts ...AboutOption) *About {
	a := &About{
		acquirer: acq,
		opener:   opener,
		confirm:  autoConfirm{},
		notify:   discardNotifier{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mount starts acquisition when the screen appears.
func (a *About) Mount(ctx context.Context) location.Status {
	return a.acquirer.Acquire(ctx)
}

// TryAgain re-runs acquisition from the permission-refused state.
func (a *About) TryAgain(ctx context.Context) location.Status {
	return a.acquirer.Acquire(ctx)
}

// Retry re-runs acquisition from the failed state.
func (a *About) Retry(ctx context.Context) location.Status {
	return a.acquirer.Acquire(ctx)
}

// OpenSettings asks for confirmation and then opens the OS settings page.
// It never fails: a launch failure is shown as an alert. The result reports
// whether the page was opened.
func (a *About) OpenSettings(ctx context.Context) bool {
	ok, err := a.confirm.Confirm(ctx, PermissionRequiredDialog)
	if err != nil {
		a.logger.Warn("settings confirmation failed", "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := a.opener.Open(ctx); err != nil {
		alert, isAlert := errors.AsAlert(err)
		if !isAlert {
			alert = settings.LaunchFailedAlert
		}
		a.notify.Notify(ctx, alert)
		return false
	}
	return true
}

// Status returns the current acquisition status.
func (a *About) Status() location.Status {
	return a.acquirer.Status()
}

// Permission returns the last permission outcome.
func (a *About) Permission() location.Permission {
	return a.acquirer.Permission()
}

// View returns the render model for the current status.
func (a *About) View() AboutView {
	return ViewFor(a.acquirer.Status())
}

// ViewFor maps a status to its render model.
func ViewFor(s location.Status) AboutView {
	switch st := s.(type) {
	case location.PermissionRefused:
		msg := st.Reason
		if msg == "" {
			msg = RefusedFallback
		}
		return AboutView{
			State:   st.State(),
			Message: msg,
			Help:    RefusedHelpText,
			Actions: []string{ActionTryAgain, ActionOpenSettings},
		}
	case location.Failed:
		return AboutView{
			State:   st.State(),
			Message: st.Message,
			Actions: []string{ActionRetry},
		}
	case location.Ready:
		v := mapview.ForFix(st.Fix)
		return AboutView{State: st.State(), Map: &v}
	default:
		return AboutView{
			State:   location.StateLoading,
			Spinner: true,
			Message: LoadingText,
			Help:    LoadingHelpText,
		}
	}
}
