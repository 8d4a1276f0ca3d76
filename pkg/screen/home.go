package screen

import (
	"context"
	"image"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/location"
)

// Home screen alerts.
var (
	NoImageAlert    = errors.Alert{Message: "You did not select any image."}
	SavedAlert      = errors.Alert{Message: "Saved!"}
	SaveFailedAlert = errors.Alert{Message: "Failed to save image"}
)

// Picker lets the user choose a photo. ok is false when the user cancels.
type Picker interface {
	PickImage(ctx context.Context) (ref compose.ImageRef, ok bool, err error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (compose.ImageRef, bool, error)

// PickImage calls f.
func (f PickerFunc) PickImage(ctx context.Context) (compose.ImageRef, bool, error) { return f(ctx) }

// MediaPermission is the media-library write permission.
type MediaPermission interface {
	Status(ctx context.Context) (location.Permission, error)
	Request(ctx context.Context) (location.Permission, error)
}

// HomeView is the render model of the Home screen.
type HomeView struct {
	// ShowOptions switches the footer from photo choice to Reset/Sticker/Save.
	ShowOptions       bool   `json:"show_options"`
	StickerPickerOpen bool   `json:"sticker_picker_open"`
	HasSticker        bool   `json:"has_sticker"`
	BaseURI           string `json:"base_uri"`
	Media             string `json:"media_permission"`
}

// Home drives the composition screen. It owns its surface for its lifetime.
type Home struct {
	surface  *compose.Surface
	pipeline *export.Pipeline
	picker   Picker
	media    MediaPermission
	notify   Notifier
	logger   *log.Logger

	mu          sync.Mutex
	showOptions bool
	pickerOpen  bool
	mediaStatus location.Permission
}

// HomeOption configures a Home controller.
type HomeOption func(*Home)

// WithPicker sets the photo picker.
func WithPicker(p Picker) HomeOption {
	return func(h *Home) { h.picker = p }
}

// WithMediaPermission sets the media-library permission checked on mount.
func WithMediaPermission(m MediaPermission) HomeOption {
	return func(h *Home) { h.media = m }
}

// WithHomeNotifier sets where alerts go.
func WithHomeNotifier(n Notifier) HomeOption {
	return func(h *Home) { h.notify = n }
}

// WithHomeLogger sets the logger.
func WithHomeLogger(l *log.Logger) HomeOption {
	return func(h *Home) { h.logger = l }
}

// NewHome creates the controller for surface, saving through pipeline.
func NewHome(surface *compose.Surface, pipeline *export.Pipeline, opts ...HomeOption) *Home {
	h := &Home{
		surface:  surface,
		pipeline: pipeline,
		notify:   discardNotifier{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Surface returns the composition surface.
func (h *Home) Surface() *compose.Surface { return h.surface }

// Mount makes the surface capturable and requests media-library permission
// if it has not been decided yet.
func (h *Home) Mount(ctx context.Context) error {
	h.surface.Mount()
	if h.media == nil {
		return nil
	}
	st, err := h.media.Status(ctx)
	if err != nil {
		return err
	}
	if st == location.PermissionUndetermined {
		if st, err = h.media.Request(ctx); err != nil {
			return err
		}
	}
	h.mu.Lock()
	h.mediaStatus = st
	h.mu.Unlock()
	h.logger.Debug("media library permission", "status", st)
	return nil
}

// PickImage opens the picker. A cancel shows NoImageAlert and leaves the
// composition untouched.
func (h *Home) PickImage(ctx context.Context) error {
	if h.picker == nil {
		return errors.New(errors.ErrCodeUnsupported, "no image picker available")
	}
	ref, ok, err := h.picker.PickImage(ctx)
	if err != nil {
		return err
	}
	if !ok {
		h.notify.Notify(ctx, NoImageAlert)
		return nil
	}
	return h.SetPhoto(ref)
}

// SetPhoto replaces the base image and shows the editing options.
func (h *Home) SetPhoto(ref compose.ImageRef) error {
	if err := h.surface.SetBaseImage(ref); err != nil {
		return err
	}
	h.mu.Lock()
	h.showOptions = true
	h.mu.Unlock()
	return nil
}

// UseThisPhoto keeps the current base image and shows the editing options.
func (h *Home) UseThisPhoto() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.showOptions = true
}

// AddSticker opens the sticker picker.
func (h *Home) AddSticker() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pickerOpen = true
}

// CloseStickerPicker closes the sticker picker without choosing.
func (h *Home) CloseStickerPicker() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pickerOpen = false
}

// SelectSticker places src at the default size and closes the picker.
func (h *Home) SelectSticker(src compose.ImageRef) error {
	p := compose.NewPlacement(src)
	if err := h.surface.SetOverlay(&p); err != nil {
		return err
	}
	h.CloseStickerPicker()
	return nil
}

// MoveSticker records the translation applied by the sticker view.
func (h *Home) MoveSticker(offset image.Point) error {
	p := h.surface.Overlay()
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "no sticker to move")
	}
	p.Offset = offset
	return h.surface.SetOverlay(p)
}

// Reset hides the options and removes the sticker. The photo stays.
func (h *Home) Reset() error {
	h.mu.Lock()
	h.showOptions = false
	h.mu.Unlock()
	return h.surface.SetOverlay(nil)
}

// Save exports the composition. Native saves confirm with SavedAlert; any
// failure shows SaveFailedAlert. With a media permission configured, nothing
// is exported unless access was granted. An unmounted surface is a no-op.
func (h *Home) Save(ctx context.Context) (*export.Artifact, error) {
	target := h.surface.Target()
	if target != nil && h.media != nil {
		h.mu.Lock()
		st := h.mediaStatus
		h.mu.Unlock()
		if st != location.PermissionGranted {
			h.notify.Notify(ctx, SaveFailedAlert)
			return nil, errors.New(errors.ErrCodePermissionDenied, "media library access is %s", st)
		}
	}
	artifact, err := h.pipeline.Export(ctx, target)
	if err != nil {
		h.notify.Notify(ctx, SaveFailedAlert)
		return nil, err
	}
	if artifact != nil && artifact.Strategy == export.StrategyNative {
		h.notify.Notify(ctx, SavedAlert)
	}
	return artifact, nil
}

// View returns the render model.
func (h *Home) View() HomeView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HomeView{
		ShowOptions:       h.showOptions,
		StickerPickerOpen: h.pickerOpen,
		HasSticker:        h.surface.Overlay() != nil,
		BaseURI:           h.surface.Base().URI,
		Media:             h.mediaStatus.String(),
	}
}
