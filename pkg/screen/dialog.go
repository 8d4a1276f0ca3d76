// Package screen holds the controllers behind the two screens: About, which
// shows the user's position, and Home, which composes and saves a sticker
// photo.
//
// Controllers own no rendering. They turn user actions into calls on the
// acquisition state machine, the composition surface and the export
// pipeline, and expose a plain view model for whatever front end draws them
// (the terminal UI, the HTTP server, or a test).
package screen

import (
	"context"

	"github.com/matzehuels/stickersmash/pkg/errors"
)

// Notifier shows one-shot alerts.
type Notifier interface {
	Notify(ctx context.Context, alert errors.Alert)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, alert errors.Alert)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, alert errors.Alert) { f(ctx, alert) }

// Dialog is a two-button confirmation.
type Dialog struct {
	Title   string
	Message string
	Cancel  string
	Confirm string
}

// Confirmer asks the user to confirm a dialog.
type Confirmer interface {
	Confirm(ctx context.Context, d Dialog) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, d Dialog) (bool, error)

// Confirm calls f.
func (f ConfirmerFunc) Confirm(ctx context.Context, d Dialog) (bool, error) { return f(ctx, d) }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, errors.Alert) {}

type autoConfirm struct{}

func (autoConfirm) Confirm(context.Context, Dialog) (bool, error) { return true, nil }
