// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about location acquisition, image export and settings launches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The Prometheus implementation lives in internal/metrics and is registered by
// the serve command; library packages only ever talk to this registry.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLocationHooks(&myLocationHooks{})
//	    observability.SetExportHooks(&myExportHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Location().OnAcquireStart(ctx)
//	// ... negotiate permission, fetch ...
//	observability.Location().OnAcquireComplete(ctx, "ready", duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Location Hooks
// =============================================================================

// LocationHooks receives events from the location acquirer.
type LocationHooks interface {
	// OnAcquireStart records the start of an acquisition (entry into Loading).
	OnAcquireStart(ctx context.Context)

	// OnAcquireComplete records the terminal state an acquisition reached.
	// Superseded acquisitions report state "superseded".
	OnAcquireComplete(ctx context.Context, state string, duration time.Duration)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from the export pipeline.
type ExportHooks interface {
	// OnExportStart records the start of an export with the given strategy.
	OnExportStart(ctx context.Context, strategy string)

	// OnExportComplete records the end of an export. size is the encoded
	// artifact size in bytes (0 on failure).
	OnExportComplete(ctx context.Context, strategy string, size int, duration time.Duration, err error)
}

// =============================================================================
// Settings Hooks
// =============================================================================

// SettingsHooks receives events from the OS settings launcher.
type SettingsHooks interface {
	// OnSettingsLaunch records an attempt to open the OS settings page.
	OnSettingsLaunch(ctx context.Context, platform string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLocationHooks is a no-op implementation of LocationHooks.
type NoopLocationHooks struct{}

func (NoopLocationHooks) OnAcquireStart(context.Context)                           {}
func (NoopLocationHooks) OnAcquireComplete(context.Context, string, time.Duration) {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExportStart(context.Context, string) {}
func (NoopExportHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {
}

// NoopSettingsHooks is a no-op implementation of SettingsHooks.
type NoopSettingsHooks struct{}

func (NoopSettingsHooks) OnSettingsLaunch(context.Context, string, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	locationHooks LocationHooks = NoopLocationHooks{}
	exportHooks   ExportHooks   = NoopExportHooks{}
	settingsHooks SettingsHooks = NoopSettingsHooks{}
	hooksMu       sync.RWMutex
)

// SetLocationHooks registers custom location hooks.
// This should be called once at application startup before any acquisition.
func SetLocationHooks(h LocationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		locationHooks = h
	}
}

// SetExportHooks registers custom export hooks.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// SetSettingsHooks registers custom settings hooks.
func SetSettingsHooks(h SettingsHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		settingsHooks = h
	}
}

// Location returns the registered location hooks.
func Location() LocationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return locationHooks
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Settings returns the registered settings hooks.
func Settings() SettingsHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return settingsHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	locationHooks = NoopLocationHooks{}
	exportHooks = NoopExportHooks{}
	settingsHooks = NoopSettingsHooks{}
}
