// Package export turns a composition snapshot into a persisted JPEG.
//
// Two capture strategies exist and exactly one is selected at startup from
// the runtime target:
//
//   - [NativeCapture] rasterizes to a temporary file and hands it to a
//     [Library] (the device media library, or a backend standing in for it).
//   - [DOMCapture] rasterizes to a fixed 320×440 canvas, encodes it as a
//     data URI and delivers it through a [Downloader] (a browser download).
//
// Both are driven through a [Pipeline]:
//
//	strategy, err := export.ForRuntime(export.RuntimeNative, lib, nil, export.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	artifact, err := export.New(strategy, logger).Export(ctx, surface.Target())
//
// Exporting a nil target is a no-op. Any failure surfaces as an
// errors.ErrCodeExport error and nothing is reported as persisted.
package export

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/observability"
)

// =============================================================================
// Runtime Targets
// =============================================================================

// Runtime targets accepted by ForRuntime.
const (
	RuntimeNative = "native"
	RuntimeWeb    = "web"
)

// Strategy names.
const (
	StrategyNative = "native_capture"
	StrategyDOM    = "dom_capture"
)

// ValidRuntimes is the set of supported runtime targets.
var ValidRuntimes = map[string]bool{
	RuntimeNative: true,
	RuntimeWeb:    true,
}

// ValidateRuntime checks that a runtime target is supported.
func ValidateRuntime(runtime string) error {
	if !ValidRuntimes[runtime] {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid runtime: %q (must be one of: native, web)", runtime)
	}
	return nil
}

// =============================================================================
// Artifact
// =============================================================================

// MIMEJPEG is the content type of every exported image.
const MIMEJPEG = "image/jpeg"

// Artifact describes a successfully persisted export.
type Artifact struct {
	// ID uniquely identifies the export.
	ID string
	// Strategy is the name of the strategy that produced it.
	Strategy string
	// Filename is the name the image was persisted or downloaded under.
	Filename string
	MIMEType string
	Width    int
	Height   int
	// Size is the encoded JPEG size in bytes.
	Size int
	// DataURI is set by DOMCapture only.
	DataURI   string
	CreatedAt time.Time
}

// Strategy captures a target and persists it.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string
	// Capture rasterizes target and hands the result to the strategy's sink.
	// It returns an artifact only once the sink has accepted it.
	Capture(ctx context.Context, target compose.Target) (*Artifact, error)
}

// ForRuntime selects the strategy for a runtime target. The native strategy
// needs lib and the web strategy needs dl; the other may be nil.
func ForRuntime(runtime string, lib Library, dl Downloader, opts ...Option) (Strategy, error) {
	if err := ValidateRuntime(runtime); err != nil {
		return nil, err
	}
	switch runtime {
	case RuntimeWeb:
		if dl == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "web runtime requires a downloader")
		}
		return NewDOMCapture(dl, opts...), nil
	default:
		if lib == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "native runtime requires a media library")
		}
		return NewNativeCapture(lib, opts...), nil
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline runs a single strategy.
//
// A Pipeline holds no per-export state, but callers must not export the same
// surface concurrently.
type Pipeline struct {
	strategy Strategy
	logger   *log.Logger
}

// New creates a pipeline for strategy. If logger is nil, log.Default() is used.
func New(strategy Strategy, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{strategy: strategy, logger: logger}
}

// Strategy returns the pipeline's strategy.
func (p *Pipeline) Strategy() Strategy {
	return p.strategy
}

// Export captures target with the pipeline's strategy.
// A nil target (surface not mounted) returns (nil, nil) without side effects.
func (p *Pipeline) Export(ctx context.Context, target compose.Target) (*Artifact, error) {
	if target == nil {
		p.logger.Debug("export skipped, surface not mounted")
		return nil, nil
	}

	name := p.strategy.Name()
	hooks := observability.Export()
	hooks.OnExportStart(ctx, name)
	start := time.Now()

	artifact, err := p.strategy.Capture(ctx, target)
	if err != nil && !errors.Is(err, errors.ErrCodeExport) {
		err = errors.Wrap(errors.ErrCodeExport, err, "%s export", name)
	}

	size := 0
	if err == nil {
		size = artifact.Size
	}
	elapsed := time.Since(start)
	hooks.OnExportComplete(ctx, name, size, elapsed, err)

	if err != nil {
		p.logger.Error("export failed", "strategy", name, "err", err)
		return nil, err
	}
	p.logger.Info("exported image",
		"strategy", name,
		"file", artifact.Filename,
		"size", artifact.Size,
		"duration", elapsed)
	return artifact, nil
}

// =============================================================================
// Options
// =============================================================================

// Option configures a capture strategy.
type Option func(*options)

type options struct {
	logger  *log.Logger
	tempDir string
	now     func() time.Time
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}

// WithLogger sets the strategy's logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTempDir sets where NativeCapture writes its temporary file.
// The default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// scaledWidth is w scaled so that h becomes height, rounded.
func scaledWidth(w, h, height int) int {
	if h <= 0 {
		return 0
	}
	return (w*height + h/2) / h
}
