package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/observability"
)

var quiet = log.New(io.Discard)

func mountedTarget(t *testing.T, size image.Point) compose.Target {
	t.Helper()
	s, err := compose.NewSurface(size, compose.Placeholder(size))
	if err != nil {
		t.Fatal(err)
	}
	s.Mount()
	sticker := compose.NewPlacement(compose.FromImage("mem:sticker", imaging.New(12, 12, color.White)))
	if err := s.SetOverlay(&sticker); err != nil {
		t.Fatal(err)
	}
	return s.Target()
}

// fakeLibrary records every save and snapshots the file it was handed.
type fakeLibrary struct {
	calls []string
	data  [][]byte
	err   error
}

func (f *fakeLibrary) SaveToLibrary(ctx context.Context, path string) error {
	f.calls = append(f.calls, path)
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f.data = append(f.data, b)
	return f.err
}

type fakeDownloader struct {
	names []string
	uris  []string
	err   error
}

func (f *fakeDownloader) Download(ctx context.Context, filename, dataURI string) error {
	f.names = append(f.names, filename)
	f.uris = append(f.uris, dataURI)
	return f.err
}

func TestExportNilTargetIsNoop(t *testing.T) {
	lib := &fakeLibrary{}
	p := New(NewNativeCapture(lib, WithLogger(quiet)), quiet)

	artifact, err := p.Export(context.Background(), nil)
	if artifact != nil || err != nil {
		t.Errorf("Export(nil) = (%v, %v), want (nil, nil)", artifact, err)
	}
	if len(lib.calls) != 0 {
		t.Errorf("SaveToLibrary called %d times, want 0", len(lib.calls))
	}
}

func TestNativeCaptureSavesOnce(t *testing.T) {
	dir := t.TempDir()
	lib := &fakeLibrary{}
	p := New(NewNativeCapture(lib, WithLogger(quiet), WithTempDir(dir)), quiet)

	artifact, err := p.Export(context.Background(), mountedTarget(t, compose.DefaultSize))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(lib.calls) != 1 {
		t.Fatalf("SaveToLibrary called %d times, want 1", len(lib.calls))
	}
	if artifact.Height != NativeHeight || artifact.Width != compose.DefaultWidth {
		t.Errorf("artifact size = %dx%d, want %dx%d", artifact.Width, artifact.Height, compose.DefaultWidth, NativeHeight)
	}
	if artifact.MIMEType != "image/jpeg" || artifact.Strategy != "native_capture" {
		t.Errorf("artifact = %+v", artifact)
	}
	if artifact.Size != len(lib.data[0]) {
		t.Errorf("artifact.Size = %d, want %d", artifact.Size, len(lib.data[0]))
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(lib.data[0]))
	if err != nil {
		t.Fatalf("saved file is not a jpeg: %v", err)
	}
	if cfg.Height != NativeHeight {
		t.Errorf("jpeg height = %d, want %d", cfg.Height, NativeHeight)
	}

	if _, err := os.Stat(lib.calls[0]); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists after export", lib.calls[0])
	}
}

func TestNativeCaptureScalesWidthFromAspect(t *testing.T) {
	lib := &fakeLibrary{}
	p := New(NewNativeCapture(lib, WithLogger(quiet), WithTempDir(t.TempDir())), quiet)

	artifact, err := p.Export(context.Background(), mountedTarget(t, image.Pt(640, 440)))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if artifact.Width != 640 || artifact.Height != 440 {
		t.Errorf("artifact size = %dx%d, want 640x440", artifact.Width, artifact.Height)
	}
}

func TestNativeCaptureSinkFailure(t *testing.T) {
	dir := t.TempDir()
	lib := &fakeLibrary{err: stderrors.New("media library full")}
	p := New(NewNativeCapture(lib, WithLogger(quiet), WithTempDir(dir)), quiet)

	artifact, err := p.Export(context.Background(), mountedTarget(t, compose.DefaultSize))
	if artifact != nil {
		t.Errorf("artifact = %+v, want nil on failure", artifact)
	}
	if !errors.Is(err, errors.ErrCodeExport) {
		t.Fatalf("Export() error = %v, want EXPORT_FAILED", err)
	}
	if !strings.Contains(err.Error(), "media library full") {
		t.Errorf("error %q does not carry the sink cause", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d entries after failed export, want 0", len(entries))
	}
}

func TestNativeCaptureTempDirMissing(t *testing.T) {
	lib := &fakeLibrary{}
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	p := New(NewNativeCapture(lib, WithLogger(quiet), WithTempDir(missing)), quiet)

	if _, err := p.Export(context.Background(), mountedTarget(t, compose.DefaultSize)); !errors.Is(err, errors.ErrCodeExport) {
		t.Errorf("Export() error = %v, want EXPORT_FAILED", err)
	}
	if len(lib.calls) != 0 {
		t.Error("SaveToLibrary called despite write failure")
	}
}

func TestDOMCapture(t *testing.T) {
	dl := &fakeDownloader{}
	p := New(NewDOMCapture(dl, WithLogger(quiet)), quiet)

	// A non-default surface size still exports at exactly 320x440.
	artifact, err := p.Export(context.Background(), mountedTarget(t, image.Pt(640, 480)))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(dl.names) != 1 || dl.names[0] != "sticker-smash.jpeg" {
		t.Fatalf("downloads = %v, want [sticker-smash.jpeg]", dl.names)
	}
	if !strings.HasPrefix(dl.uris[0], "data:image/jpeg;base64,") {
		t.Errorf("data URI prefix = %q", dl.uris[0][:min(len(dl.uris[0]), 30)])
	}
	if artifact.DataURI != dl.uris[0] {
		t.Error("artifact.DataURI differs from the downloaded URI")
	}

	data, err := DecodeDataURI(dl.uris[0])
	if err != nil {
		t.Fatalf("DecodeDataURI() error = %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("payload is not a jpeg: %v", err)
	}
	if cfg.Width != 320 || cfg.Height != 440 {
		t.Errorf("jpeg size = %dx%d, want 320x440", cfg.Width, cfg.Height)
	}
	if artifact.Size != len(data) {
		t.Errorf("artifact.Size = %d, want %d", artifact.Size, len(data))
	}
}

func TestDOMCaptureDownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: stderrors.New("popup blocked")}
	p := New(NewDOMCapture(dl, WithLogger(quiet)), quiet)

	artifact, err := p.Export(context.Background(), mountedTarget(t, compose.DefaultSize))
	if artifact != nil || !errors.Is(err, errors.ErrCodeExport) {
		t.Errorf("Export() = (%v, %v), want (nil, EXPORT_FAILED)", artifact, err)
	}
}

func TestDecodeDataURIRejects(t *testing.T) {
	tests := []string{
		"",
		"data:image/png;base64,AAAA",
		"data:image/jpeg;base64,!!!",
	}
	for _, uri := range tests {
		if _, err := DecodeDataURI(uri); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("DecodeDataURI(%q) error = %v, want INVALID_INPUT", uri, err)
		}
	}
}

func TestForRuntime(t *testing.T) {
	lib := LibraryFunc(func(context.Context, string) error { return nil })
	dl := DownloaderFunc(func(context.Context, string, string) error { return nil })

	tests := []struct {
		runtime  string
		lib      Library
		dl       Downloader
		wantName string
		wantErr  bool
	}{
		{runtime: RuntimeNative, lib: lib, wantName: "native_capture"},
		{runtime: RuntimeWeb, dl: dl, wantName: "dom_capture"},
		{runtime: RuntimeNative, dl: dl, wantErr: true},
		{runtime: RuntimeWeb, lib: lib, wantErr: true},
		{runtime: "desktop", lib: lib, dl: dl, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.runtime+"/"+tt.wantName, func(t *testing.T) {
			s, err := ForRuntime(tt.runtime, tt.lib, tt.dl, WithLogger(quiet))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForRuntime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", s.Name(), tt.wantName)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopExportHooks
	started   []string
	completed []error
}

func (r *recordingHooks) OnExportStart(_ context.Context, strategy string) {
	r.started = append(r.started, strategy)
}

func (r *recordingHooks) OnExportComplete(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	r.completed = append(r.completed, err)
}

func TestExportHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetExportHooks(hooks)
	t.Cleanup(observability.Reset)

	p := New(NewDOMCapture(&fakeDownloader{}, WithLogger(quiet)), quiet)
	if _, err := p.Export(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Export(context.Background(), mountedTarget(t, compose.DefaultSize)); err != nil {
		t.Fatal(err)
	}

	if len(hooks.started) != 1 || hooks.started[0] != "dom_capture" {
		t.Errorf("started = %v, want [dom_capture]", hooks.started)
	}
	if len(hooks.completed) != 1 || hooks.completed[0] != nil {
		t.Errorf("completed = %v, want [nil]", hooks.completed)
	}
}
