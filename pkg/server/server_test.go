package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/stickersmash/pkg/compose"
	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/export"
	"github.com/matzehuels/stickersmash/pkg/geo"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

var quiet = log.New(io.Discard)

type fakeService struct {
	permission location.Permission
}

func (f *fakeService) ServicesEnabled(context.Context) (bool, error) { return true, nil }

func (f *fakeService) RequestForegroundPermission(context.Context) (location.Permission, error) {
	return f.permission, nil
}

func (f *fakeService) CurrentPosition(context.Context, location.Request) (geo.Fix, error) {
	return geo.Fix{Latitude: 52.52, Longitude: 13.405}, nil
}

type failingOpener struct{}

func (failingOpener) Open(context.Context) error {
	return errors.New(errors.ErrCodeSettingsLaunch, "no settings app")
}

type fixture struct {
	handler http.Handler
	home    *screen.Home
	about   *screen.About
	svc     *fakeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := &fakeService{permission: location.PermissionGranted}
	acq := location.NewAcquirer(svc, location.WithLogger(quiet))
	about := screen.NewAbout(acq, failingOpener{},
		screen.WithAboutNotifier(NewNotifier()),
		screen.WithAboutLogger(quiet))

	surface, err := compose.NewSurface(compose.DefaultSize, compose.Placeholder(compose.DefaultSize))
	if err != nil {
		t.Fatal(err)
	}
	pipeline := export.New(export.NewDOMCapture(NewDownloader(), export.WithLogger(quiet)), quiet)
	home := screen.NewHome(surface, pipeline,
		screen.WithPicker(NewPicker()),
		screen.WithHomeNotifier(NewNotifier()),
		screen.WithHomeLogger(quiet))
	if err := home.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}

	consent, err := provider.NewConsentStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(Config{About: about, Home: home, Consent: consent, Logger: quiet})
	return &fixture{handler: srv.Handler(), home: home, about: about, svc: svc}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, target, field string, img image.Image) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if img != nil {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatal(err)
		}
		if err := imaging.Encode(fw, img, imaging.PNG); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type homeResponse struct {
	View   screen.HomeView `json:"view"`
	Alerts []errors.Alert  `json:"alerts"`
}

type locationResponse struct {
	View struct {
		Screen     screen.AboutView `json:"screen"`
		Permission string           `json:"permission"`
	} `json:"view"`
	Alerts []errors.Alert `json:"alerts"`
}

func solid(w, h int, c color.NRGBA) image.Image {
	return imaging.New(w, h, c)
}

// =============================================================================
// Location
// =============================================================================

func TestLocationLoadingBeforeAcquire(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/location", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[locationResponse](t, rec)
	if got.View.Screen.State != location.StateLoading || !got.View.Screen.Spinner {
		t.Errorf("screen = %+v, want loading", got.View.Screen)
	}
}

func TestLocationAcquireAndMap(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/location/map.png", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("map before ready: status = %d, want 409", rec.Code)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/location/acquire", nil))
	got := decode[locationResponse](t, rec)
	if got.View.Screen.State != location.StateReady || got.View.Screen.Map == nil {
		t.Fatalf("screen = %+v, want ready with map", got.View.Screen)
	}
	if got.View.Permission != "granted" {
		t.Errorf("permission = %q", got.View.Permission)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/location/map.png", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("map: status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if _, err := imaging.Decode(rec.Body); err != nil {
		t.Errorf("map is not an image: %v", err)
	}
}

func TestLocationRefusedView(t *testing.T) {
	f := newFixture(t)
	f.svc.permission = location.PermissionDenied

	got := decode[locationResponse](t, f.do(t, httptest.NewRequest(http.MethodPost, "/api/location/acquire", nil)))
	if got.View.Screen.State != location.StatePermissionRefused {
		t.Fatalf("state = %v", got.View.Screen.State)
	}
	if len(got.View.Screen.Actions) != 2 {
		t.Errorf("actions = %v, want Try Again and Open Settings", got.View.Screen.Actions)
	}
}

func TestOpenSettingsFailureAlert(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/location/settings", nil))
	var got struct {
		View   map[string]bool `json:"view"`
		Alerts []errors.Alert  `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.View["opened"] {
		t.Error("opened = true, want false")
	}
	if len(got.Alerts) != 1 {
		t.Fatalf("alerts = %v, want one launch failure alert", got.Alerts)
	}
}

func TestPermissionDecision(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"granted", `{"decision":"granted"}`, http.StatusOK},
		{"denied", `{"decision":"denied"}`, http.StatusOK},
		{"undetermined", `{"decision":"undetermined"}`, http.StatusBadRequest},
		{"unknown", `{"decision":"maybe"}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, httptest.NewRequest(http.MethodPut, "/api/location/permission", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestClearPermission(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/location/permission", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

// =============================================================================
// Home
// =============================================================================

func TestPhotoUploadAndCancel(t *testing.T) {
	f := newFixture(t)

	got := decode[homeResponse](t, f.do(t, upload(t, "/api/home/photo", "photo", nil)))
	if len(got.Alerts) != 1 || got.Alerts[0] != screen.NoImageAlert {
		t.Errorf("cancel alerts = %v, want NoImageAlert", got.Alerts)
	}
	if got.View.ShowOptions {
		t.Error("options shown after cancel")
	}

	got = decode[homeResponse](t, f.do(t, upload(t, "/api/home/photo", "photo", solid(80, 60, color.NRGBA{R: 200, A: 255}))))
	if len(got.Alerts) != 0 {
		t.Errorf("alerts = %v, want none", got.Alerts)
	}
	if !got.View.ShowOptions || got.View.BaseURI != "upload:photo.png" {
		t.Errorf("view = %+v, want options for upload:photo.png", got.View)
	}
}

func TestPhotoUploadRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("photo", "photo.png")
	fw.Write([]byte("not an image"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/home/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := f.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Code != errors.ErrCodeInvalidImage {
		t.Errorf("code = %q", got.Code)
	}
}

func TestStickerFlow(t *testing.T) {
	f := newFixture(t)

	got := decode[homeResponse](t, f.do(t, httptest.NewRequest(http.MethodPost, "/api/home/sticker/picker", nil)))
	if !got.View.StickerPickerOpen {
		t.Fatal("picker not open")
	}

	rec := f.do(t, httptest.NewRequest(http.MethodPut, "/api/home/sticker/offset", strings.NewReader(`{"x":1,"y":2}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("move without sticker: status = %d, want 400", rec.Code)
	}

	got = decode[homeResponse](t, f.do(t, upload(t, "/api/home/sticker", "sticker", solid(20, 20, color.NRGBA{G: 255, A: 255}))))
	if !got.View.HasSticker || got.View.StickerPickerOpen {
		t.Fatalf("view = %+v, want sticker placed and picker closed", got.View)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodPut, "/api/home/sticker/offset", strings.NewReader(`{"x":15,"y":-5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("move: status = %d", rec.Code)
	}
	if p := f.home.Surface().Overlay(); p == nil || p.Offset != image.Pt(15, -5) {
		t.Errorf("overlay = %+v, want offset (15,-5)", p)
	}

	got = decode[homeResponse](t, f.do(t, httptest.NewRequest(http.MethodPost, "/api/home/reset", nil)))
	if got.View.HasSticker || got.View.ShowOptions {
		t.Errorf("after reset view = %+v", got.View)
	}
}

func TestStickerUploadRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, upload(t, "/api/home/sticker", "sticker", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/home/preview.jpg", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	img, err := imaging.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != compose.DefaultSize {
		t.Errorf("preview size = %v, want %v", got, compose.DefaultSize)
	}
}

func TestPreviewUnmounted(t *testing.T) {
	f := newFixture(t)
	f.home.Surface().Unmount()
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/home/preview.jpg", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSaveDownloadsAttachment(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/home/save", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="sticker-smash.jpeg"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.MIMEJPEG {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := imaging.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(export.DOMWidth, export.DOMHeight) {
		t.Errorf("download size = %v", got)
	}
}

// brokenWriter accepts the status but fails every body write.
type brokenWriter struct {
	header http.Header
	codes  []int
	writes int
}

func (b *brokenWriter) Header() http.Header { return b.header }

func (b *brokenWriter) WriteHeader(code int) { b.codes = append(b.codes, code) }

func (b *brokenWriter) Write([]byte) (int, error) {
	b.writes++
	return 0, stderrors.New("connection reset")
}

func TestSaveWriteFailureKeepsAttachmentResponse(t *testing.T) {
	f := newFixture(t)
	w := &brokenWriter{header: http.Header{}}
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/home/save", nil))

	if len(w.codes) != 1 || w.codes[0] != http.StatusOK {
		t.Errorf("statuses = %v, want [200]", w.codes)
	}
	if w.writes != 1 {
		t.Errorf("body writes = %d, want only the attachment", w.writes)
	}
	if ct := w.header.Get("Content-Type"); ct != export.MIMEJPEG {
		t.Errorf("Content-Type = %q, want %q", ct, export.MIMEJPEG)
	}
}

func TestSaveUnmounted(t *testing.T) {
	f := newFixture(t)
	f.home.Surface().Unmount()
	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/home/save", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCollaboratorsOutsideRequest(t *testing.T) {
	ctx := context.Background()
	if err := NewDownloader().Download(ctx, "x.jpeg", export.EncodeDataURI([]byte{1})); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Download() error = %v, want INTERNAL_ERROR", err)
	}
	if _, _, err := NewPicker().PickImage(ctx); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("PickImage() error = %v, want INTERNAL_ERROR", err)
	}
	NewNotifier().Notify(ctx, screen.SavedAlert)
}

// =============================================================================
// Misc
// =============================================================================

func TestHealthAndVersion(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Body.String() != "ok" {
		t.Errorf("healthz = %q", rec.Body.String())
	}
	got := decode[map[string]string](t, f.do(t, httptest.NewRequest(http.MethodGet, "/version", nil)))
	if got["version"] == "" {
		t.Errorf("version = %v", got)
	}
}

func TestMetricsAndMiddleware(t *testing.T) {
	var seen []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("# metrics")) })
	f := newFixture(t)
	srv := New(Config{About: f.about, Home: f.home, Metrics: metrics, Middleware: []func(http.Handler) http.Handler{mw}, Logger: quiet})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "# metrics" {
		t.Errorf("/metrics = %q", rec.Body.String())
	}
	if len(seen) != 1 || seen[0] != "/metrics" {
		t.Errorf("middleware saw %v", seen)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/location/permission", strings.NewReader(`{"decision":"granted"}`)))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("permission without store: status = %d, want 501", rec.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	srv := New(Config{About: f.about, Home: f.home, Logger: quiet})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
