package metrics

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/stickersmash/pkg/observability"
)

func TestLocationHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnAcquireStart(ctx)
	if got := testutil.ToFloat64(m.acquireActive); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	m.OnAcquireComplete(ctx, "ready", 20*time.Millisecond)
	if got := testutil.ToFloat64(m.acquireActive); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.acquisitions.WithLabelValues("ready")); got != 1 {
		t.Errorf("ready acquisitions = %v, want 1", got)
	}
}

func TestExportHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnExportComplete(ctx, "native_capture", 2048, time.Millisecond, nil)
	m.OnExportComplete(ctx, "native_capture", 0, time.Millisecond, stderrors.New("x"))

	if got := testutil.ToFloat64(m.exports.WithLabelValues("native_capture", "true")); got != 1 {
		t.Errorf("successful exports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("native_capture", "false")); got != 1 {
		t.Errorf("failed exports = %v, want 1", got)
	}
}

func TestSettingsHooks(t *testing.T) {
	m := New()
	m.OnSettingsLaunch(context.Background(), "linux", stderrors.New("x"))
	if got := testutil.ToFloat64(m.settingsLaunches.WithLabelValues("linux", "false")); got != 1 {
		t.Errorf("failed launches = %v, want 1", got)
	}
}

func TestInstall(t *testing.T) {
	m := New()
	m.Install()
	t.Cleanup(observability.Reset)

	observability.Location().OnAcquireComplete(context.Background(), "failed", time.Millisecond)
	if got := testutil.ToFloat64(m.acquisitions.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed acquisitions = %v, want 1 via global hooks", got)
	}
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/items/{id}", "418")); got != 2 {
		t.Errorf("requests = %v, want 2 under the route pattern", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "stickersmash_http_requests_total") {
		t.Error("/metrics does not expose http request counter")
	}
}
