package cli

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/geo"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

type fakeService struct {
	permission location.Permission
	fetchErr   error
	fetches    int
}

func (f *fakeService) ServicesEnabled(context.Context) (bool, error) { return true, nil }

func (f *fakeService) RequestForegroundPermission(context.Context) (location.Permission, error) {
	return f.permission, nil
}

func (f *fakeService) CurrentPosition(context.Context, location.Request) (geo.Fix, error) {
	f.fetches++
	return geo.Fix{Latitude: 48.8566, Longitude: 2.3522}, f.fetchErr
}

type fakeOpener struct{ calls int }

func (o *fakeOpener) Open(context.Context) error {
	o.calls++
	return nil
}

func newTestModel(svc location.Service, opener *fakeOpener) AboutModel {
	quiet := log.New(io.Discard)
	acq := location.NewAcquirer(svc, location.WithLogger(quiet))
	about := screen.NewAbout(acq, opener, screen.WithAboutLogger(quiet))
	return NewAboutModel(context.Background(), about)
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = m.Update(cmd())
	return m
}

func TestAboutModelStartsLoading(t *testing.T) {
	m := newTestModel(&fakeService{permission: location.PermissionGranted}, &fakeOpener{})
	if !strings.Contains(m.View(), screen.LoadingText) {
		t.Errorf("initial view %q does not show the loading text", m.View())
	}
}

func TestAboutModelReady(t *testing.T) {
	m := newTestModel(&fakeService{permission: location.PermissionGranted}, &fakeOpener{})
	got := run(t, m, m.acquire(m.about.Mount))

	view := got.View()
	for _, want := range []string{"You are here", "48.856600, 2.352200", "openstreetmap"} {
		if !strings.Contains(view, want) {
			t.Errorf("ready view missing %q:\n%s", want, view)
		}
	}
}

func TestAboutModelRetry(t *testing.T) {
	svc := &fakeService{permission: location.PermissionGranted, fetchErr: stderrors.New("no signal")}
	m := newTestModel(svc, &fakeOpener{})
	var model tea.Model = run(t, m, m.acquire(m.about.Mount))
	if !strings.Contains(model.View(), "Failed to get location: no signal") {
		t.Fatalf("failed view:\n%s", model.View())
	}

	svc.fetchErr = nil
	model, cmd := model.Update(key("r"))
	if !strings.Contains(model.View(), screen.LoadingText) {
		t.Errorf("retry does not show loading:\n%s", model.View())
	}
	model = run(t, model, cmd)
	if !strings.Contains(model.View(), "You are here") {
		t.Errorf("retry did not reach ready:\n%s", model.View())
	}
	if svc.fetches != 2 {
		t.Errorf("fetches = %d, want 2", svc.fetches)
	}
}

func TestAboutModelIgnoresUnofferedActions(t *testing.T) {
	svc := &fakeService{permission: location.PermissionDenied}
	m := newTestModel(svc, &fakeOpener{})
	var model tea.Model = run(t, m, m.acquire(m.about.Mount))

	if _, cmd := model.Update(key("r")); cmd != nil {
		t.Error("retry is not offered on the refused screen")
	}
	if _, cmd := model.Update(key("t")); cmd == nil {
		t.Error("try again is offered on the refused screen")
	}
}

func TestAboutModelOpenSettings(t *testing.T) {
	opener := &fakeOpener{}
	m := newTestModel(&fakeService{permission: location.PermissionDenied}, opener)
	var model tea.Model = run(t, m, m.acquire(m.about.Mount))

	model, cmd := model.Update(key("s"))
	model = run(t, model, cmd)
	if opener.calls != 1 {
		t.Errorf("opener calls = %d, want 1", opener.calls)
	}
	if model.(AboutModel).busy {
		t.Error("still busy after settings returned")
	}
}

func TestAboutModelDialog(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"y", true},
		{"enter", true},
		{"n", false},
		{"esc", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m := newTestModel(&fakeService{}, &fakeOpener{})
			reply := make(chan bool, 1)
			var model tea.Model = m
			model, _ = model.Update(askMsg{
				title:   screen.PermissionRequiredDialog.Title,
				message: screen.PermissionRequiredDialog.Message,
				yes:     "Open Settings",
				no:      "Cancel",
				reply:   reply,
			})
			if !strings.Contains(model.View(), "Location Permission Required") {
				t.Fatalf("dialog not shown:\n%s", model.View())
			}
			model, _ = model.Update(key(tt.key))
			if got := <-reply; got != tt.want {
				t.Errorf("reply = %v, want %v", got, tt.want)
			}
			if strings.Contains(model.View(), "Location Permission Required") {
				t.Error("dialog still shown after answer")
			}
		})
	}
}

func TestAboutModelAlertDismiss(t *testing.T) {
	m := newTestModel(&fakeService{}, &fakeOpener{})
	var model tea.Model = m
	model, _ = model.Update(alertMsg{alert: errors.Alert{Title: "Unable to open settings", Message: "Open them manually."}})
	if !strings.Contains(model.View(), "Unable to open settings") {
		t.Fatalf("alert not shown:\n%s", model.View())
	}
	model, _ = model.Update(key("x"))
	if strings.Contains(model.View(), "Unable to open settings") {
		t.Error("alert still shown after a key press")
	}
}

func TestTeaBridgeWithoutProgram(t *testing.T) {
	b := &teaBridge{}
	if _, err := b.Prompt(context.Background(), "Allow?"); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("Prompt() error = %v, want INTERNAL_ERROR", err)
	}
	b.Notify(context.Background(), errors.Alert{Message: "dropped"})
}
