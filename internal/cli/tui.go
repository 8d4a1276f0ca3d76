package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stickersmash/pkg/errors"
	"github.com/matzehuels/stickersmash/pkg/location"
	"github.com/matzehuels/stickersmash/pkg/location/provider"
	"github.com/matzehuels/stickersmash/pkg/screen"
)

var (
	tuiHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
	tuiMarkerStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	tuiDialogStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorYellow).Padding(0, 1).Width(56)
)

// actionKeys binds the About screen buttons to keys.
var actionKeys = map[string]string{
	screen.ActionTryAgain:     "t",
	screen.ActionOpenSettings: "s",
	screen.ActionRetry:        "r",
}

// =============================================================================
// Messages
// =============================================================================

type statusMsg struct{ status location.Status }

type settingsDoneMsg struct{ opened bool }

type alertMsg struct{ alert errors.Alert }

// askMsg is a yes/no question from a controller collaborator. The answer
// goes to reply.
type askMsg struct {
	title   string
	message string
	yes     string
	no      string
	reply   chan<- bool
}

type tickMsg struct{}

// =============================================================================
// AboutModel - Interactive location screen
// =============================================================================

// AboutModel is the bubbletea model of the About screen.
type AboutModel struct {
	ctx   context.Context
	about *screen.About

	view  screen.AboutView
	busy  bool
	frame int
	ask   *askMsg
	alert *errors.Alert
}

// NewAboutModel creates the model. Init mounts the screen, which starts an
// acquisition.
func NewAboutModel(ctx context.Context, about *screen.About) AboutModel {
	return AboutModel{ctx: ctx, about: about, view: about.View(), busy: true}
}

func (m AboutModel) Init() tea.Cmd {
	return tea.Batch(m.acquire(m.about.Mount), tick())
}

func (m AboutModel) acquire(fn func(context.Context) location.Status) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return statusMsg{status: fn(ctx)} }
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m AboutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.view = screen.ViewFor(msg.status)
		m.busy = false
	case settingsDoneMsg:
		m.busy = false
	case askMsg:
		m.ask = &msg
	case alertMsg:
		m.alert = &msg.alert
	case tickMsg:
		m.frame++
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AboutModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.ask != nil {
			m.ask.reply <- false
		}
		return m, tea.Quit
	}

	if m.ask != nil {
		switch key {
		case "y", "enter":
			m.ask.reply <- true
			m.ask = nil
		case "n", "esc":
			m.ask.reply <- false
			m.ask = nil
		}
		return m, nil
	}
	if m.alert != nil {
		m.alert = nil
		return m, nil
	}

	switch key {
	case "q", "esc":
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	for _, action := range m.view.Actions {
		if actionKeys[action] != key {
			continue
		}
		m.busy = true
		switch action {
		case screen.ActionTryAgain:
			m.view = screen.ViewFor(location.Loading{})
			return m, m.acquire(m.about.TryAgain)
		case screen.ActionRetry:
			m.view = screen.ViewFor(location.Loading{})
			return m, m.acquire(m.about.Retry)
		case screen.ActionOpenSettings:
			ctx, about := m.ctx, m.about
			return m, func() tea.Msg { return settingsDoneMsg{opened: about.OpenSettings(ctx)} }
		}
	}
	return m, nil
}

func (m AboutModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("StickerSmash · About"))
	b.WriteString("\n\n")

	v := m.view
	switch {
	case v.Spinner:
		frame := spinnerFrames[m.frame%len(spinnerFrames)]
		b.WriteString(styleIconSpinner.Render(frame) + " " + v.Message + "\n")
		b.WriteString(StyleDim.Render(v.Help) + "\n")
	case v.Map != nil:
		for _, mk := range v.Map.Markers {
			b.WriteString(tuiMarkerStyle.Render("●") + " " + StyleValue.Render(mk.Title) + "  " + mk.Coordinate.String() + "\n")
		}
		r := v.Map.Region
		b.WriteString(StyleDim.Render(fmt.Sprintf("span %.4f° × %.4f°", r.LatitudeDelta, r.LongitudeDelta)) + "\n")
		b.WriteString(StyleLink.Render(r.URL()) + "\n")
	default:
		b.WriteString(StyleWarning.Render(v.Message) + "\n")
		if v.Help != "" {
			b.WriteString(StyleDim.Render(v.Help) + "\n")
		}
		if len(v.Actions) > 0 {
			b.WriteString("\n" + renderActions(v.Actions) + "\n")
		}
	}

	if m.ask != nil {
		body := lipgloss.NewStyle().Bold(true).Render(m.ask.title) + "\n" + m.ask.message + "\n\n" +
			fmt.Sprintf("[y] %s   [n] %s", m.ask.yes, m.ask.no)
		b.WriteString("\n" + tuiDialogStyle.Render(body) + "\n")
	}
	if m.alert != nil {
		b.WriteString("\n" + renderAlert(*m.alert) + "\n")
		b.WriteString(tuiHelpStyle.Render("press any key") + "\n")
	}

	b.WriteString("\n" + tuiHelpStyle.Render(m.help()))
	return b.String()
}

func (m AboutModel) help() string {
	parts := make([]string, 0, len(m.view.Actions)+1)
	for _, a := range m.view.Actions {
		parts = append(parts, actionKeys[a]+" "+strings.ToLower(a))
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, "  ")
}

// =============================================================================
// Bridge
// =============================================================================

// teaBridge lets the About controller ask questions and raise alerts inside
// a running program. It serves as the permission prompter, the settings
// confirmer and the alert notifier.
type teaBridge struct {
	mu   sync.Mutex
	prog *tea.Program
}

func (b *teaBridge) setProgram(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prog = p
}

func (b *teaBridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	p := b.prog
	b.mu.Unlock()
	if p == nil {
		return false
	}
	p.Send(msg)
	return true
}

func (b *teaBridge) ask(ctx context.Context, title, message, yes, no string) (bool, error) {
	reply := make(chan bool, 1)
	if !b.send(askMsg{title: title, message: message, yes: yes, no: no, reply: reply}) {
		return false, errors.New(errors.ErrCodeInternal, "no interactive screen")
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Prompt implements provider.Prompter.
func (b *teaBridge) Prompt(ctx context.Context, question string) (bool, error) {
	return b.ask(ctx, "Location Access", question, "Allow", "Don't Allow")
}

// Confirm implements screen.Confirmer.
func (b *teaBridge) Confirm(ctx context.Context, d screen.Dialog) (bool, error) {
	return b.ask(ctx, d.Title, d.Message, d.Confirm, d.Cancel)
}

// Notify implements screen.Notifier.
func (b *teaBridge) Notify(_ context.Context, a errors.Alert) {
	b.send(alertMsg{alert: a})
}

var (
	_ provider.Prompter = (*teaBridge)(nil)
	_ screen.Confirmer  = (*teaBridge)(nil)
	_ screen.Notifier   = (*teaBridge)(nil)
)

// runAboutTUI runs the interactive About screen until the user quits.
func (c *CLI) runAboutTUI(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Log lines would tear the alternate screen.
	a.logger.SetOutput(io.Discard)

	bridge := &teaBridge{}
	about, err := a.about(ctx, a.permissions(bridge),
		screen.WithConfirmer(bridge),
		screen.WithAboutNotifier(bridge))
	if err != nil {
		return err
	}

	prog := tea.NewProgram(NewAboutModel(ctx, about), tea.WithContext(ctx), tea.WithAltScreen())
	bridge.setProgram(prog)
	_, err = prog.Run()
	return err
}
