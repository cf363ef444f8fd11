package tui

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/lookup"
	"github.com/muurk/modelfinder/internal/ui"
)

// DefaultErrorBannerDuration is how long a failure stays on screen
const DefaultErrorBannerDuration = 3 * time.Second

// recentLimit caps the lookups listed under the input
const recentLimit = 5

// Messages for async operations
type lookupResultMsg struct {
	seq    int
	result lookup.Result
}

type hideErrorMsg struct {
	seq int
}

// Options configures a Model.
type Options struct {
	// Lookup resolves a serial; usually (*lookup.Client).Lookup or a remote client
	Lookup ui.LookupFunc

	// Source is shown under the title, e.g. the endpoint or remote server
	Source string

	// Uppercase converts characters to upper case as they are typed
	Uppercase bool

	// ErrorBannerDuration is how long a failure stays visible
	ErrorBannerDuration time.Duration

	// OnSuccess is called for every resolved lookup, e.g. to record history.
	// It runs as a command, outside Update.
	OnSuccess func(lookup.Result)

	// Recent seeds the list of recent lookups, newest first
	Recent []lookup.Result
}

// Model is the interactive lookup screen. It mirrors a single form: one
// input, a model label shown on success, and an error banner that hides
// itself after a delay.
type Model struct {
	Input   textinput.Model
	Spinner spinner.Model
	Help    help.Model
	Keys    keyMap

	// Lookup state
	Pending   bool
	ModelName string
	ShowModel bool
	ErrMsg    string
	Recent    []lookup.Result

	// UI state
	Width  int
	Height int

	opts    Options
	seq     int // current request
	errSeq  int // current error banner
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewModel creates a lookup screen
func NewModel(opts Options) Model {
	if opts.ErrorBannerDuration <= 0 {
		opts.ErrorBannerDuration = DefaultErrorBannerDuration
	}

	input := textinput.New()
	input.Placeholder = "C02ABCDEFGHI"
	input.CharLimit = lookup.LongSerialLen
	input.Width = 20
	input.Prompt = "Serial: "
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	recent := opts.Recent
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return Model{
		Input:   input,
		Spinner: s,
		Help:    help.New(),
		Keys:    newKeyMap(),
		Recent:  recent,
		opts:    opts,
		baseCtx: context.Background(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case key.Matches(msg, m.Keys.Find):
			return m.find()

		case key.Matches(msg, m.Keys.Reset):
			return m.reset(), nil
		}

		if m.opts.Uppercase && msg.Type == tea.KeyRunes {
			msg.Runes = upperRunes(msg.Runes)
		}
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd

	case lookupResultMsg:
		return m.handleResult(msg)

	case hideErrorMsg:
		// A newer banner is not hidden by an older timer
		if msg.seq == m.errSeq {
			m.ErrMsg = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.Pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// find starts a lookup for the current input, superseding any pending one
func (m Model) find() (tea.Model, tea.Cmd) {
	if m.opts.Lookup == nil {
		return m, nil
	}
	if m.cancel != nil {
		m.cancel()
	}

	m.seq++
	m.Pending = true

	ctx, cancel := context.WithCancel(m.baseCtx)
	m.cancel = cancel

	seq := m.seq
	raw := m.Input.Value()
	fn := m.opts.Lookup

	logging.Debug("Lookup requested", zap.Int("seq", seq), zap.String("serial", raw))

	return m, tea.Batch(m.Spinner.Tick, func() tea.Msg {
		return lookupResultMsg{seq: seq, result: fn(ctx, raw)}
	})
}

// handleResult applies a finished lookup unless a newer one was started
func (m Model) handleResult(msg lookupResultMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq {
		logging.Debug("Ignoring superseded lookup result", zap.Int("seq", msg.seq), zap.Int("current", m.seq))
		return m, nil
	}

	m.Pending = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	r := msg.result
	if r.OK() {
		m.ModelName = r.Model
		m.ShowModel = true
		m.ErrMsg = ""
		m.Keys.Reset.SetEnabled(true)
		m.Recent = prependRecent(m.Recent, r)
		if onSuccess := m.opts.OnSuccess; onSuccess != nil {
			// Off the update loop; history saving touches the disk
			return m, func() tea.Msg {
				onSuccess(r)
				return nil
			}
		}
		return m, nil
	}

	m.ModelName = ""
	m.ShowModel = false
	m.Keys.Reset.SetEnabled(false)
	m.ErrMsg = r.Message()
	m.errSeq++

	seq := m.errSeq
	return m, tea.Tick(m.opts.ErrorBannerDuration, func(time.Time) tea.Msg {
		return hideErrorMsg{seq: seq}
	})
}

// reset clears the input, model label and error banner
func (m Model) reset() Model {
	m.Input.Reset()
	m.ModelName = ""
	m.ShowModel = false
	m.ErrMsg = ""
	m.errSeq++
	m.Keys.Reset.SetEnabled(false)
	return m
}

// View implements tea.Model
func (m Model) View() string {
	return RenderApplicationContainer(m.buildContent(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m Model) buildContent() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Look up an Apple serial number"))
	b.WriteString("\n")
	if m.opts.Source != "" {
		b.WriteString(SubtitleStyle.Render("Using " + m.opts.Source))
		b.WriteString("\n")
	}
	b.WriteString(SubtitleStyle.Render(findSerialHint()))
	b.WriteString("\n\n")

	b.WriteString(InputBoxStyle.Render(m.Input.View()))
	b.WriteString("\n")

	if m.Pending {
		b.WriteString("\n")
		b.WriteString(PendingStyle.Render(m.Spinner.View() + " Looking up..."))
		b.WriteString("\n")
	}

	if m.ShowModel {
		label := m.ModelName
		if label == "" {
			label = "(no name returned)"
		}
		b.WriteString("\n")
		b.WriteString(ModelLabelStyle.Render(ui.SuccessMarker + " " + label))
		b.WriteString("\n")
	}

	if m.ErrMsg != "" {
		b.WriteString("\n")
		b.WriteString(ErrorBannerStyle.Render(ui.FailureMarker + " " + m.ErrMsg))
		b.WriteString("\n")
	}

	if len(m.Recent) > 0 {
		b.WriteString("\n")
		b.WriteString(HistoryTitleStyle.Render("Recent"))
		b.WriteString("\n")
		for _, r := range m.Recent {
			b.WriteString(HistoryItemStyle.Render(fmt.Sprintf("%-12s  %s", r.Serial, r.Model)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func upperRunes(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToUpper(r)
	}
	return out
}

func prependRecent(recent []lookup.Result, r lookup.Result) []lookup.Result {
	out := make([]lookup.Result, 0, recentLimit)
	out = append(out, r)
	for _, prev := range recent {
		if len(out) == recentLimit {
			break
		}
		if prev.Key == r.Key {
			continue
		}
		out = append(out, prev)
	}
	return out
}

// Run starts the full-screen lookup program and blocks until it exits
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
