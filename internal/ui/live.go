package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/session"
	"github.com/muurk/tramesniff/internal/timeline"
)

// DefaultLiveFrames is how many frames the live view keeps on screen.
const DefaultLiveFrames = 500

// QuickHighlightColor is the color of patterns typed into the live view.
const QuickHighlightColor = "magenta"

// FrameMsg delivers one decoded frame to the live view.
type FrameMsg struct {
	Entry codec.Entry
}

// StateMsg reports a controller state change. Err is set when the session
// ended with an error.
type StateMsg struct {
	State session.State
	Err   error
}

// ResetMsg clears the view as if the clear key was pressed.
type ResetMsg struct{}

// WarningMsg shows a non fatal session problem, such as a missed handshake,
// under the waveform until the view is cleared.
type WarningMsg struct {
	Text string
}

// LiveConfig configures a LiveModel.
type LiveConfig struct {
	Title      string // e.g. "/dev/ttyUSB0 9600 8N1" or "simulation"
	Rules      []highlight.Rule
	Dictionary *codec.Dictionary
	MaxFrames  int
	// BitDuration is the time one bit takes on the sniffed line; it scales
	// the waveform time axis. Zero means one millisecond.
	BitDuration time.Duration

	// OnClear runs when the user clears the view, so other consumers
	// (the websocket feed) can reset too.
	OnClear func()
}

// fixedRows is the number of lines not given to the three panes: status,
// three pane titles, waveform title, strip and axis, help.
const fixedRows = 8

// LiveModel is the Bubble Tea model of the live capture view. It shows the
// bits, hex and text panes with filter highlights and a waveform strip of
// the most recent bits.
type LiveModel struct {
	cfg      LiveConfig
	entries  []codec.Entry
	received int
	pending  []codec.Entry

	buffer   *highlight.Buffer
	timeline *timeline.Timeline
	layout   timeline.Layout

	// filterIdx selects the active rule subset: 0 is every rule, 1..n a
	// single rule, n+1 none.
	filterIdx int
	paused    bool
	follow    bool

	state   session.State
	err     error
	warning string

	bitsView viewport.Model
	hexView  viewport.Model
	textView viewport.Model
	help     help.Model
	keys     liveKeyMap
	spinner  spinner.Model

	// prompting is set while the highlight input has focus.
	prompting bool
	input     textinput.Model

	width  int
	height int
}

// NewLiveModel creates the live view sized to the current terminal.
func NewLiveModel(cfg LiveConfig) LiveModel {
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = DefaultLiveFrames
	}

	// Quick highlights are appended to the rules; never write into the
	// caller's slice.
	cfg.Rules = append([]highlight.Rule(nil), cfg.Rules...)

	var opts []highlight.Option
	if cfg.Dictionary != nil {
		opts = append(opts, highlight.WithDictionary(cfg.Dictionary))
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	input := textinput.New()
	input.Prompt = "highlight> "
	input.Placeholder = "bits, hex (* = any byte) or text"
	input.CharLimit = 128

	m := LiveModel{
		cfg:      cfg,
		buffer:   highlight.NewBuffer(cfg.Rules, opts...),
		timeline: timeline.New(),
		layout:   timeline.CellLayout(cfg.BitDuration),
		follow:   true,
		state:    session.Idle,
		help:     help.New(),
		keys:     newLiveKeyMap(),
		spinner:  s,
		input:    input,
	}
	m.resize(GetTerminalSize())
	return m
}

// Init implements tea.Model
func (m LiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case FrameMsg:
		m.received++
		if m.paused {
			m.pending = append(m.pending, msg.Entry)
			return m, nil
		}
		m.appendEntry(msg.Entry)
		m.refresh()
		return m, nil

	case StateMsg:
		m.state = msg.State
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, nil

	case ResetMsg:
		m.clear()
		return m, nil

	case WarningMsg:
		m.warning = msg.Text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.prompting {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m LiveModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		pattern := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		if pattern != "" {
			m.AddRule(highlight.Rule{Pattern: pattern, Color: QuickHighlightColor})
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *LiveModel) closePrompt() {
	m.prompting = false
	m.input.Blur()
	m.input.SetValue("")
}

// AddRule appends a highlight rule for this view only and makes every rule
// active again.
func (m *LiveModel) AddRule(r highlight.Rule) {
	m.cfg.Rules = append(m.cfg.Rules, r)
	m.filterIdx = 0
	m.buffer.SetRules(m.activeRules())
	m.buffer.Recompute(m.entries)
	m.refresh()
}

// Rules returns every rule of the view, including added ones.
func (m LiveModel) Rules() []highlight.Rule {
	return m.cfg.Rules
}

// Prompting reports whether the highlight input is open.
func (m LiveModel) Prompting() bool {
	return m.prompting
}

func (m LiveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Filter):
		if len(m.cfg.Rules) > 0 {
			m.filterIdx = (m.filterIdx + 1) % (len(m.cfg.Rules) + 2)
			m.buffer.SetRules(m.activeRules())
			m.buffer.Recompute(m.entries)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Highlight):
		m.prompting = true
		m.input.Width = max(m.width-len(m.input.Prompt)-2, 10)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Clear):
		m.clear()
		if m.cfg.OnClear != nil {
			m.cfg.OnClear()
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if !m.paused {
			for _, e := range m.pending {
				m.appendEntry(e)
			}
			m.pending = nil
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.Up, m.keys.Down):
		// Scroll the three panes together so lines stay aligned.
		m.bitsView, _ = m.bitsView.Update(msg)
		m.hexView, _ = m.hexView.Update(msg)
		m.textView, _ = m.textView.Update(msg)
		m.follow = m.bitsView.AtBottom()
		return m, nil
	}
	return m, nil
}

// Entries returns the frames currently shown.
func (m LiveModel) Entries() []codec.Entry {
	return m.entries
}

// Paused reports whether new frames are being held back.
func (m LiveModel) Paused() bool {
	return m.paused
}

// Pending returns how many frames arrived while paused.
func (m LiveModel) Pending() int {
	return len(m.pending)
}

// Received counts every frame delivered since the last clear.
func (m LiveModel) Received() int {
	return m.received
}

// State returns the last reported controller state.
func (m LiveModel) State() session.State {
	return m.state
}

// Err returns the error the session ended with, if any.
func (m LiveModel) Err() error {
	return m.err
}

// Spans returns the highlight spans of the visible frames.
func (m LiveModel) Spans() highlight.FrameSpans {
	return m.buffer.Spans()
}

// Timeline returns the waveform data of the visible frames.
func (m LiveModel) Timeline() *timeline.Timeline {
	return m.timeline
}

// FilterLabel describes the active rule subset.
func (m LiveModel) FilterLabel() string {
	n := len(m.cfg.Rules)
	switch {
	case n == 0:
		return "none"
	case m.filterIdx == 0:
		return fmt.Sprintf("all (%d)", n)
	case m.filterIdx > n:
		return "off"
	default:
		r := m.cfg.Rules[m.filterIdx-1]
		return fmt.Sprintf("#%d %s", m.filterIdx, r.Pattern)
	}
}

func (m LiveModel) activeRules() []highlight.Rule {
	n := len(m.cfg.Rules)
	switch {
	case m.filterIdx == 0:
		return m.cfg.Rules
	case m.filterIdx > n:
		return nil
	default:
		return m.cfg.Rules[m.filterIdx-1 : m.filterIdx]
	}
}

func (m *LiveModel) appendEntry(e codec.Entry) {
	m.entries = append(m.entries, e)
	m.buffer.Append(e)
	m.timeline.Append(e.Bits)
	for len(m.entries) > m.cfg.MaxFrames {
		m.buffer.Trim(m.entries[0])
		m.timeline.DropFirst()
		m.entries = m.entries[1:]
	}
}

func (m *LiveModel) clear() {
	m.entries = nil
	m.pending = nil
	m.received = 0
	m.warning = ""
	m.buffer.Reset()
	m.timeline.Clear()
	m.follow = true
	m.refresh()
}

func (m *LiveModel) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	helpRows := 1
	if m.help.ShowAll {
		helpRows = 3
	}
	pane := (height - fixedRows - (helpRows - 1)) / 3
	if pane < 1 {
		pane = 1
	}

	if m.bitsView.Width == 0 {
		m.bitsView = viewport.New(width, pane)
		m.hexView = viewport.New(width, pane)
		m.textView = viewport.New(width, pane)
		return
	}
	for _, vp := range []*viewport.Model{&m.bitsView, &m.hexView, &m.textView} {
		vp.Width = width
		vp.Height = pane
	}
}

func (m *LiveModel) refresh() {
	spans := m.buffer.Spans()
	m.bitsView.SetContent(PaintBuffer(m.entries, BitsField, spans.Bits))
	m.hexView.SetContent(PaintBuffer(m.entries, HexField, spans.Hex))
	m.textView.SetContent(PaintBuffer(m.entries, TextField, spans.Text))
	if m.follow {
		m.bitsView.GotoBottom()
		m.hexView.GotoBottom()
		m.textView.GotoBottom()
	}
}

// Waveform renders the newest bits of the timeline as a one-line strip of
// at most width cells. Bits matched by an active bit rule take its color.
func (m LiveModel) Waveform(width int) string {
	if width <= 0 {
		return ""
	}
	from := max(m.timeline.BitCount()-width/m.layout.BitWidth, 0)
	strip := timeline.Render(m.timeline, from, width, m.layout)
	colors := timeline.BitColors(strip.Bits, m.activeRules())

	var spans []highlight.Span
	for x, i := range strip.Owner {
		if i >= 0 && colors[i] != "" {
			spans = append(spans, highlight.Span{Start: x, End: x + 1, Color: colors[i]})
		}
	}
	return Paint(strip.String(), spans)
}

// Axis renders the time labels lined up with Waveform(width).
func (m LiveModel) Axis(width int) string {
	if width <= 0 {
		return ""
	}
	n := min(width/m.layout.BitWidth, m.timeline.BitCount())
	return timeline.RenderAxis(m.timeline.BitCount()-n, n, width, m.layout)
}

// Warning returns the last session warning, if any.
func (m LiveModel) Warning() string {
	return m.warning
}

// View implements tea.Model
func (m LiveModel) View() string {
	var b strings.Builder

	state := m.state.String()
	if m.state == session.SendingConfig || m.state == session.AwaitingHandshake {
		state = m.spinner.View() + " " + state
	}
	status := fmt.Sprintf("%s  │  %s  │  frames %d  │  filter %s",
		m.cfg.Title, state, m.received, m.FilterLabel())
	b.WriteString(StatusBarStyle.Render(status))
	if m.paused {
		b.WriteString(" ")
		b.WriteString(PausedStyle.Render(fmt.Sprintf("PAUSED +%d", len(m.pending))))
	}
	b.WriteString("\n")

	b.WriteString(PaneTitleStyle.Render("Bits"))
	b.WriteString("\n")
	b.WriteString(m.bitsView.View())
	b.WriteString("\n")
	b.WriteString(PaneTitleStyle.Render("Hex"))
	b.WriteString("\n")
	b.WriteString(m.hexView.View())
	b.WriteString("\n")
	b.WriteString(PaneTitleStyle.Render("Text"))
	b.WriteString("\n")
	b.WriteString(m.textView.View())
	b.WriteString("\n")

	b.WriteString(PaneTitleStyle.Render(fmt.Sprintf("Timeline (%d bits)", m.timeline.BitCount())))
	b.WriteString("\n")
	b.WriteString(WaveformStyle.Render(m.Waveform(m.width)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render(m.Axis(m.width)))
	b.WriteString("\n")

	if m.warning != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Render("Warning: " + m.warning))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(ErrorMessageStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.prompting {
		b.WriteString(m.input.View())
		return b.String()
	}
	b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render(m.help.View(m.keys)))
	return b.String()
}
