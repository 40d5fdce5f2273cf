package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tramesniff/internal/session"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
)

// Step is one phase of a session start-up.
type Step struct {
	Name    string
	Status  StepStatus
	Message string // Optional note, e.g. "timed out, continuing"
}

// Session start-up steps, in order.
const (
	stepOpen = iota
	stepConfig
	stepHandshake
	stepListen
)

// SessionProgress follows a controller through its start-up phases and
// renders them as a bar plus a step list.
type SessionProgress struct {
	Steps []Step
	Width int
	bar   progress.Model
}

// NewSessionProgress creates the step list for a session. configOnly drops
// the handshake and listen phases, as used by send-config.
func NewSessionProgress(configOnly bool) *SessionProgress {
	steps := []Step{
		{Name: "Open sniffer port"},
		{Name: "Send port configuration"},
	}
	if !configOnly {
		steps = append(steps,
			Step{Name: "Wait for " + session.ReadyToken},
			Step{Name: "Listen for frames"},
		)
	}
	steps[stepOpen].Status = StepRunning

	p := &SessionProgress{Steps: steps}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth sets the terminal width and resizes the bar
func (p *SessionProgress) SetWidth(width int) *SessionProgress {
	p.Width = width
	barWidth := width - 20 // Leave room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	return p
}

// Observe advances the step list to match a controller state.
func (p *SessionProgress) Observe(s session.State) {
	switch s {
	case session.SendingConfig:
		p.advanceTo(stepConfig)
	case session.AwaitingHandshake:
		p.advanceTo(stepHandshake)
	case session.Listening:
		p.advanceTo(stepListen)
	case session.Stopped:
		for i := range p.Steps {
			if p.Steps[i].Status == StepRunning {
				p.Steps[i].Status = StepComplete
			}
		}
	}
}

// Note attaches a message to the step currently running.
func (p *SessionProgress) Note(msg string) {
	if i := p.running(); i >= 0 {
		p.Steps[i].Message = msg
	}
}

// Fail marks the running step as failed.
func (p *SessionProgress) Fail(msg string) {
	if i := p.running(); i >= 0 {
		p.Steps[i].Status = StepFailed
		p.Steps[i].Message = msg
	}
}

// Complete marks every step done; used by send-config, which never reaches
// the Stopped state.
func (p *SessionProgress) Complete() {
	for i := range p.Steps {
		if p.Steps[i].Status != StepFailed {
			p.Steps[i].Status = StepComplete
		}
	}
}

// Percent is the share of completed steps.
func (p *SessionProgress) Percent() float64 {
	if len(p.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete {
			done++
		}
	}
	return float64(done) / float64(len(p.Steps))
}

func (p *SessionProgress) advanceTo(step int) {
	if step >= len(p.Steps) {
		return
	}
	for i := 0; i < step; i++ {
		if p.Steps[i].Status != StepFailed {
			p.Steps[i].Status = StepComplete
		}
	}
	p.Steps[step].Status = StepRunning
}

func (p *SessionProgress) running() int {
	for i, s := range p.Steps {
		if s.Status == StepRunning {
			return i
		}
	}
	return -1
}

// Render returns the bar and the step list
func (p *SessionProgress) Render() string {
	var b strings.Builder

	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete {
			done++
		}
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent()), p.Percent()*100, done, len(p.Steps)),
	))
	b.WriteString("\n\n")

	for i, s := range p.Steps {
		b.WriteString(renderStep(i+1, s))
		b.WriteString("\n")
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *SessionProgress) String() string {
	return p.Render()
}

func renderStep(n int, s Step) string {
	var marker string
	var style lipgloss.Style
	switch s.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, StepFailedStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	line := fmt.Sprintf("  %s %d. %s", marker, n, s.Name)
	if s.Message != "" {
		line += " (" + s.Message + ")"
	}
	return style.Render(line)
}
