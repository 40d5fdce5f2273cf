package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/highlight"
)

// NewLiveProgram wraps a LiveModel in a full-screen program bound to ctx.
// Callers feed it with Program.Send(FrameMsg{...}) from other goroutines.
func NewLiveProgram(ctx context.Context, m LiveModel, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	return tea.NewProgram(m, opts...)
}

// Printer provides methods for printing UI components to a writer.
// Commands that do not run the live view print through it.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintProgress prints the current session start-up steps
func (p *Printer) PrintProgress(sp *SessionProgress) {
	p.Print(sp.SetWidth(p.width).Render())
}

// PrintFrame prints one frame in plain (non full-screen) mode: a sequence
// number followed by the painted bits, hex and text lines.
func (p *Printer) PrintFrame(seq int, entry codec.Entry, spans highlight.FrameSpans) {
	bits, hex, text := PaintFrame(entry, spans)
	prefix := fmt.Sprintf("#%-5d ", seq)
	indent := strings.Repeat(" ", len(prefix))
	p.Println(prefix + bits)
	p.Println(indent + hex)
	p.Println(indent + text)
}
