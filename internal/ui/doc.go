// Package ui provides the terminal presentation layer for tramesniff.
//
// It uses Bubble Tea and Lipgloss for two kinds of output:
//
//   - The live view (LiveModel), a full-screen program showing the bits, hex
//     and text panes of received frames with filter highlights, plus a
//     waveform strip of the most recent bits.
//   - "Run once and exit" components for the other commands: Header,
//     SessionProgress, Result boxes and the Printer that writes them.
//
// # Live view
//
// The capture loop runs on its own goroutine and hands frames over with
// Program.Send:
//
//	m := ui.NewLiveModel(ui.LiveConfig{Title: "/dev/ttyUSB0", Rules: rules})
//	p := ui.NewLiveProgram(ctx, m)
//	ctrl := session.New(cfg, func(bits string) {
//	    p.Send(ui.FrameMsg{Entry: codec.NewEntry(bits, dict)})
//	})
//
// Keys: f cycles the active filter subset (all rules, each rule alone,
// none), c clears, p pauses and q quits.
//
// # Painting
//
// Highlight spans come from the highlight package as plain (start, end,
// color) triples. Paint is the only place they are turned into terminal
// colors; color tags are either names ("red", "cyan") or anything lipgloss
// accepts ("#FF00FF", "205").
//
// # Logging Integration
//
// The live view owns stdout, so zap logging controlled by TRAMESNIFF_LOG_LEVEL
// must be sent to stderr or a file while it runs.
package ui
