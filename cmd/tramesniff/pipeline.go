package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/muurk/tramesniff/internal/capture"
	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/discovery"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/logging"
	"github.com/muurk/tramesniff/internal/server"
	"github.com/muurk/tramesniff/internal/session"
	"github.com/muurk/tramesniff/internal/store"
	"github.com/muurk/tramesniff/internal/timeline"
	"github.com/muurk/tramesniff/internal/ui"
	"github.com/muurk/tramesniff/internal/version"
)

// frameBuffer is how many frames may queue between the source goroutine and
// the consumers before the source blocks.
const frameBuffer = 1024

// frameSource produces frames through emit until it ends or ctx is done.
// state reports progress the way a session controller does and warn reports
// problems the source survives.
type frameSource func(ctx context.Context, emit func(bits string), state func(session.State), warn func(error)) error

// controllerSource runs a session controller.
func controllerSource(cfg session.Config) frameSource {
	return func(ctx context.Context, emit func(string), state func(session.State), warn func(error)) error {
		ctrl := session.New(cfg, emit, session.WithStateHook(state), session.WithWarningHook(warn))
		return ctrl.Run(ctx)
	}
}

// pipelineOptions selects the consumers of a capture.
type pipelineOptions struct {
	Title     string
	Params    map[string]string // shown in the plain mode header
	Plain     bool              // print frames instead of running the live view
	Steps     bool              // print session start-up steps in plain mode
	Store     *store.Store      // capture log, rules and dictionary; may be nil
	Persist   bool              // insert frames into Store
	Rules     []highlight.Rule  // extra rules on top of the stored filters
	Record    string            // CBOR capture file
	Feed      bool
	FeedHost  string
	FeedPort  int
	Advertise bool
	Port      string // serial port, advertised in the feed TXT record
	Sniff     string
	// BitDuration scales the live view's time axis; zero means 1ms per bit.
	BitDuration time.Duration
}

// pipeline fans every frame out to the store, the recorder, the feed and
// the terminal.
type pipeline struct {
	dict     *codec.Dictionary
	rules    []highlight.Rule
	spanOpts []highlight.Option
	store    *store.Store
	persist  bool
	recorder *capture.Recorder
	hub      *server.Hub
	program  *tea.Program
	printer  *ui.Printer
	timeline *timeline.Timeline

	mu       sync.Mutex // serializes printer output
	seq      int
	progress *ui.SessionProgress

	// warnings throttles per-frame failure logs; a dead disk would
	// otherwise log once per frame.
	warnings rate.Sometimes
	failures int
}

func (p *pipeline) warn(msg string, err error) {
	p.mu.Lock()
	p.failures++
	failures := p.failures
	p.mu.Unlock()
	p.warnings.Do(func() {
		logging.Warn(msg, zap.Error(err), zap.Int("failures", failures))
	})
}

func (p *pipeline) handle(ctx context.Context, bits string) {
	entry := codec.NewEntry(bits, p.dict)
	boundary := p.timeline.Append(entry.Bits)

	if p.persist {
		if _, err := p.store.InsertFrame(ctx, entry, time.Now()); err != nil {
			p.warn("Failed to store frame", err)
		}
	}
	if p.recorder != nil {
		if err := p.recorder.Record(entry.Bits); err != nil {
			p.warn("Failed to record frame", err)
		}
	}

	var spans highlight.FrameSpans
	if p.hub != nil || p.printer != nil {
		spans = highlight.SpansForFrame(entry, p.rules, p.spanOpts...)
	}
	if p.hub != nil {
		p.hub.PublishFrame(entry, spans, boundary)
	}
	if p.program != nil {
		p.program.Send(ui.FrameMsg{Entry: entry})
	}
	if p.printer != nil {
		p.mu.Lock()
		p.seq++
		p.printer.PrintFrame(p.seq, entry, spans)
		p.mu.Unlock()
	}
}

func (p *pipeline) state(s session.State) {
	if p.program != nil {
		p.program.Send(ui.StateMsg{State: s})
		return
	}
	if p.progress == nil || s == session.Idle {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress.Observe(s)
	if s != session.Stopped {
		p.printer.PrintProgress(p.progress)
		p.printer.Newline()
	}
}

// notice reports a problem the source survived.
func (p *pipeline) notice(err error) {
	logging.Warn("Session warning", zap.Error(err))
	if p.program != nil {
		p.program.Send(ui.WarningMsg{Text: noticeText(err)})
		return
	}
	if p.printer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printer.PrintWarning(noticeText(err), map[string]string{"Detail": err.Error()})
}

func noticeText(err error) string {
	if errors.Is(err, session.ErrHandshakeTimeout) {
		return "Handshake timed out, listening anyway"
	}
	return err.Error()
}

// reset clears what the live view's clear key clears elsewhere.
func (p *pipeline) reset() {
	p.timeline.Clear()
	if p.hub != nil {
		p.hub.Reset()
	}
}

// runPipeline wires a frame source to its consumers and blocks until the
// source ends (plain mode) or the user quits the live view.
func runPipeline(parent context.Context, src frameSource, opts pipelineOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := &pipeline{
		rules:    append([]highlight.Rule(nil), opts.Rules...),
		store:    opts.Store,
		persist:  opts.Persist && opts.Store != nil,
		timeline: timeline.New(),
		warnings: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}

	if opts.Store != nil {
		dict, err := opts.Store.LoadDictionary(ctx)
		if err != nil {
			return err
		}
		filters, err := opts.Store.ListFilters(ctx)
		if err != nil {
			return err
		}
		p.dict = dict
		p.rules = append(p.rules, store.Rules(filters)...)
		if dict.Len() > 0 {
			p.spanOpts = []highlight.Option{highlight.WithDictionary(dict)}
		}
	}

	if opts.Record != "" {
		f, err := os.Create(opts.Record)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logging.Warn("Failed to close capture file", zap.Error(err))
			}
		}()
		p.recorder = capture.NewRecorder(f, nil)
	}

	var srv *server.Server
	if opts.Feed {
		srv = server.New(&server.Config{Host: opts.FeedHost, Port: opts.FeedPort})
		p.hub = srv.Hub()
	}

	if opts.Plain {
		p.printer = ui.NewPrinter(os.Stdout)
		if opts.Steps {
			p.progress = ui.NewSessionProgress(false)
		}
		p.printer.PrintHeader(opts.Title, "tramesniff", opts.Params)
	} else {
		model := ui.NewLiveModel(ui.LiveConfig{
			Title:      opts.Title,
			Rules:      p.rules,
			Dictionary:  p.dict,
			OnClear:     p.reset,
			BitDuration: opts.BitDuration,
		})
		p.program = ui.NewLiveProgram(ctx, model)
	}

	frames := make(chan string, frameBuffer)
	emit := func(bits string) {
		select {
		case frames <- bits:
		case <-ctx.Done():
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		err := src(gctx, emit, p.state, p.notice)
		if p.program != nil {
			p.program.Send(ui.StateMsg{State: session.Stopped, Err: err})
		}
		return err
	})

	g.Go(func() error {
		for bits := range frames {
			p.handle(gctx, bits)
		}
		if p.program == nil {
			// Plain mode ends with the source; stop the feed too.
			cancel()
		}
		return nil
	})

	if srv != nil {
		g.Go(func() error {
			return srv.Start(gctx)
		})
		if opts.Advertise {
			g.Go(func() error {
				return advertiseFeed(gctx, srv, opts)
			})
		}
	}

	if p.program != nil {
		g.Go(func() error {
			defer cancel()
			_, err := p.program.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if p.printer != nil {
		p.printSummary(err, opts)
	}
	return err
}

func (p *pipeline) printSummary(err error, opts pipelineOptions) {
	if err != nil {
		var sessErr *session.SessionError
		var tips []string
		if errors.As(err, &sessErr) {
			tips = ui.SerialTroubleshooting()
		}
		if p.progress != nil {
			p.progress.Fail(err.Error())
			p.printer.PrintProgress(p.progress)
		}
		p.printer.PrintError("Capture failed", err, tips)
		return
	}

	details := map[string]string{
		"Frames": fmt.Sprintf("%d", p.seq),
		"Bits":   fmt.Sprintf("%d", p.timeline.BitCount()),
	}
	if p.failures > 0 {
		details["Write failures"] = fmt.Sprintf("%d", p.failures)
	}
	if p.recorder != nil {
		details["Recorded"] = fmt.Sprintf("%d to %s", p.recorder.Count(), opts.Record)
	}
	if p.persist {
		details["Database"] = p.store.Path()
	}
	p.printer.PrintSuccess("Capture finished", details)
}

// advertiseFeed announces the feed once the server is bound and withdraws it
// when ctx ends. Advertising is best effort.
func advertiseFeed(ctx context.Context, srv *server.Server, opts pipelineOptions) error {
	select {
	case <-srv.Ready():
	case <-ctx.Done():
		return nil
	}

	addr := srv.Addr()
	if addr == nil {
		return nil
	}
	port := opts.FeedPort
	if a, ok := addr.(*net.TCPAddr); ok {
		port = a.Port
	}

	host, _ := os.Hostname()
	if host == "" {
		host = "tramesniff"
	}
	adv, err := discovery.Advertise("tramesniff on "+host, port, discovery.FeedInfo{
		Version:    version.Version,
		SerialPort: opts.Port,
		Sniff:      opts.Sniff,
		Session:    srv.Session(),
	})
	if err != nil {
		logging.Warn("Failed to advertise feed", zap.Error(err))
		return nil
	}
	<-ctx.Done()
	adv.Shutdown()
	return nil
}
