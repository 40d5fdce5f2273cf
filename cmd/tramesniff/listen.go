package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/config"
	"github.com/muurk/tramesniff/internal/session"
)

// captureFlags are shared by every command that consumes frames.
type captureFlags struct {
	plain      bool
	noDB       bool
	noSave     bool
	record     string
	highlights []string
	feed       bool
	feedHost   string
	feedPort   int
	advertise  bool
}

func (f *captureFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Print frames line by line instead of the live view")
	cmd.Flags().BoolVar(&f.noDB, "no-db", false, "Do not open the database (no stored filters, dictionary or capture log)")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "Do not add frames to the capture log")
	cmd.Flags().StringVar(&f.record, "record", "", "Record frames with timestamps to a capture file for replay")
	cmd.Flags().StringArrayVar(&f.highlights, "highlight", nil, "Highlight PATTERN[=COLOR] on top of stored filters (repeatable)")
	cmd.Flags().BoolVar(&f.feed, "feed", false, "Serve frames over WebSocket")
	cmd.Flags().StringVar(&f.feedHost, "feed-host", "", "Feed listen address (empty = all interfaces)")
	cmd.Flags().IntVar(&f.feedPort, "feed-port", 0, "Feed port (default from config, 8765)")
	cmd.Flags().BoolVar(&f.advertise, "advertise", false, "Announce the feed over mDNS (implies --feed)")
}

// options builds the pipeline options and opens the store when wanted. The
// returned close function is never nil.
func (f *captureFlags) options(ctx context.Context, cmd *cobra.Command, reg *config.Registry) (pipelineOptions, func(), error) {
	noop := func() {}

	rules, err := parseHighlights(f.highlights)
	if err != nil {
		return pipelineOptions{}, noop, err
	}

	prefs := reg.Preferences
	opts := pipelineOptions{
		Plain:     f.plain,
		Rules:     rules,
		Record:    f.record,
		Feed:      f.feed || f.advertise,
		FeedHost:  f.feedHost,
		FeedPort:  prefs.FeedPort,
		Advertise: f.advertise || (prefs.AdvertiseFeed && f.feed),
		Persist:   !f.noSave,
	}
	if cmd.Flags().Changed("feed-port") {
		opts.FeedPort = f.feedPort
	}

	if f.noDB {
		return opts, noop, nil
	}
	st, err := openStore(ctx, reg)
	if err != nil {
		return pipelineOptions{}, noop, err
	}
	opts.Store = st
	return opts, func() { _ = st.Close() }, nil
}

// sessionFlags override the session timing preferences.
type sessionFlags struct {
	port              string
	linkBaud          int
	autoStop          bool
	inactivityTimeout time.Duration
	handshakeTimeout  time.Duration
	strictHandshake   bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "Serial port of the sniffer (default from config)")
	cmd.Flags().IntVar(&f.linkBaud, "link-baud", session.DefaultLinkBaud, "Baud rate of the link to the sniffer")
	cmd.Flags().BoolVar(&f.autoStop, "auto-stop", false, "Stop after --inactivity-timeout without data")
	cmd.Flags().DurationVar(&f.inactivityTimeout, "inactivity-timeout", session.DefaultInactivityTimeout, "Quiet period before auto stop")
	cmd.Flags().DurationVar(&f.handshakeTimeout, "handshake-timeout", session.DefaultHandshakeTimeout, "How long to wait for "+session.ReadyToken)
	cmd.Flags().BoolVar(&f.strictHandshake, "strict-handshake", false, "Fail instead of listening when the handshake times out")
}

// apply overrides the preference based configuration with explicit flags.
func (f *sessionFlags) apply(cmd *cobra.Command, cfg *session.Config) {
	flags := cmd.Flags()
	if flags.Changed("link-baud") {
		cfg.LinkBaud = f.linkBaud
	}
	if flags.Changed("auto-stop") {
		cfg.AutoStop = f.autoStop
	}
	if flags.Changed("inactivity-timeout") {
		cfg.InactivityTimeout = f.inactivityTimeout
	}
	if flags.Changed("handshake-timeout") {
		cfg.HandshakeTimeout = f.handshakeTimeout
	}
	if flags.Changed("strict-handshake") {
		cfg.StrictHandshake = f.strictHandshake
	}
}

var (
	listenCapture captureFlags
	listenSession sessionFlags
	listenSniff   sniffFlags
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Configure the sniffer and capture frames",
	Long: `Send the line settings to the sniffer, wait for it to report
READY_TO_SNIFF and show every frame it receives.

The configuration lines are sent one by one; if the sniffer does not
report ready within --handshake-timeout, listening starts anyway unless
--strict-handshake is set. With --auto-stop the capture ends after
--inactivity-timeout without data.

Line settings come from, in increasing priority: the default profile in
the config file, --profile, --config-id and the individual flags.`,
	Example: `  # Sniff a 9600 8N1 line
  tramesniff listen --port /dev/ttyUSB0

  # Use a saved profile, stop after 30s of silence
  tramesniff listen --port /dev/ttyUSB0 --profile modbus --auto-stop --inactivity-timeout 30s

  # Record for later replay and print frames instead of the live view
  tramesniff listen --port COM3 --record session.cbor --plain`,
	RunE: runListen,
}

func init() {
	listenCapture.register(listenCmd)
	listenSession.register(listenCmd)
	listenSniff.register(listenCmd)
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	port, err := resolvePort(listenSession.port, reg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts, closeStore, err := listenCapture.options(ctx, cmd, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	sniff, err := listenSniff.resolve(ctx, cmd, reg, opts.Store)
	if err != nil {
		return err
	}

	cfg := reg.Preferences.SessionConfig(port, sniff)
	listenSession.apply(cmd, &cfg)

	opts.Title = fmt.Sprintf("%s  %s", port, sniff)
	opts.Port = port
	opts.Sniff = sniff.String()
	opts.BitDuration = sniff.BitDuration()
	opts.Steps = true
	opts.Params = map[string]string{
		"Port":   port,
		"Sniff":  sniff.String(),
		"Link":   fmt.Sprintf("%d baud", cfg.LinkBaud),
		"Stop":   stopDescription(cfg),
		"Strict": fmt.Sprintf("%t", cfg.StrictHandshake),
	}
	return runPipeline(ctx, controllerSource(cfg), opts)
}

func stopDescription(cfg session.Config) string {
	if !cfg.AutoStop {
		return "manual"
	}
	timeout := cfg.InactivityTimeout
	if timeout == 0 {
		timeout = session.DefaultInactivityTimeout
	}
	return fmt.Sprintf("after %s without data", timeout)
}

var (
	simulateCapture captureFlags
	simulatePeriod  time.Duration
	simulateBits    int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate random frames without hardware",
	Long: `Run the capture pipeline on random frames, one every --period.

Everything else behaves as with listen: filters and the dictionary apply,
frames go to the capture log, and --record and --feed work the same way.`,
	Example: `  # Random 40-bit frames every second in the live view
  tramesniff simulate

  # Fast frames on the WebSocket feed without touching the database
  tramesniff simulate --period 100ms --feed --no-db --plain`,
	RunE: runSimulate,
}

func init() {
	simulateCapture.register(simulateCmd)
	simulateCmd.Flags().DurationVar(&simulatePeriod, "period", session.DefaultSimulationPeriod, "Time between frames")
	simulateCmd.Flags().IntVar(&simulateBits, "bits", session.DefaultSimulationBits, "Bits per frame")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulatePeriod <= 0 || simulateBits <= 0 {
		return fmt.Errorf("--period and --bits must be positive")
	}
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	opts, closeStore, err := simulateCapture.options(ctx, cmd, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	cfg := session.Config{
		Simulate:         true,
		SimulationPeriod: simulatePeriod,
		SimulationBits:   simulateBits,
	}
	opts.Title = "simulation"
	opts.Sniff = "simulation"
	opts.Params = map[string]string{
		"Period": simulatePeriod.String(),
		"Bits":   fmt.Sprintf("%d", simulateBits),
	}
	return runPipeline(ctx, controllerSource(cfg), opts)
}

var (
	serveCapture  captureFlags
	serveSession  sessionFlags
	serveSniff    sniffFlags
	serveSimulate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Capture headless and stream frames over WebSocket",
	Long: `Capture like listen, without the live view, and serve every frame with
its highlight spans on a WebSocket feed.

Endpoints:
  /ws      stream of frame and reset events
  /frames  frames kept in memory, as JSON
  /status  version, client and frame counts

With --advertise (or advertise_feed in the config file) the feed is
announced over mDNS as ` + "`_tramesniff._tcp`" + ` so 'tramesniff discover' can find it.`,
	Example: `  # Serve a real capture on the default port
  tramesniff serve --port /dev/ttyUSB0

  # Serve simulated frames and announce them on the LAN
  tramesniff serve --simulate --advertise`,
	RunE: runServe,
}

func init() {
	serveCapture.register(serveCmd)
	serveSession.register(serveCmd)
	serveSniff.register(serveCmd)
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "Serve random frames instead of a serial capture")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	serveCapture.feed = true
	serveCapture.plain = true
	opts, closeStore, err := serveCapture.options(ctx, cmd, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	var cfg session.Config
	if serveSimulate {
		cfg = session.Config{Simulate: true}
		opts.Title = "feed (simulation)"
		opts.Sniff = "simulation"
	} else {
		port, err := resolvePort(serveSession.port, reg)
		if err != nil {
			return err
		}
		sniff, err := serveSniff.resolve(ctx, cmd, reg, opts.Store)
		if err != nil {
			return err
		}
		cfg = reg.Preferences.SessionConfig(port, sniff)
		serveSession.apply(cmd, &cfg)
		opts.Title = "feed " + port
		opts.Port = port
		opts.Sniff = sniff.String()
		opts.BitDuration = sniff.BitDuration()
		opts.Steps = true
	}

	opts.Params = map[string]string{
		"Feed":      fmt.Sprintf("ws://%s:%d/ws", feedHostLabel(opts.FeedHost), opts.FeedPort),
		"Advertise": fmt.Sprintf("%t", opts.Advertise),
	}
	if opts.Port != "" {
		opts.Params["Port"] = opts.Port
		opts.Params["Sniff"] = opts.Sniff
	}
	return runPipeline(ctx, controllerSource(cfg), opts)
}

func feedHostLabel(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}

