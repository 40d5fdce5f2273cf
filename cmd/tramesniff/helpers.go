package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/config"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/session"
	"github.com/muurk/tramesniff/internal/store"
)

// defaultHighlightColor is used by --highlight patterns without a color.
const defaultHighlightColor = "yellow"

func loadRegistry() (*config.Registry, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return reg, nil
}

// openStore opens the database named by --db or the preferences.
func openStore(ctx context.Context, reg *config.Registry) (*store.Store, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = reg.Preferences.ResolveDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}
	return store.Open(ctx, path)
}

// withStore runs fn against the configured database and closes it after.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := openStore(ctx, reg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	return fn(ctx, st)
}

// parseHighlights turns "pattern=color" flags into rules. The last '=' splits
// pattern from color, so text patterns may contain '='.
func parseHighlights(values []string) ([]highlight.Rule, error) {
	rules := make([]highlight.Rule, 0, len(values))
	for _, v := range values {
		pattern, color := v, defaultHighlightColor
		if i := strings.LastIndex(v, "="); i >= 0 {
			pattern, color = v[:i], strings.TrimSpace(v[i+1:])
		}
		if strings.TrimSpace(pattern) == "" {
			return nil, fmt.Errorf("invalid highlight %q: empty pattern", v)
		}
		if color == "" {
			color = defaultHighlightColor
		}
		rules = append(rules, highlight.Rule{Pattern: pattern, Color: color})
	}
	return rules, nil
}

// sniffFlags are the line settings sent to the device. Explicit flags win
// over a saved port config, which wins over a profile from the registry.
type sniffFlags struct {
	profile  string
	configID int64
	baud     int
	parity   string
	dataBits int
	stopBits int
}

func (f *sniffFlags) register(cmd *cobra.Command) {
	def := session.DefaultPortConfig()
	cmd.Flags().StringVar(&f.profile, "profile", "", "Named sniff profile from the config file")
	cmd.Flags().Int64Var(&f.configID, "config-id", 0, "Saved port configuration id (see 'portconfig list')")
	cmd.Flags().IntVar(&f.baud, "baud", def.BaudRate, "Baud rate of the sniffed line")
	cmd.Flags().StringVar(&f.parity, "parity", string(def.Parity), "Parity of the sniffed line (none, even, odd)")
	cmd.Flags().IntVar(&f.dataBits, "databits", def.DataBits, "Data bits of the sniffed line")
	cmd.Flags().IntVar(&f.stopBits, "stopbits", def.StopBits, "Stop bits of the sniffed line")
}

// resolve builds the sniff configuration. st may be nil, in which case
// --config-id is an error.
func (f *sniffFlags) resolve(ctx context.Context, cmd *cobra.Command, reg *config.Registry, st *store.Store) (session.PortConfig, error) {
	cfg, err := reg.ResolveProfile(f.profile)
	if err != nil {
		return session.PortConfig{}, err
	}

	if f.configID != 0 {
		if st == nil {
			return session.PortConfig{}, fmt.Errorf("--config-id needs the database")
		}
		saved, err := st.GetPortConfig(ctx, f.configID)
		if err != nil {
			return session.PortConfig{}, fmt.Errorf("failed to load port config %d: %w", f.configID, err)
		}
		cfg = saved.PortConfig
	}

	flags := cmd.Flags()
	if flags.Changed("baud") {
		cfg.BaudRate = f.baud
	}
	if flags.Changed("parity") {
		p, err := session.ParseParity(f.parity)
		if err != nil {
			return session.PortConfig{}, err
		}
		cfg.Parity = p
	}
	if flags.Changed("databits") {
		cfg.DataBits = f.dataBits
	}
	if flags.Changed("stopbits") {
		cfg.StopBits = f.stopBits
	}

	if err := cfg.Validate(); err != nil {
		return session.PortConfig{}, fmt.Errorf("invalid port configuration: %w", err)
	}
	return cfg, nil
}

// resolvePort returns the --port value or the preferred default port.
func resolvePort(port string, reg *config.Registry) (string, error) {
	if port != "" {
		return port, nil
	}
	if reg.Preferences.DefaultPort != "" {
		return reg.Preferences.DefaultPort, nil
	}
	return "", fmt.Errorf("%w: use --port or set default_port in the config file", session.ErrNoPort)
}
