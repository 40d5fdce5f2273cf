package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/store"
	"github.com/muurk/tramesniff/internal/ui"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// retranslate rewrites the text column of the capture log after the
// dictionary changed.
func retranslate(ctx context.Context, st *store.Store) error {
	dict, err := st.LoadDictionary(ctx)
	if err != nil {
		return err
	}
	n, err := st.RetranslateFrames(ctx, dict)
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Printf("  %d stored frame(s) translated again\n", n)
	}
	return nil
}

// Dictionary commands

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the hex to text dictionary",
	Long: `The dictionary maps hex byte sequences to text. Decoding uses the longest
matching sequence at each position and falls back to printable ASCII, or
'.' for other bytes.

Adding or removing an entry translates the stored capture log again.`,
}

var dictAddCmd = &cobra.Command{
	Use:   "add HEX TEXT",
	Short: "Add a translation",
	Example: `  tramesniff dict add "4C 4C" "<LL>"
  tramesniff dict add 0D0A "\n"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if _, err := st.AddDictionaryEntry(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ %s = %q\n", codec.NormalizeKey(args[0]), args[1])
			return retranslate(ctx, st)
		})
	},
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			rows, err := st.ListDictionary(ctx)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("Dictionary is empty.")
				return nil
			}
			for _, r := range rows {
				fmt.Printf("%4d  %-24s %q\n", r.ID, codec.NormalizeKey(r.HexPattern), r.Description)
			}
			return nil
		})
	},
}

var dictLookupCmd = &cobra.Command{
	Use:   "lookup HEX",
	Short: "Show the translation of a hex sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			desc, err := st.LookupDictionary(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				dict, lerr := st.LoadDictionary(ctx)
				if lerr != nil {
					return lerr
				}
				fmt.Printf("%s has no entry; decodes as %q\n", codec.NormalizeKey(args[0]), dict.Decode(codec.NormalizeKey(args[0])))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s = %q\n", codec.NormalizeKey(args[0]), desc)
			return nil
		})
	},
}

var dictRmCmd = &cobra.Command{
	Use:     "rm HEX",
	Aliases: []string{"remove"},
	Short:   "Remove a translation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteDictionaryEntry(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Removed %s\n", codec.NormalizeKey(args[0]))
			return retranslate(ctx, st)
		})
	},
}

// Filter commands

var (
	filterName  string
	filterColor string
	filterCSV   bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Manage highlight filters",
	Long: `Filters highlight matches in the bits, hex and text views at once.

The pattern kind is inferred:
  bits  only 0 and 1, e.g. "0100 1010"
  hex   byte pairs with * for any byte, e.g. "4C * 0D"
  text  anything else, matched against the decoded text`,
}

var filterAddCmd = &cobra.Command{
	Use:   "add PATTERN",
	Short: "Add a filter",
	Example: `  tramesniff filter add "FF FF" --color red --name preamble
  tramesniff filter add OK --color green`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := store.FilterRule{Name: filterName, Color: normalizeColor(filterColor), Pattern: args[0]}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			id, err := st.InsertFilter(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Filter %d added (%s pattern)\n", id, highlight.Classify(f.Pattern))
			return nil
		})
	},
}

var filterEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a filter's name, color or pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			filters, err := st.ListFilters(ctx)
			if err != nil {
				return err
			}
			var f *store.FilterRule
			for i := range filters {
				if filters[i].ID == id {
					f = &filters[i]
				}
			}
			if f == nil {
				return fmt.Errorf("filter %d: %w", id, store.ErrNotFound)
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				f.Name = filterName
			}
			if flags.Changed("color") {
				f.Color = normalizeColor(filterColor)
			}
			if flags.Changed("pattern") {
				pattern, _ := flags.GetString("pattern")
				f.Pattern = pattern
			}
			if err := st.UpdateFilter(ctx, *f); err != nil {
				return err
			}
			fmt.Printf("✓ Filter %d updated\n", id)
			return nil
		})
	},
}

var filterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			filters, err := st.ListFilters(ctx)
			if err != nil {
				return err
			}
			if filterCSV {
				return gocsv.Marshal(filters, os.Stdout)
			}
			if len(filters) == 0 {
				fmt.Println("No filters.")
				return nil
			}
			for _, f := range filters {
				swatch := lipgloss.NewStyle().Foreground(ui.RuleColor(f.Color)).Render("■")
				fmt.Printf("%4d  %s %-8s %-5s %-20q %s\n", f.ID, swatch, f.Color, highlight.Classify(f.Pattern), f.Pattern, f.Name)
			}
			return nil
		})
	},
}

var filterRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove"},
	Short:   "Remove a filter",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteFilter(ctx, id); err != nil {
				return err
			}
			fmt.Printf("✓ Filter %d removed\n", id)
			return nil
		})
	},
}

// Port configuration commands

var (
	portConfigName string
	portConfigSet  sniffFlags
)

var portConfigCmd = &cobra.Command{
	Use:   "portconfig",
	Short: "Manage saved sniff configurations",
	Long: `Saved configurations are line settings that can be selected with
--config-id instead of repeating --baud, --parity, --databits and --stopbits.`,
}

var portConfigAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Save a configuration",
	Example: `  tramesniff portconfig add --name plc --baud 19200 --parity even`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			cfg, err := portConfigSet.resolve(ctx, cmd, reg, st)
			if err != nil {
				return err
			}
			id, err := st.InsertPortConfig(ctx, store.PortConfig{Name: portConfigName, PortConfig: cfg})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Configuration %d saved: %s\n", id, cfg)
			return nil
		})
	},
}

var portConfigEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a saved configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			// Start from the saved row so unchanged flags keep their values.
			portConfigSet.configID = id
			cfg, err := portConfigSet.resolve(ctx, cmd, reg, st)
			if err != nil {
				return err
			}
			saved, err := st.GetPortConfig(ctx, id)
			if err != nil {
				return err
			}
			saved.PortConfig = cfg
			if cmd.Flags().Changed("name") {
				saved.Name = portConfigName
			}
			if err := st.UpdatePortConfig(ctx, saved); err != nil {
				return err
			}
			fmt.Printf("✓ Configuration %d updated: %s\n", id, saved.Label())
			return nil
		})
	},
}

var portConfigListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved configurations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			configs, err := st.ListPortConfigs(ctx)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println("No saved configurations.")
				return nil
			}
			for _, c := range configs {
				fmt.Printf("%4d  %-16s %s\n", c.ID, c.PortConfig, c.Name)
			}
			return nil
		})
	},
}

var portConfigRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"remove"},
	Short:   "Remove a saved configuration",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeletePortConfig(ctx, id); err != nil {
				return err
			}
			fmt.Printf("✓ Configuration %d removed\n", id)
			return nil
		})
	},
}

func init() {
	dictCmd.AddCommand(dictAddCmd, dictListCmd, dictLookupCmd, dictRmCmd)
	rootCmd.AddCommand(dictCmd)

	filterAddCmd.Flags().StringVar(&filterName, "name", "", "Filter name")
	filterAddCmd.Flags().StringVar(&filterColor, "color", defaultHighlightColor, "Highlight color (name or #rrggbb)")
	filterEditCmd.Flags().StringVar(&filterName, "name", "", "New name")
	filterEditCmd.Flags().StringVar(&filterColor, "color", "", "New color")
	filterEditCmd.Flags().String("pattern", "", "New pattern")
	filterListCmd.Flags().BoolVar(&filterCSV, "csv", false, "Print as CSV")
	filterCmd.AddCommand(filterAddCmd, filterEditCmd, filterListCmd, filterRmCmd)
	rootCmd.AddCommand(filterCmd)

	portConfigAddCmd.Flags().StringVar(&portConfigName, "name", "", "Configuration name")
	portConfigEditCmd.Flags().StringVar(&portConfigName, "name", "", "New name")
	portConfigSet.register(portConfigAddCmd)
	portConfigSet.register(portConfigEditCmd)
	portConfigCmd.AddCommand(portConfigAddCmd, portConfigEditCmd, portConfigListCmd, portConfigRmCmd)
	rootCmd.AddCommand(portConfigCmd)
}

// normalizeColor lowercases named colors and leaves hex colors alone.
func normalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "#") {
		return c
	}
	return strings.ToLower(c)
}
