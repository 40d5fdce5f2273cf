package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/export"
	"github.com/muurk/tramesniff/internal/highlight"
	"github.com/muurk/tramesniff/internal/store"
	"github.com/muurk/tramesniff/internal/ui"
)

const (
	sourceDB   = "db"
	sourceFeed = "feed"
)

var (
	exportFrom       string
	exportFeedURL    string
	exportFormat     string
	exportFiltered   bool
	exportHighlights []string
	exportLimit      int
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export captured frames to CSV or JSON",
	Long: `Write frames as bits, hex and text to a CSV or JSON file.

Sources:
  db    the capture log in the database (default)
  feed  the frames a running 'tramesniff serve' keeps in memory

With --filtered only frames matching at least one filter rule are written.
The rules are the stored filters plus any --highlight patterns. The format
follows --format or, when unset, the file extension.`,
	Example: `  # Everything in the capture log
  tramesniff export capture.csv

  # Only frames matching the stored filters, as JSON
  tramesniff export matches.json --filtered

  # The in-memory frames of a remote feed
  tramesniff export remote.csv --from feed --feed-url http://bench-1.local:8765/frames`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", sourceDB, "Frame source (db, feed)")
	exportCmd.Flags().StringVar(&exportFeedURL, "feed-url", "", "Frames URL of the feed (default: local feed port)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format (csv, json); default from the extension")
	exportCmd.Flags().BoolVar(&exportFiltered, "filtered", false, "Only export frames matching a filter rule")
	exportCmd.Flags().StringArrayVar(&exportHighlights, "highlight", nil, "Extra filter PATTERN[=COLOR] for --filtered (repeatable)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Export at most this many frames from the database (0 = all)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	extra, err := parseHighlights(exportHighlights)
	if err != nil {
		return err
	}

	var entries []codec.Entry
	var rules []highlight.Rule
	source := exportFrom

	switch strings.ToLower(exportFrom) {
	case sourceDB:
		err = withStore(cmd, func(ctx context.Context, st *store.Store) error {
			frames, err := st.ListFrames(ctx, exportLimit)
			if err != nil {
				return err
			}
			entries = store.Entries(frames)
			if exportFiltered {
				filters, err := st.ListFilters(ctx)
				if err != nil {
					return err
				}
				rules = store.Rules(filters)
			}
			source = st.Path()
			return nil
		})
	case sourceFeed:
		url := exportFeedURL
		if url == "" {
			reg, lerr := loadRegistry()
			if lerr != nil {
				return lerr
			}
			url = fmt.Sprintf("http://localhost:%d/frames", reg.Preferences.FeedPort)
		}
		entries, err = fetchFeedFrames(cmd.Context(), url)
		source = url
		if err == nil && exportFiltered {
			// A feed does not serve its filters; use the local ones.
			err = withStore(cmd, func(ctx context.Context, st *store.Store) error {
				filters, err := st.ListFilters(ctx)
				if err != nil {
					return err
				}
				rules = store.Rules(filters)
				return nil
			})
		}
	default:
		return fmt.Errorf("unknown source %q (expected %s or %s)", exportFrom, sourceDB, sourceFeed)
	}
	if err != nil {
		return err
	}

	total := len(entries)
	if exportFiltered {
		entries = highlight.FilterEntries(entries, append(rules, extra...))
	}

	if err := export.ToFile(path, format, entries); err != nil {
		return err
	}

	if format == "" {
		format = export.FormatFromPath(path)
	}
	printer := ui.NewPrinter(os.Stdout)
	details := map[string]string{
		"File":   path,
		"Format": string(format),
		"Source": source,
		"Frames": fmt.Sprintf("%d", len(entries)),
	}
	if exportFiltered {
		details["Frames"] = fmt.Sprintf("%d of %d", len(entries), total)
	}
	printer.PrintSuccess("Frames exported", details)
	return nil
}

// fetchFeedFrames reads the in-memory frames of a running feed.
func fetchFeedFrames(ctx context.Context, url string) ([]codec.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}
	return export.ReadJSON(resp.Body)
}

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Inspect and clear the capture log",
}

var framesListLimit int

var framesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored frames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			frames, err := st.ListFrames(ctx, framesListLimit)
			if err != nil {
				return err
			}
			if len(frames) == 0 {
				fmt.Println("No frames stored.")
				return nil
			}
			filters, err := st.ListFilters(ctx)
			if err != nil {
				return err
			}
			dict, err := st.LoadDictionary(ctx)
			if err != nil {
				return err
			}
			var opts []highlight.Option
			if dict.Len() > 0 {
				opts = append(opts, highlight.WithDictionary(dict))
			}

			rules := store.Rules(filters)
			printer := ui.NewPrinter(os.Stdout)
			for _, f := range frames {
				printer.Printf("%s\n", f.Timestamp.Local().Format("2006-01-02 15:04:05.000"))
				printer.PrintFrame(int(f.ID), f.Entry, highlight.SpansForFrame(f.Entry, rules, opts...))
			}
			return nil
		})
	},
}

var framesCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored frames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			n, err := st.CountFrames(ctx)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

var framesClearYes bool

var framesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored frame",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			n, err := st.CountFrames(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Capture log is already empty.")
				return nil
			}
			if !framesClearYes && !ui.ConfirmClearCapture(os.Stdin, os.Stdout, n) {
				fmt.Println("Aborted.")
				return nil
			}
			if err := st.ClearFrames(ctx); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted %d frame(s)\n", n)
			return nil
		})
	},
}

func init() {
	framesListCmd.Flags().IntVar(&framesListLimit, "limit", 50, "Maximum number of frames (0 = all)")
	framesClearCmd.Flags().BoolVarP(&framesClearYes, "yes", "y", false, "Do not ask for confirmation")

	framesCmd.AddCommand(framesListCmd)
	framesCmd.AddCommand(framesCountCmd)
	framesCmd.AddCommand(framesClearCmd)
	rootCmd.AddCommand(framesCmd)
}
