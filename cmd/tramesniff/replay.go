package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/capture"
	"github.com/muurk/tramesniff/internal/export"
	"github.com/muurk/tramesniff/internal/session"
)

var (
	replayCapture  captureFlags
	replaySpeed    float64
	replayInterval time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Play back a recorded capture or an exported CSV",
	Long: `Feed the frames of a capture file through the pipeline as if they came
from the sniffer.

A .cbor file written with --record keeps the time of every frame; it is
replayed with the recorded gaps scaled by --speed (0 replays at once).
A .csv export has no timing, so its frames are spaced by --interval.

Frames are decoded again with the current dictionary, so a replay shows
the latest translations.`,
	Example: `  # Replay a recording at twice the original speed
  tramesniff replay session.cbor --speed 2

  # Re-examine an export with a new highlight, without storing frames again
  tramesniff replay frames.csv --highlight "FF*=red" --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCapture.register(replayCmd)
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "Playback speed for .cbor files (0 = as fast as possible)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "Gap between frames for .csv files")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	if replaySpeed < 0 {
		return fmt.Errorf("--speed must not be negative")
	}

	var src frameSource
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		src = csvSource(path, replayInterval)
	default:
		src = recordingSource(path, replaySpeed)
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	opts, closeStore, err := replayCapture.options(ctx, cmd, reg)
	if err != nil {
		return err
	}
	defer closeStore()

	opts.Title = "replay " + filepath.Base(path)
	opts.Sniff = "replay"
	opts.Params = map[string]string{"File": path}
	return runPipeline(ctx, src, opts)
}

// recordingSource replays a CBOR capture file.
func recordingSource(path string, speed float64) frameSource {
	return func(ctx context.Context, emit func(string), state func(session.State), _ func(error)) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer f.Close()

		state(session.Listening)
		defer state(session.Stopped)
		_, err = capture.Replay(ctx, f, emit, capture.ReplayOptions{Speed: speed})
		return err
	}
}

// csvSource replays the bits column of an export.
func csvSource(path string, interval time.Duration) frameSource {
	return func(ctx context.Context, emit func(string), state func(session.State), _ func(error)) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open export: %w", err)
		}
		defer f.Close()

		entries, err := export.ReadCSV(f)
		if err != nil {
			return err
		}

		state(session.Listening)
		defer state(session.Stopped)
		for i, e := range entries {
			if i > 0 && interval > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interval):
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			emit(e.Bits)
		}
		return nil
	}
}
