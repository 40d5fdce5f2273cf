package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/tramesniff/internal/discovery"
	"github.com/muurk/tramesniff/internal/session"
	"github.com/muurk/tramesniff/internal/ui"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports of this machine. USB adapters show their vendor
and product ids, which helps to tell the sniffer apart from other devices.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := session.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			fmt.Println("\nTroubleshooting:")
			for _, tip := range ui.SerialTroubleshooting() {
				fmt.Printf("  - %s\n", tip)
			}
			return nil
		}

		fmt.Printf("Found %d port(s):\n\n", len(ports))
		for i, p := range ports {
			fmt.Printf("%d. %s\n", i+1, p.Name)
			if p.IsUSB {
				fmt.Printf("   USB:     %s:%s\n", p.VID, p.PID)
				if p.Product != "" {
					fmt.Printf("   Product: %s\n", p.Product)
				}
				if p.SerialNumber != "" {
					fmt.Printf("   Serial:  %s\n", p.SerialNumber)
				}
			}
		}
		return nil
	},
}

var (
	sendConfigSession sessionFlags
	sendConfigSniff   sniffFlags
)

var sendConfigCmd = &cobra.Command{
	Use:   "send-config",
	Short: "Send line settings to the sniffer without listening",
	Long: `Open the sniffer port, send the configuration lines and close it again.

Useful to prepare the device before handing the port to another tool.`,
	Example: `  tramesniff send-config --port /dev/ttyUSB0 --baud 19200 --parity even`,
	RunE:    runSendConfig,
}

func init() {
	sendConfigCmd.Flags().StringVarP(&sendConfigSession.port, "port", "p", "", "Serial port of the sniffer (default from config)")
	sendConfigCmd.Flags().IntVar(&sendConfigSession.linkBaud, "link-baud", session.DefaultLinkBaud, "Baud rate of the link to the sniffer")
	sendConfigSniff.register(sendConfigCmd)

	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(sendConfigCmd)
}

func runSendConfig(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	port, err := resolvePort(sendConfigSession.port, reg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	// Saved port configs need the database; plain flags do not.
	var sniff session.PortConfig
	if sendConfigSniff.configID != 0 {
		st, err := openStore(ctx, reg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		sniff, err = sendConfigSniff.resolve(ctx, cmd, reg, st)
		if err != nil {
			return err
		}
	} else if sniff, err = sendConfigSniff.resolve(ctx, cmd, reg, nil); err != nil {
		return err
	}

	cfg := reg.Preferences.SessionConfig(port, sniff)
	sendConfigSession.apply(cmd, &cfg)

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader("Send configuration", "tramesniff send-config", map[string]string{
		"Port":  port,
		"Sniff": sniff.String(),
	})

	progress := ui.NewSessionProgress(true)
	ctrl := session.New(cfg, nil, session.WithStateHook(func(s session.State) {
		if s == session.Idle || s == session.Stopped {
			return
		}
		progress.Observe(s)
		printer.PrintProgress(progress)
		printer.Newline()
	}))

	if err := ctrl.SendConfigOnly(ctx); err != nil {
		progress.Fail(err.Error())
		printer.PrintProgress(progress)
		printer.PrintError("Configuration failed", err, ui.SerialTroubleshooting())
		return err
	}

	progress.Complete()
	printer.PrintProgress(progress)
	details := map[string]string{"Port": port}
	for i, line := range sniff.Lines() {
		details[fmt.Sprintf("Line %d", i+1)] = line
	}
	printer.PrintSuccess("Configuration sent", details)
	return nil
}

var (
	discoverTimeout int
	discoverWait    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find frame feeds announced on the local network",
	Long: `Browse mDNS for feeds started with 'tramesniff serve --advertise' and
print their WebSocket addresses.`,
	Example: `  tramesniff discover --timeout 10
  tramesniff discover --wait "tramesniff on bench-1" --timeout 30`,
	RunE:    runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 5, "Scan timeout in seconds")
	discoverCmd.Flags().StringVar(&discoverWait, "wait", "", "Wait for the feed advertised as this instance and print only it")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(discoverTimeout) * time.Second

	ctx, cancel := context.WithTimeout(cmd.Context(), scanner.Timeout+time.Second)
	defer cancel()

	if discoverWait != "" {
		fmt.Printf("Waiting for feed %q (timeout: %ds)...\n\n", discoverWait, discoverTimeout)
		feed, err := scanner.WaitForFeed(ctx, discoverWait)
		if err != nil {
			return err
		}
		printFeed(os.Stdout, 1, feed)
		return nil
	}

	fmt.Printf("Scanning for tramesniff feeds (timeout: %ds)...\n\n", discoverTimeout)
	feeds, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if len(feeds) == 0 {
		fmt.Println("No feeds found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start a feed with 'tramesniff serve --advertise'")
		fmt.Println("  - Ensure both machines are on the same network segment")
		fmt.Println("  - Some networks block multicast DNS")
		return nil
	}

	fmt.Printf("Found %d feed(s):\n\n", len(feeds))
	for i, f := range feeds {
		printFeed(os.Stdout, i+1, f)
	}
	return nil
}

func printFeed(w io.Writer, n int, f *discovery.Feed) {
	fmt.Fprintf(w, "%d. %s\n", n, f)
	fmt.Fprintf(w, "   WebSocket: %s\n", f.URL())
	fmt.Fprintf(w, "   Frames:    %s\n", f.FramesURL())
	if port := f.SerialPort(); port != "" {
		fmt.Fprintf(w, "   Port:      %s (%s)\n", port, f.GetMetadata(discovery.TxtSniff))
	}
	if v := f.GetMetadata(discovery.TxtVersion); v != "" {
		fmt.Fprintf(w, "   Version:   %s\n", v)
	}
	if id := f.Session(); id != "" {
		fmt.Fprintf(w, "   Session:   %s\n", id)
	}
}
