package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/slidelink/internal/link"
	"github.com/srg/slidelink/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby BLE peripherals",
	Long: `Scan for Bluetooth Low Energy peripherals in the vicinity.

Use this during setup to find the remote's address for the
configuration file. Filter by advertised service or local name to
narrow the listing down to the remote.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanService  string
	scanName     string
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
	scanCmd.Flags().StringVarP(&scanService, "service", "s", "", "Only show devices advertising this service UUID")
	scanCmd.Flags().StringVarP(&scanName, "name", "n", "", "Only show devices with this exact local name")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	scanner, err := scan.NewScanner(logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	opts := scan.DefaultOptions()
	opts.Duration = scanDuration
	opts.ServiceUUID = scanService
	opts.NameFilter = scanName

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Scanning for BLE devices (%s, Ctrl+C to stop)...\n", scanDuration)
	if err := scanner.Scan(ctx, opts); err != nil {
		return err
	}

	return displayResults(os.Stdout, scanner.Results())
}

func displayResults(out io.Writer, results []scan.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(out, "No devices discovered")
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tSERVICES\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, r := range results {
		name := r.Name
		if name == "" {
			name = "(unknown)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		// 128-bit service UUIDs would blow up the column; show prefixes.
		short := make([]string, 0, len(r.Services))
		for _, u := range r.Services {
			short = append(short, link.ShortenUUID(u))
		}
		services := strings.Join(short, ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		lastSeen := time.Since(r.LastSeen).Truncate(time.Second)

		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s ago\n",
			name, r.Address, r.RSSI, services, lastSeen)
	}

	return w.Flush()
}
