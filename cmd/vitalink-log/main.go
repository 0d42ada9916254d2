// Command vitalink-log is a tool for viewing and analyzing VitaLink
// protocol log files.
//
// Log files are created by running vitalink-gateway with the -log-file
// flag.
//
// Usage:
//
//	vitalink-log <command> [flags] <file.vlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	vitalink-log view session.vlog
//
//	# View only data-channel events
//	vitalink-log view --category channel session.vlog
//
//	# Export to JSONL
//	vitalink-log export --format jsonl session.vlog
//
//	# Filter by device and save to new file
//	vitalink-log filter --device AA:BB:CC:DD:EE:FF -o filtered.vlog session.vlog
//
//	# Show statistics
//	vitalink-log stats session.vlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vitalink-protocol/vitalink-go/cmd/vitalink-log/commands"
)

const usage = `vitalink-log - VitaLink Protocol Log Analyzer

Usage:
  vitalink-log <command> [flags] <file.vlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "vitalink-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `vitalink-log view - View log file in human-readable format

Usage:
  vitalink-log view [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	layer := fs.String("layer", "", "Filter by layer (transport, gatt, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (channel, state, observation, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	var filter commands.ViewFilter

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `vitalink-log export - Export log file to JSON or CSV format

Usage:
  vitalink-log export [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `vitalink-log filter - Filter log file and write to new file

Usage:
  vitalink-log filter [flags] <file.vlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	device := fs.String("device", "", "Filter by device identity")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, gatt, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (channel, state, observation, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		ConnID:    *connID,
		Device:    *device,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	}

	if err := commands.RunFilter(fs.Arg(0), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `vitalink-log stats - Show statistics about the log file

Usage:
  vitalink-log stats <file.vlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
