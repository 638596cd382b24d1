// Command mash-log views and analyzes controller traffic logs.
//
// Log files are recorded by mash-expose when it runs with --protocol-log
// (or log.protocol in the configuration file).
//
// Usage:
//
//	mash-log <command> [flags] <file.mlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	mash-log view traffic.mlog
//
//	# View only replies that carried an error
//	mash-log view --kind error-reply traffic.mlog
//
//	# View traffic concerning node 4
//	mash-log view --node 4 traffic.mlog
//
//	# Export to CSV
//	mash-log export --format csv -o traffic.csv traffic.mlog
//
//	# Keep one session in a new file
//	mash-log filter --session 3f2a9c1e -o session.mlog traffic.mlog
//
//	# Show statistics
//	mash-log stats traffic.mlog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mash-protocol/mash-expose/internal/logview"
	"github.com/mash-protocol/mash-expose/pkg/log"
)

const usage = `mash-log - Controller Traffic Log Analyzer

Usage:
  mash-log <command> [flags] <file.mlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "mash-log <command> -help" for more information about a command.
`

// errUsage is returned after the usage text has been printed.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	var err error
	switch cmd := args[0]; cmd {
	case "view":
		err = runView(args[1:], stdout, stderr)
	case "export":
		err = runExport(args[1:], stdout, stderr)
	case "filter":
		err = runFilter(args[1:], stdout, stderr)
	case "stats":
		err = runStats(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 1
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newFlagSet(name, description string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, `mash-log %s - %s

Usage:
  mash-log %s [flags] <file.mlog>

Flags:
`, name, description, name)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the event selection flags shared by view, export
// and filter.
func filterFlags(fs *flag.FlagSet) *logview.Options {
	var o logview.Options
	fs.StringVar(&o.Session, "session", "", "Filter by session ID prefix")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category (message, state, error)")
	fs.StringVar(&o.Kind, "kind", "", "Filter by message kind (request, result, error-reply, event, server-info)")
	fs.StringVar(&o.Command, "command", "", "Filter by command or event name")
	fs.StringVar(&o.Node, "node", "", "Filter by node ID")
	fs.StringVar(&o.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return &o
}

// open parses the flags and opens the log file named by the single
// positional argument.
func open(fs *flag.FlagSet, opts *logview.Options, args []string, stderr io.Writer) (*log.Reader, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: log file path required")
		fs.Usage()
		return nil, errUsage
	}

	var filter log.Filter
	if opts != nil {
		f, err := opts.Filter()
		if err != nil {
			return nil, err
		}
		filter = f
	}
	return log.Open(fs.Arg(0), filter)
}

func runView(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("view", "View log file in human-readable format", stderr)
	opts := filterFlags(fs)

	r, err := open(fs, opts, args, stderr)
	if err != nil {
		return err
	}
	defer r.Close()
	return logview.View(r, stdout)
}

func runExport(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", "Export log file to JSONL or CSV format", stderr)
	opts := filterFlags(fs)
	format := fs.String("format", logview.FormatJSONL, "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	r, err := open(fs, opts, args, stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	w := stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return logview.Export(r, w, *format)
}

func runFilter(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("filter", "Filter log file and write to new file", stderr)
	opts := filterFlags(fs)
	output := fs.String("o", "", "Output file (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		fmt.Fprintln(stderr, "Error: output file (-o) required")
		fs.Usage()
		return errUsage
	}

	r, err := open(fs, opts, fs.Args(), stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	dst, err := log.NewFileLogger(*output)
	if err != nil {
		return err
	}
	n, err := logview.Copy(r, dst)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d events to %s\n", n, *output)
	return nil
}

func runStats(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("stats", "Show statistics about the log file", stderr)

	r, err := open(fs, nil, args, stderr)
	if err != nil {
		return err
	}
	defer r.Close()

	stats, err := logview.Collect(r)
	if err != nil {
		return err
	}
	stats.Print(stdout)
	return nil
}
