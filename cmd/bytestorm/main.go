// Package main is the entry point for the bytestorm command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the parsed command line.
type options struct {
	ConfigPath  string
	LogLevel    string
	Script      string
	Digest      bool
	Plan        bool
	Save        bool
	SaveInPlace bool
	SaveAs      string
	File        string
}

// errUsage marks command line errors.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts == nil {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer a.shutdown()

	if err := a.execute(ctx, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags parses args. It returns nil options when the command only
// printed information.
func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("bytestorm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.Script, "script", "", "Lua edit script to run against the file")
	fs.BoolVar(&opts.Digest, "digest", false, "Print the xxhash64 digest of the result")
	fs.BoolVar(&opts.Plan, "plan", false, "Print the save plan")
	fs.BoolVar(&opts.Save, "save", false, "Save, in place when possible")
	fs.BoolVar(&opts.SaveInPlace, "save-in-place", false, "Save in place or fail")
	fs.StringVar(&opts.SaveAs, "save-as", "", "Save to another path")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "bytestorm - piece table binary editor\n\n")
		fmt.Fprintf(stderr, "Usage: bytestorm [options] file\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  bytestorm -digest image.bin                 Print the file digest\n")
		fmt.Fprintf(stderr, "  bytestorm -script patch.lua -plan fw.bin     Show how a patch would be saved\n")
		fmt.Fprintf(stderr, "  bytestorm -script patch.lua -save fw.bin     Patch and save\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if showVersion {
		fmt.Fprintf(stderr, "bytestorm %s\n", version)
		fmt.Fprintf(stderr, "Commit: %s\n", commit)
		fmt.Fprintf(stderr, "Built: %s\n", date)
		return nil, nil
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("%w: invalid log level %q (must be debug, info, warn, or error)", errUsage, opts.LogLevel)
	}

	saves := 0
	for _, set := range []bool{opts.Save, opts.SaveInPlace, opts.SaveAs != ""} {
		if set {
			saves++
		}
	}
	if saves > 1 {
		return nil, fmt.Errorf("%w: -save, -save-in-place and -save-as are exclusive", errUsage)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("%w: expected exactly one file", errUsage)
	}
	opts.File = fs.Arg(0)

	return &opts, nil
}
