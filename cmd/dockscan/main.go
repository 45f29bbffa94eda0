// DockScan - Dell dock detection agent for Intune.
//
// dockscan asks Windows which Dell docks are attached, trying the Dell
// management agents first and falling back to USB and Thunderbolt
// enumeration. It prints one report and exits 0 when a dock is present,
// 1 when none is (or the firmware policy fails) and 2 on a startup error,
// so it can serve directly as an Intune detection or compliance script.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nerrad567/dockscan/internal/compliance"
	"github.com/nerrad567/dockscan/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// configEnv names the environment variable holding the config file path.
const configEnv = "DOCKSCAN_CONFIG"

// options are the command-line settings.
type options struct {
	configPath string
	format     string
	output     string
	watch      bool
	history    int
	version    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		cancel()
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(compliance.ExitError)
	}

	if opts.version {
		cancel()
		fmt.Printf("dockscan %s (commit %s, built %s)\n", version, commit, date)
		os.Exit(0)
	}

	code, err := run(ctx, opts, os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(compliance.ExitError)
	}
	os.Exit(code)
}

// parseFlags parses args into options.
//
// Parameters:
//   - args: Command-line arguments without the program name
//   - errOut: Destination for usage and parse errors
//
// Returns:
//   - options: Parsed settings
//   - error: pflag.ErrHelp for -h, or a parse error
func parseFlags(args []string, errOut io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("dockscan", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: dockscan [flags]\n\nDetects attached Dell docks and reports them for Intune.\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(errOut, "\nExit codes: 0 dock present, 1 no dock or non-compliant, 2 error\n")
	}

	fs.StringVarP(&opts.configPath, "config", "c", "", "config file (env "+configEnv+")")
	fs.StringVarP(&opts.format, "format", "f", "", "report format: json or text (overrides output.format)")
	fs.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	fs.BoolVarP(&opts.watch, "watch", "w", false, "re-run every detection.interval until interrupted")
	fs.IntVar(&opts.history, "history", 0, "print the last N stored scans instead of scanning (needs database.enabled)")
	fs.BoolVarP(&opts.version, "version", "V", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.history < 0 {
		return options{}, fmt.Errorf("--history must not be negative, got %d", opts.history)
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// resolveConfigPath picks the config file: the flag, then DOCKSCAN_CONFIG,
// then config.yaml in the data directory if it exists. An empty result
// means built-in defaults.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	path := filepath.Join(config.DataDir(), "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
