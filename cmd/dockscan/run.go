package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	_ "github.com/nerrad567/dockscan/migrations"

	"github.com/nerrad567/dockscan/internal/cim"
	"github.com/nerrad567/dockscan/internal/compliance"
	"github.com/nerrad567/dockscan/internal/infrastructure/config"
	"github.com/nerrad567/dockscan/internal/infrastructure/logging"
	"github.com/nerrad567/dockscan/internal/process"
	"github.com/nerrad567/dockscan/internal/report"
)

var errHistoryDisabled = errors.New("scan history is disabled (set database.enabled)")

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Parsed command-line options
//   - stdout: Destination for the report when no output file is set
//
// Returns:
//   - int: Exit code of the last scan (0 dock present, 1 absent or non-compliant)
//   - error: Startup failure; the caller exits with compliance.ExitError
func run(ctx context.Context, opts options, stdout io.Writer) (int, error) {
	configPath := resolveConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return compliance.ExitError, fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg, opts)

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return compliance.ExitError, err
	}

	log := logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Nothing useful to do on exit
	log.Info("starting dockscan",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", describeConfig(configPath),
	)

	if opts.history > 0 {
		return showHistory(ctx, cfg.Database, opts.history, format, stdout)
	}

	runner := process.NewExec()
	runner.SetLogger(log.With("component", "process"))
	querier := cim.NewPowerShellQuerier(runner, cim.Options{
		Binary:  cfg.Detection.PowerShell,
		Timeout: cfg.Detection.QueryTimeout,
	})

	a, err := newApp(ctx, cfg, log, querier)
	if err != nil {
		return compliance.ExitError, err
	}
	defer a.close()

	if opts.watch {
		return a.watch(ctx, format, stdout)
	}
	return a.runOnce(ctx, format, stdout)
}

// showHistory prints the most recent stored runs without scanning.
//
// Returns:
//   - int: compliance.ExitCompliant once the history is written
//   - error: History disabled, unreadable or unwritable
func showHistory(ctx context.Context, cfg config.DatabaseConfig, limit int, format report.Format, stdout io.Writer) (int, error) {
	if !cfg.Enabled {
		return compliance.ExitError, errHistoryDisabled
	}

	db, repo, err := openHistory(ctx, cfg)
	if err != nil {
		return compliance.ExitError, fmt.Errorf("opening scan history: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only use

	runs, err := repo.ListRuns(ctx, limit)
	if err != nil {
		return compliance.ExitError, fmt.Errorf("listing scan history: %w", err)
	}
	if err := report.WriteHistory(stdout, format, runs); err != nil {
		return compliance.ExitError, err
	}
	return compliance.ExitCompliant, nil
}

// applyFlags lets command-line flags override the loaded configuration.
func applyFlags(cfg *config.Config, opts options) {
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.output != "" {
		cfg.Output.Path = opts.output
	}
}

func describeConfig(path string) string {
	if path == "" {
		return "built-in defaults"
	}
	return path
}
