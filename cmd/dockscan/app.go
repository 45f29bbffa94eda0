package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/dockscan/internal/cim"
	"github.com/nerrad567/dockscan/internal/compliance"
	"github.com/nerrad567/dockscan/internal/detect"
	"github.com/nerrad567/dockscan/internal/dock"
	"github.com/nerrad567/dockscan/internal/infrastructure/config"
	"github.com/nerrad567/dockscan/internal/infrastructure/database"
	"github.com/nerrad567/dockscan/internal/infrastructure/influxdb"
	"github.com/nerrad567/dockscan/internal/infrastructure/logging"
	"github.com/nerrad567/dockscan/internal/infrastructure/metrics"
	"github.com/nerrad567/dockscan/internal/infrastructure/mqtt"
	"github.com/nerrad567/dockscan/internal/registry"
	"github.com/nerrad567/dockscan/internal/report"
)

// app holds everything one scan needs. Sinks are nil when disabled or
// unavailable; their failures are logged and never change the exit code.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	resolver  *dock.Resolver
	detectors []dock.Detector
	evaluator *compliance.Evaluator
	host      report.Host
	now       func() time.Time
	newID     func() string

	registry *registry.Writer
	db       *database.DB
	repo     dock.Repository
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	metrics  *metrics.Recorder

	rescan chan struct{}
}

// newApp builds the resolver, detectors and policy from cfg and opens the
// enabled sinks.
//
// Returns:
//   - error: Only for settings that make scanning impossible (bad patterns, policy)
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger, querier cim.Querier) (*app, error) {
	filter, err := dock.NewModelFilter(cfg.Detection.ModelPatterns)
	if err != nil {
		return nil, fmt.Errorf("building model filter: %w", err)
	}
	resolverOpts := []dock.ResolverOption{dock.WithModelFilter(filter)}
	if cfg.Detection.SubInterfacePattern != "" {
		pred, predErr := dock.PatternSubInterface(cfg.Detection.SubInterfacePattern)
		if predErr != nil {
			return nil, fmt.Errorf("building sub-interface pattern: %w", predErr)
		}
		resolverOpts = append(resolverOpts, dock.WithSubInterface(pred))
	}
	resolver := dock.NewResolver(resolverOpts...)
	resolver.SetLogger(log.With("component", "resolver"))

	evaluator, err := compliance.NewEvaluator(compliance.Policy{
		MinimumFirmware:        cfg.Compliance.MinimumFirmware,
		FailOnOutdatedFirmware: cfg.Compliance.FailOnOutdatedFirmware,
	})
	if err != nil {
		return nil, fmt.Errorf("loading compliance policy: %w", err)
	}

	m := cfg.Detection.Methods
	a := &app{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		detectors: detect.New(querier, detect.Config{
			Primary:     m.Primary,
			Secondary:   m.Secondary,
			USB:         m.USB,
			Thunderbolt: m.Thunderbolt,
			USBProducts: cfg.Detection.USBProducts,
		}),
		evaluator: evaluator,
		host:      hostInfo(ctx, log),
		now:       time.Now,
		newID:     uuid.NewString,
		rescan:    make(chan struct{}, 1),
	}

	a.openSinks(ctx)
	return a, nil
}

// openSinks connects every enabled sink, logging and skipping failures.
func (a *app) openSinks(ctx context.Context) {
	cfg := a.cfg

	if cfg.Registry.Enabled {
		w, err := registry.NewWriter(cfg.Registry.KeyPath)
		if err != nil {
			a.log.Warn("registry output disabled", "key", cfg.Registry.KeyPath, "error", err)
		} else {
			a.registry = w
		}
	}

	if cfg.Database.Enabled {
		db, repo, err := openHistory(ctx, cfg.Database)
		if err != nil {
			a.log.Warn("scan history disabled", "path", cfg.Database.Path, "error", err)
		} else {
			a.db = db
			a.repo = repo
			a.log.Info("database connected", "path", cfg.Database.Path)
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Site.ID, a.host.Name))
		if err != nil {
			a.log.Warn("MQTT publishing disabled", "error", err)
		} else {
			client.SetLogger(a.log.With("component", "mqtt"))
			a.mqtt = client
			a.log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"topic", client.Topics().Inventory(),
			)
		}
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			a.log.Warn("InfluxDB writing disabled", "error", err)
		} else {
			a.influx = client
			a.log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		}
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRecorder()
	}
}

// openHistory opens the scan history database and applies migrations.
func openHistory(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, *dock.SQLiteRepository, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Already failing
		return nil, nil, err
	}
	return db, dock.NewSQLiteRepository(db.DB), nil
}

// close shuts down the sinks in reverse order of opening.
func (a *app) close() {
	if a.influx != nil {
		a.log.Info("closing InfluxDB")
		if err := a.influx.Close(); err != nil {
			a.log.Error("error closing InfluxDB", "error", err)
		}
	}
	if a.mqtt != nil {
		a.log.Info("disconnecting from MQTT")
		if err := a.mqtt.Close(); err != nil {
			a.log.Error("error closing MQTT", "error", err)
		}
	}
	if a.db != nil {
		a.log.Info("closing database")
		if err := a.db.Close(); err != nil {
			a.log.Error("error closing database", "error", err)
		}
	}
}

// scan runs detection, resolution and policy evaluation once.
func (a *app) scan(ctx context.Context) (report.Document, dock.Inventory) {
	started := a.now()
	inv := a.resolver.Resolve(ctx, a.detectors)
	verdict := a.evaluator.Evaluate(inv)
	for _, f := range verdict.Findings {
		a.log.Warn("outdated dock firmware", "finding", f.String())
	}
	return report.NewDocument(a.newID(), a.host, started, inv, verdict), inv
}

// runOnce scans, writes the report and feeds the sinks.
//
// Returns:
//   - int: The verdict's exit code
//   - error: If the report cannot be written
func (a *app) runOnce(ctx context.Context, format report.Format, stdout io.Writer) (int, error) {
	doc, inv := a.scan(ctx)

	if path := a.cfg.Output.Path; path != "" {
		if err := report.WriteFile(path, format, doc); err != nil {
			return compliance.ExitError, fmt.Errorf("writing report: %w", err)
		}
	} else if err := report.Write(stdout, format, doc); err != nil {
		return compliance.ExitError, fmt.Errorf("writing report: %w", err)
	}

	a.publish(ctx, doc, inv)

	a.log.Info("scan complete",
		"run_id", doc.RunID,
		"dock_count", doc.DockCount,
		"source", doc.Source,
		"compliant", doc.Compliant,
	)
	return doc.ExitCode, nil
}

// publish hands the result to every open sink.
func (a *app) publish(ctx context.Context, doc report.Document, inv dock.Inventory) {
	if a.registry != nil {
		err := a.registry.WriteInventory(doc)
		switch {
		case errors.Is(err, registry.ErrUnsupported):
			a.log.Debug("registry output skipped", "reason", err)
		case err != nil:
			a.log.Warn("writing registry values failed", "key", a.registry.KeyPath(), "error", err)
		}
	}

	if a.repo != nil {
		a.saveRun(ctx, doc, inv)
	}

	if a.mqtt != nil {
		if err := a.mqtt.PublishInventory(doc); err != nil {
			a.log.Warn("publishing inventory failed", "error", err)
		}
	}

	if a.influx != nil {
		if err := a.influx.WriteScan(ctx, influxScan(a.cfg.Site.ID, doc, inv)); err != nil {
			a.log.Warn("writing InfluxDB points failed", "error", err)
		}
	}

	if a.metrics != nil {
		for _, at := range inv.Attempts {
			a.metrics.RecordAttempt(at.Method.String(), attemptResult(at), at.Duration)
		}
		a.metrics.RecordRun(inv.Source.String(), doc.DockCount, doc.Compliant, doc.Timestamp)
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			a.log.Warn("writing metrics failed", "path", a.cfg.Metrics.TextfilePath, "error", err)
		}
	}
}

// saveRun logs any change against the previous run, stores the run and
// prunes history beyond database.retain_runs.
func (a *app) saveRun(ctx context.Context, doc report.Document, inv dock.Inventory) {
	prev, err := a.repo.LatestRun(ctx)
	switch {
	case errors.Is(err, dock.ErrRunNotFound):
	case err != nil:
		a.log.Warn("reading previous scan failed", "error", err)
	default:
		if added, removed := dock.Diff(prev.Entries, inv.Entries); len(added)+len(removed) > 0 {
			a.log.Info("dock inventory changed",
				"previous_run", prev.ID,
				"added", entryModels(added),
				"removed", entryModels(removed),
			)
		}
	}

	run := dock.Run{
		ID:        doc.RunID,
		Hostname:  doc.Hostname,
		Source:    inv.Source,
		StartedAt: doc.Timestamp,
		Entries:   inv.Entries,
	}
	if err := a.repo.SaveRun(ctx, run); err != nil {
		a.log.Warn("saving scan history failed", "error", err)
		return
	}

	if keep := a.cfg.Database.RetainRuns; keep > 0 {
		deleted, err := a.repo.Prune(ctx, keep)
		if err != nil {
			a.log.Warn("pruning scan history failed", "error", err)
		} else if deleted > 0 {
			a.log.Debug("pruned scan history", "deleted", deleted)
		}
	}
}

func entryModels(entries []dock.InventoryEntry) []string {
	models := make([]string, 0, len(entries))
	for _, e := range entries {
		models = append(models, e.Model)
	}
	return models
}

// watch runs a scan, then repeats every detection.interval or on an MQTT
// scan command until ctx is cancelled. Scans never overlap.
//
// Returns:
//   - int: Exit code of the last completed scan
//   - error: If the first report cannot be written
func (a *app) watch(ctx context.Context, format report.Format, stdout io.Writer) (int, error) {
	code, err := a.runOnce(ctx, format, stdout)
	if err != nil {
		return code, err
	}

	if a.mqtt != nil {
		if subErr := a.mqtt.SubscribeCommands(a.requestRescan); subErr != nil {
			a.log.Warn("MQTT commands unavailable", "error", subErr)
		}
	}

	ticker := time.NewTicker(a.cfg.Detection.Interval)
	defer ticker.Stop()

	a.log.Info("watching", "interval", a.cfg.Detection.Interval)
	for {
		select {
		case <-ctx.Done():
			a.log.Info("stopping watch", "reason", ctx.Err())
			return code, nil
		case <-ticker.C:
		case <-a.rescan:
			a.log.Info("rescan requested")
		}

		next, runErr := a.runOnce(ctx, format, stdout)
		if runErr != nil {
			a.log.Error("scan failed", "error", runErr)
			continue
		}
		code = next
	}
}

// requestRescan queues one extra scan. Requests that arrive while one is
// already queued are merged.
func (a *app) requestRescan(cmd mqtt.Command) {
	a.log.Debug("command received", "action", cmd.Action, "request_id", cmd.RequestID)
	select {
	case a.rescan <- struct{}{}:
	default:
	}
}
