// Package pipeline coordinates one acquisition cycle end to end: build
// the source set, open the store, establish the gateway session, fan the
// fetches out, persist what came back, and release both handles on every
// exit path.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcleary/barharvest/internal/config"
	"github.com/jcleary/barharvest/internal/connection"
	"github.com/jcleary/barharvest/internal/econ"
	"github.com/jcleary/barharvest/internal/fetch"
	"github.com/jcleary/barharvest/internal/model"
	"github.com/jcleary/barharvest/internal/orchestrator"
	"github.com/jcleary/barharvest/internal/store"
)

// connector is the connection manager surface the pipeline drives.
type connector interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Gateway() connection.Gateway
}

// Runner executes acquisition cycles for a fixed configuration. All
// run-scoped handles live here; nothing is process-global.
type Runner struct {
	cfg    *config.HarvesterConfig
	logger *slog.Logger

	// Production wiring, replaceable in tests.
	conn      connector
	openStore func(ctx context.Context) (store.Store, error)
	econ      fetch.EconSource
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg *config.HarvesterConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{cfg: cfg, logger: logger}

	r.conn = connection.NewManager(connection.Config{
		Host:            cfg.Broker.Host,
		Port:            cfg.Broker.Port,
		ClientID:        cfg.Broker.ClientID,
		ConnectAttempts: cfg.Broker.ConnectAttempts,
		ConnectBackoff:  cfg.Broker.ConnectBackoff,
		CallTimeout:     cfg.Broker.CallTimeout,
	}, logger)

	r.openStore = func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, cfg.Storage, logger)
	}

	r.econ = econ.NewClient(econ.Endpoints{
		ForecastURL: cfg.Econ.ForecastURL,
		RatesURL:    cfg.Econ.RatesURL,
		APIKey:      cfg.Econ.APIKey,
	},
		econ.WithLogger(logger),
		econ.WithTimeout(cfg.Econ.Timeout),
		econ.WithRetries(cfg.Econ.MaxAttempts, cfg.Econ.Backoff),
	)

	return r
}

// Run performs one acquisition cycle. A non-nil error means the run did
// not complete: source or storage bootstrap failed, the gateway connect
// budget was exhausted, or the run was interrupted. Per-source fetch and
// persist failures are tallied in the Report instead; they never fail
// the run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", report.RunID)

	sources, err := r.cfg.DataSources()
	if err != nil {
		return report, fmt.Errorf("build sources: %w", err)
	}
	report.Requested = len(sources)

	logger.Info("harvest starting",
		"sources", len(sources),
		"concurrency", r.cfg.Fetch.Concurrency,
		"storage", r.cfg.Storage.Driver,
	)

	st, err := r.openStore(ctx)
	if err != nil {
		return report, fmt.Errorf("open store: %w", err)
	}

	// Guaranteed cleanup: the gateway session and the store handle are
	// released exactly once on every exit path below, fatal connect
	// failures included.
	defer func() {
		if err := r.conn.Disconnect(); err != nil {
			logger.Warn("gateway disconnect failed", "error", err)
		}
		if err := st.Close(); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}()

	if err := st.EnsureSchema(ctx); err != nil {
		return report, fmt.Errorf("ensure schema: %w", err)
	}

	// Terminal connect failure is the one fatal error class: nothing is
	// fetched this run and the caller reports nonzero.
	if err := r.conn.Connect(ctx); err != nil {
		return report, err
	}

	fetcher := fetch.New(r.conn.Gateway(), r.econ, logger)
	orch := orchestrator.New(orchestrator.Config{
		Concurrency: r.cfg.Fetch.Concurrency,
		RunTimeout:  r.cfg.Fetch.RunTimeout,
	}, fetcher, logger)

	results := orch.Run(ctx, buildRequests(sources, r.cfg.Fetch))

	for _, src := range sources {
		res := results[src.Symbol]
		switch res.Outcome {
		case model.OutcomeSuccess:
			report.Succeeded++
			stats, err := st.WriteBars(ctx, res.Symbol, res.Points)
			if err != nil {
				logger.Error("persist failed",
					"symbol", res.Symbol,
					"rows", len(res.Points),
					"error", err,
				)
				report.PersistFailed++
				continue
			}
			report.RowsWritten += stats.Inserted
			report.RowsSkipped += stats.Duplicates
		case model.OutcomeEmpty:
			report.Empty++
		case model.OutcomeFailed:
			report.Failed++
		}
	}

	report.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		logger.Warn("harvest interrupted", "summary", report.Summary())
		return report, fmt.Errorf("run interrupted: %w", err)
	}

	logger.Info("harvest complete",
		"requested", report.Requested,
		"succeeded", report.Succeeded,
		"empty", report.Empty,
		"failed", report.Failed,
		"persist_failed", report.PersistFailed,
		"rows_written", report.RowsWritten,
		"rows_skipped", report.RowsSkipped,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// buildRequests stamps each source with the run's retry policy.
func buildRequests(sources []model.DataSource, cfg config.FetchConfig) []model.FetchRequest {
	reqs := make([]model.FetchRequest, 0, len(sources))
	for _, src := range sources {
		reqs = append(reqs, model.FetchRequest{
			Source:      src,
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.Backoff,
		})
	}
	return reqs
}
