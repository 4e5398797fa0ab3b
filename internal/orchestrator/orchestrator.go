package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jcleary/barharvest/internal/model"
)

// Fetcher produces exactly one result per request. *fetch.Fetcher
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req model.FetchRequest) model.FetchResult
}

// Config holds orchestration settings.
type Config struct {
	Concurrency int           // Max in-flight fetches (default: 4)
	RunTimeout  time.Duration // Overall deadline for the batch; 0 = none
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 4}
}

// Orchestrator fans a request batch out over bounded concurrency and
// fans every outcome back in.
type Orchestrator struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates an Orchestrator driving the given fetcher.
func New(cfg Config, fetcher Fetcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	return &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run fetches every request concurrently and blocks until all outcomes
// are in. The returned map holds exactly one result per request, keyed
// by source symbol; request building guarantees symbols are unique.
//
// Tasks are isolated: one task's failure or panic never cancels a
// sibling. When the optional run deadline expires, tasks that have not
// started fail fast with the context error, but the fan-in still waits
// for every outcome.
func (o *Orchestrator) Run(ctx context.Context, requests []model.FetchRequest) map[string]model.FetchResult {
	start := time.Now()

	if len(requests) == 0 {
		o.logger.Debug("no sources to fetch")
		return map[string]model.FetchResult{}
	}

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	// One slot per request index; no two tasks share a slot, so the
	// slice needs no lock.
	results := make([]model.FetchResult, len(requests))
	sem := semaphore.NewWeighted(int64(o.cfg.Concurrency))
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(i int, req model.FetchRequest) {
			defer wg.Done()
			results[i] = o.runOne(ctx, sem, req)
		}(i, req)
	}

	wg.Wait()

	out := make(map[string]model.FetchResult, len(results))
	var succeeded, empty, failed int
	for _, res := range results {
		out[res.Symbol] = res
		switch res.Outcome {
		case model.OutcomeSuccess:
			succeeded++
		case model.OutcomeEmpty:
			empty++
		case model.OutcomeFailed:
			failed++
		}
	}

	o.logger.Info("fetch cycle complete",
		"requested", len(requests),
		"succeeded", succeeded,
		"empty", empty,
		"failed", failed,
		"duration", time.Since(start),
	)

	return out
}

// runOne executes a single fetch task. A panicking fetch is recovered
// into a failed result so the batch always completes.
func (o *Orchestrator) runOne(ctx context.Context, sem *semaphore.Weighted, req model.FetchRequest) (res model.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("fetch task panicked",
				"symbol", req.Source.Symbol,
				"panic", r,
			)
			res = model.Failure(req.Source.Symbol, fmt.Errorf("fetch panicked: %v", r), 0)
		}
	}()

	// Acquire fails only when the run context is done; the task then
	// reports the context error instead of fetching.
	if err := sem.Acquire(ctx, 1); err != nil {
		return model.Failure(req.Source.Symbol, err, 0)
	}
	defer sem.Release(1)

	return o.fetcher.Fetch(ctx, req)
}
