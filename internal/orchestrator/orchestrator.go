// Package orchestrator drives one end-to-end pipeline run: scan every source,
// normalize and persist the yield, then translate the backlog.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/governor"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/normalize"
	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/translate"
)

// ErrRunInProgress is returned when a trigger arrives while a run is active.
// Runs are exclusive; the trigger should retry after the current run settles.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunStore persists run reports.
type RunStore interface {
	CreateRun(ctx context.Context, report *ingest.RunReport) error
	FinalizeRun(ctx context.Context, report *ingest.RunReport) error
	GetRun(ctx context.Context, id string) (*ingest.RunReport, error)
	LatestRun(ctx context.Context) (*ingest.RunReport, error)
}

// Options bounds one run.
type Options struct {
	RunTimeout time.Duration
	DaysBack   int
	MaxItems   int
}

// Orchestrator owns the run state machine. At most one run executes at a
// time; concurrent triggers are rejected, never queued.
type Orchestrator struct {
	adapters   []ingest.SourceAdapter
	governor   *governor.Governor
	normalizer *normalize.Normalizer
	translator *translate.Batch
	runs       RunStore
	clock      ingest.Clock
	ids        ingest.IDGenerator
	opts       Options
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
}

// New assembles the orchestrator over its pipeline stages.
func New(
	adapters []ingest.SourceAdapter,
	gov *governor.Governor,
	normalizer *normalize.Normalizer,
	translator *translate.Batch,
	runs RunStore,
	clock ingest.Clock,
	ids ingest.IDGenerator,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 15 * time.Minute
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 1
	}
	return &Orchestrator{
		adapters:   adapters,
		governor:   gov,
		normalizer: normalizer,
		translator: translator,
		runs:       runs,
		clock:      clock,
		ids:        ids,
		opts:       opts,
		logger:     logger.Named("orchestrator"),
	}
}

// Running reports whether a run is currently executing.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Trigger executes one full run synchronously and returns the finalized
// report. Per-source failures are isolated: a structural break or exhausted
// retries on one source never stops the others, and their records commit
// regardless. Only a store failure aborts the run outright.
func (o *Orchestrator) Trigger(ctx context.Context) (*ingest.RunReport, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	runID, err := o.ids.NewID()
	if err != nil {
		return nil, err
	}

	now := o.clock.Now().UTC()
	run := ingest.RunContext{
		RunID:    runID,
		Since:    now.AddDate(0, 0, -o.opts.DaysBack),
		Until:    now,
		MaxItems: o.opts.MaxItems,
		// Every record captured in this run shares the batch capture date so
		// downstream day aggregates group whole batches together.
		BatchDate: now.Truncate(24 * time.Hour),
	}

	report := ingest.NewRunReport(runID, now)
	if err := o.runs.CreateRun(ctx, report); err != nil {
		return nil, ingest.PersistenceFailure(err)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	persistenceFailed := o.scanAll(runCtx, run, report)

	if !persistenceFailed {
		translated, deferred, terr := o.translator.Run(runCtx)
		if terr != nil {
			// Only persistence failures escape the batch translator.
			o.logger.Error("translation pass aborted", zap.Error(terr))
			persistenceFailed = true
		} else {
			// Deferrals land in the report counters so the trigger sees them
			// without log access.
			pending := 0
			for source, n := range deferred {
				report.Counters(source).TranslationsDeferred += n
				pending += n
			}
			o.logger.Info("translation pass finished",
				zap.Int("translated", translated),
				zap.Int("deferred", pending))
		}
	}

	report.Finalize(o.clock.Now().UTC(), persistenceFailed)
	ingest.Runs.WithLabelValues(string(report.Status)).Inc()

	// Finalizing the report uses the parent context so a run timeout does not
	// also lose the report.
	if err := o.runs.FinalizeRun(ctx, report); err != nil {
		o.logger.Error("run report finalize failed", zap.Error(err))
	}

	o.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("status", string(report.Status)),
		zap.Int("failed_sources", len(report.Errors)))
	return report, nil
}

// scanAll fans out one goroutine per source and waits for all of them.
// Returns true when any source hit an unrecoverable store failure.
func (o *Orchestrator) scanAll(ctx context.Context, run ingest.RunContext, report *ingest.RunReport) bool {
	var (
		wg         sync.WaitGroup
		reportMu   sync.Mutex
		storeBroke bool
	)
	for _, adapter := range o.adapters {
		wg.Add(1)
		go func(adapter ingest.SourceAdapter) {
			defer wg.Done()
			source := adapter.Source()
			counters := report.Counters(source)

			items, err := o.governor.Invoke(ctx, adapter, run)
			if err != nil {
				if ingest.IsZeroYield(err) {
					// Nothing matched today. Counts as a clean zero.
					o.logger.Info("source yielded nothing",
						zap.String("source", string(source)),
						zap.String("class", string(ingest.Classify(err))))
					return
				}
				reportMu.Lock()
				report.MarkSourceFailed(source, err)
				reportMu.Unlock()
				o.logger.Error("source scan failed",
					zap.String("source", string(source)),
					zap.String("class", string(ingest.Classify(err))),
					zap.Error(err))
				return
			}

			if err := o.normalizer.Process(ctx, source, items, run, counters); err != nil {
				reportMu.Lock()
				report.MarkSourceFailed(source, err)
				storeBroke = true
				reportMu.Unlock()
				o.logger.Error("persistence failure during normalization",
					zap.String("source", string(source)), zap.Error(err))
				return
			}

			o.logger.Info("source scan finished",
				zap.String("source", string(source)),
				zap.Int("attempted", counters.Attempted),
				zap.Int("extracted", counters.Extracted),
				zap.Int("deduplicated", counters.Deduplicated),
				zap.Int("failed", counters.Failed))
		}(adapter)
	}
	wg.Wait()
	return storeBroke
}
