package downloader

import (
	"context"
	"errors"
	"time"

	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/links"
	"bookmarkdl/pkg/logger"
)

// Options configure an Orchestrator
type Options struct {
	ItemTimeout time.Duration
	Pause       time.Duration
	OutputDir   string
	BackupFile  string

	// OnStart is called when an item enters Invoking
	OnStart func(index, count int, url links.CandidateURL)
	// OnOutcome is called once per item after it reaches a final state
	OnOutcome func(count int, o Outcome)
}

// Orchestrator downloads URLs one at a time. A failure never affects
// later items and nothing is retried.
type Orchestrator struct {
	fetcher Fetcher
	opts    Options
	logger  logger.Logger
}

// NewOrchestrator creates an orchestrator around fetcher
func NewOrchestrator(fetcher Fetcher, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Orchestrator{
		fetcher: fetcher,
		opts:    opts,
		logger:  log.WithField("component", "orchestrator"),
	}
}

// RunAll attempts every URL in order and returns the summary. total is the
// size of the unfiltered URL set. When ctx is cancelled the current item
// is recorded as failed, the rest are left unattempted and ErrInterrupted
// is returned alongside the partial summary.
func (o *Orchestrator) RunAll(ctx context.Context, urls []links.CandidateURL, total int) (RunSummary, error) {
	summary := RunSummary{
		Total:      total,
		OutputDir:  o.opts.OutputDir,
		BackupFile: o.opts.BackupFile,
	}
	start := time.Now()

	o.logger.InfoWithFields("Starting downloads", map[string]interface{}{
		"count":        len(urls),
		"item_timeout": o.opts.ItemTimeout,
		"output_dir":   o.opts.OutputDir,
	})

	for i, url := range urls {
		if ctx.Err() != nil {
			summary.Elapsed = time.Since(start)
			return summary, bderrors.ErrInterrupted
		}

		outcome := o.attempt(ctx, i, len(urls), url)
		summary.record(outcome)
		logger.LogDownload(o.logger, string(url), string(outcome.Status), outcome.Elapsed, outcome.Reason)
		if o.opts.OnOutcome != nil {
			o.opts.OnOutcome(len(urls), outcome)
		}

		if err := pause(ctx, o.opts.Pause); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, bderrors.ErrInterrupted
		}
	}

	summary.Elapsed = time.Since(start)
	o.logger.InfoWithFields("Downloads finished", map[string]interface{}{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"timed_out":  summary.TimedOut,
		"elapsed":    summary.Elapsed,
	})
	return summary, nil
}

func (o *Orchestrator) attempt(ctx context.Context, index, count int, url links.CandidateURL) Outcome {
	out := Outcome{URL: url, Index: index, Status: StatusPending}

	out.Status = StatusInvoking
	o.logger.DebugWithFields("Invoking retrieval tool", map[string]interface{}{
		"index": index + 1,
		"count": count,
		"url":   string(url),
	})
	if o.opts.OnStart != nil {
		o.opts.OnStart(index, count, url)
	}

	itemCtx, cancel := context.WithTimeout(ctx, o.opts.ItemTimeout)
	defer cancel()

	started := time.Now()
	err := o.fetcher.Fetch(itemCtx, url)
	out.Elapsed = time.Since(started)

	switch {
	case err == nil:
		out.Status = StatusSucceeded
	case ctx.Err() != nil:
		out.Status = StatusFailed
		out.Reason = "interrupted"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(itemCtx.Err(), context.DeadlineExceeded):
		out.Status = StatusTimedOut
		out.Reason = "timed out after " + o.opts.ItemTimeout.String()
	default:
		out.Status = StatusFailed
		out.Reason = err.Error()
	}
	return out
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
