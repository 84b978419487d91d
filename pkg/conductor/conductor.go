// Package conductor owns the two long-running loops that make up the
// daemon process, syncing vendor cities and draining the processing
// queue, plus the graceful-shutdown sequencing between them: a
// cancel-and-wait shape generalized from one periodic task to two
// independently-paced loops that share a single cancellation signal.
package conductor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/fetcher"
	"github.com/civicsync/civicsync/pkg/processor"
	"github.com/civicsync/civicsync/pkg/queue"
)

// pollResolution bounds how long a shutdown signal can take to interrupt
// the sync loop's otherwise-long sleep between passes.
const pollResolution = time.Second

// Conductor wires the fetcher's sync loop and the processor's lease loop
// together and exposes the operations backing each CLI subcommand.
type Conductor struct {
	fetcher   *fetcher.Fetcher
	processor *processor.Processor
	queue     *queue.Queue
	cfg       *config.FetcherConfig

	mu          sync.RWMutex
	lastResults map[string]fetcher.SyncResult

	wg sync.WaitGroup
}

// New wires a fetcher, processor, and queue together under one shutdown
// sequence.
func New(f *fetcher.Fetcher, p *processor.Processor, q *queue.Queue, cfg *config.FetcherConfig) *Conductor {
	return &Conductor{fetcher: f, processor: p, queue: q, cfg: cfg}
}

// Status is returned to the `status` CLI command: queue job counts plus
// the most recent SyncResult seen for each city. The per-city results are
// process-local and not persisted; a restart loses the history, though the
// queue and store remain the durable sources of truth regardless.
type Status struct {
	Queue       queue.Stats
	LastResults map[string]fetcher.SyncResult
}

// Status reports the current queue distribution and the latest sync
// outcome recorded for every city synced since this process started.
func (c *Conductor) Status(ctx context.Context) (Status, error) {
	stats, err := c.queue.Stats(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load queue stats: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make(map[string]fetcher.SyncResult, len(c.lastResults))
	for k, v := range c.lastResults {
		results[k] = v
	}
	return Status{Queue: stats, LastResults: results}, nil
}

// RunDaemon starts both the sync loop and the processing loop and blocks
// until ctx is cancelled, then waits up to ShutdownGracePeriod for
// in-flight work to finish before returning.
func (c *Conductor) RunDaemon(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.runSyncLoop(loopCtx)
	}()
	go func() {
		defer c.wg.Done()
		if err := c.processor.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("processing loop exited with error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for in-flight work",
		"grace_period", c.cfg.ShutdownGracePeriod)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("daemon loops stopped cleanly")
	case <-time.After(c.cfg.ShutdownGracePeriod):
		slog.Warn("shutdown grace period elapsed before loops finished; exiting anyway")
	}
	return nil
}

// RunSyncOnly runs the sync loop alone, blocking until ctx is cancelled.
// Backs the fetcher-only CLI mode.
func (c *Conductor) RunSyncOnly(ctx context.Context) error {
	c.runSyncLoop(ctx)
	return ctx.Err()
}

// RunProcessingOnly runs the processing loop alone, blocking until ctx is
// cancelled. Backs the processor-only CLI mode.
func (c *Conductor) RunProcessingOnly(ctx context.Context) error {
	return c.processor.Run(ctx)
}

// SyncCity runs one sync pass over a single city, outside the scheduled
// loop. Backs the `sync-city` CLI command.
func (c *Conductor) SyncCity(ctx context.Context, banana string) fetcher.SyncResult {
	result := c.fetcher.SyncCity(ctx, banana)
	c.recordResult(result)
	return result
}

// SyncAndProcessCity syncs one city, then drains every job that sync
// produced for that city before returning. Backs the `sync-and-process-city`
// CLI command, useful for a one-shot backfill of a single city without
// running the full daemon.
func (c *Conductor) SyncAndProcessCity(ctx context.Context, banana string) (fetcher.SyncResult, error) {
	result := c.SyncCity(ctx, banana)

	for {
		job, err := c.queue.LeaseBanana(ctx, banana)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				return result, nil
			}
			return result, fmt.Errorf("lease job for %s: %w", banana, err)
		}
		if err := c.processor.ProcessJob(ctx, job); err != nil {
			slog.Error("job failed during sync-and-process", "banana", banana, "job_id", job.ID,
				"job_type", job.JobType, "error", err)
		}
	}
}

// runSyncLoop runs an immediate pass, then repeats on SyncInterval until
// ctx is cancelled. The sleep between passes is polled at pollResolution
// so a cancellation is honored promptly even though the interval itself is
// typically 24h.
func (c *Conductor) runSyncLoop(ctx context.Context) {
	c.runSyncPass(ctx)
	for c.interruptibleSleep(ctx, c.cfg.SyncInterval) {
		c.runSyncPass(ctx)
	}
}

func (c *Conductor) runSyncPass(ctx context.Context) {
	results, err := c.fetcher.SyncAll(ctx)
	for _, r := range results {
		c.recordResult(r)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sync pass failed", "error", err)
	}
}

// interruptibleSleep waits d, checking for cancellation every
// pollResolution. Returns false if ctx was cancelled before d elapsed.
func (c *Conductor) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(pollResolution)
	defer timer.Stop()
	remaining := d
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			remaining -= pollResolution
			if remaining > 0 {
				timer.Reset(pollResolution)
			}
		}
	}
	return true
}

func (c *Conductor) recordResult(r fetcher.SyncResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResults == nil {
		c.lastResults = make(map[string]fetcher.SyncResult)
	}
	c.lastResults[r.Banana] = r
}
