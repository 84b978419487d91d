// Package fetcher schedules, partitions, and rate-limits the periodic
// vendor sync pass. It owns the "vendor partition" scheduler
// calls out as distinct from pkg/ratelimit's per-request politeness:
// this package decides which cities are due and inserts the idle period
// between vendor groups; pkg/ratelimit only paces individual requests
// within a group. Uses the same bounded-worker-pool shape as
// pkg/processor's extraction concurrency, via golang.org/x/sync/errgroup
// instead of a hand-rolled sync.WaitGroup.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/ratelimit"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/syncorchestrator"
	"github.com/civicsync/civicsync/pkg/vendoradapter"
	"golang.org/x/sync/errgroup"
)

// SyncResult summarizes one city's sync attempt within a pass.
type SyncResult struct {
	Banana            string
	Status            string // "ok" | "failed" | "skipped"
	MeetingsFound     int
	MeetingsProcessed int
	ItemsStored       int
	DurationSeconds   float64
	Error             string
}

// Fetcher runs sync passes over every active city, partitioned by vendor.
type Fetcher struct {
	store        *store.Store
	orchestrator *syncorchestrator.Orchestrator
	registry     vendoradapter.Registry
	limiter      *ratelimit.Limiter
	cfg          *config.FetcherConfig
	now          func() time.Time
}

// New wires a Fetcher from its collaborators.
func New(s *store.Store, orch *syncorchestrator.Orchestrator, registry vendoradapter.Registry, limiter *ratelimit.Limiter, cfg *config.FetcherConfig) *Fetcher {
	return &Fetcher{store: s, orchestrator: orch, registry: registry, limiter: limiter, cfg: cfg, now: time.Now}
}

// SyncAll runs one complete scheduled sync pass: partition active cities by
// vendor, sync each partition's due cities with bounded concurrency, and
// sleep an idle period between partitions. It returns
// as soon as ctx is cancelled, mid-partition results included.
func (f *Fetcher) SyncAll(ctx context.Context) ([]SyncResult, error) {
	cities, err := f.store.ListActiveCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active cities: %w", err)
	}

	partitions := partitionByVendor(cities)
	vendors := make([]string, 0, len(partitions))
	for v := range partitions {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors) // deterministic partition order run to run

	var results []SyncResult
	for i, vendor := range vendors {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		due, err := f.dueCities(ctx, partitions[vendor])
		if err != nil {
			return results, fmt.Errorf("rank vendor partition %s: %w", vendor, err)
		}

		results = append(results, f.syncPartition(ctx, vendor, due)...)

		if i < len(vendors)-1 {
			if err := f.idleBetweenPartitions(ctx); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

// SyncCity runs a single one-shot sync of one city, bypassing the
// scheduling-eligibility check — used by the `sync-city` CLI command
//, which always syncs regardless of the city's normal cadence.
func (f *Fetcher) SyncCity(ctx context.Context, banana string) SyncResult {
	city, err := f.store.GetCity(ctx, banana)
	if err != nil {
		return SyncResult{Banana: banana, Status: "failed", Error: fmt.Sprintf("load city: %v", err)}
	}
	return f.syncOneCity(ctx, *city)
}

// partitionByVendor groups cities by their configured vendor (// step 1).
func partitionByVendor(cities []models.City) map[string][]models.City {
	out := make(map[string][]models.City)
	for _, c := range cities {
		out[c.Vendor] = append(out[c.Vendor], c)
	}
	return out
}

// rankedCity pairs a city with its 30-day activity count, used both to
// order the partition (high-activity first) and to pick its schedule
// policy.
type rankedCity struct {
	city            models.City
	meetingCount30d int
}

// dueCities ranks a vendor partition by recent activity
// and filters to cities whose schedule policy says they're due now (step
// 3). Never-synced cities are always due.
func (f *Fetcher) dueCities(ctx context.Context, cities []models.City) ([]models.City, error) {
	ranked := make([]rankedCity, 0, len(cities))
	since := f.now().AddDate(0, 0, -30)
	for _, c := range cities {
		n, err := f.store.CountMeetingsSince(ctx, c.Banana, since)
		if err != nil {
			return nil, fmt.Errorf("count recent meetings for %s: %w", c.Banana, err)
		}
		ranked = append(ranked, rankedCity{city: c, meetingCount30d: n})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].meetingCount30d > ranked[j].meetingCount30d
	})

	due := make([]models.City, 0, len(ranked))
	for _, r := range ranked {
		if f.isDue(r) {
			due = append(due, r.city)
		}
	}
	return due, nil
}

// isDue applies the three-tier activity schedule: a
// city never synced before is always due.
func (f *Fetcher) isDue(r rankedCity) bool {
	if r.city.LastSyncedAt == nil {
		return true
	}
	elapsed := f.now().Sub(*r.city.LastSyncedAt)
	switch {
	case r.meetingCount30d >= f.cfg.HighActivityThreshold:
		return elapsed >= f.cfg.HighActivityInterval
	case r.meetingCount30d >= f.cfg.MediumActivityThreshold:
		return elapsed >= f.cfg.MediumActivityInterval
	default:
		return elapsed >= f.cfg.LowActivityInterval
	}
}

// syncPartition fans a vendor partition's due cities out across up to
// CitySyncConcurrency concurrent workers, each pacing
// itself through the shared RateLimiter before calling the vendor.
func (f *Fetcher) syncPartition(ctx context.Context, vendor string, due []models.City) []SyncResult {
	if len(due) == 0 {
		return nil
	}

	results := make([]SyncResult, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.CitySyncConcurrency)

	for i, city := range due {
		i, city := i, city
		g.Go(func() error {
			results[i] = f.syncOneCity(gctx, city)
			return nil // a single city's failure never aborts the partition
		})
	}
	_ = g.Wait()

	slog.Info("vendor partition synced", "vendor", vendor, "cities", len(due))
	return results
}

// syncOneCity paces itself via the RateLimiter, calls the vendor adapter,
// and hands every returned meeting draft to the SyncOrchestrator.
func (f *Fetcher) syncOneCity(ctx context.Context, city models.City) SyncResult {
	start := f.now()
	result := SyncResult{Banana: city.Banana, Status: "ok"}

	adapter, ok := f.registry.Adapter(city.Vendor)
	if !ok {
		result.Status = "failed"
		result.Error = fmt.Sprintf("no adapter registered for vendor %q", city.Vendor)
		return result
	}

	if err := f.limiter.WaitIfNeeded(ctx, city.Vendor); err != nil {
		result.Status = "failed"
		result.Error = fmt.Sprintf("rate limiter wait: %v", err)
		return result
	}

	since := city.LastSyncedAt
	if since == nil {
		zero := time.Time{}
		since = &zero
	}

	drafts, err := adapter.FetchMeetings(ctx, city.Banana, city.Config, *since)
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		result.DurationSeconds = f.now().Sub(start).Seconds()
		return result
	}
	result.MeetingsFound = len(drafts)

	for _, draft := range drafts {
		syncResult, err := f.orchestrator.SyncMeeting(ctx, city.Banana, draft)
		if err != nil {
			slog.Error("sync meeting failed", "banana", city.Banana, "vendor_meeting_key", draft.VendorMeetingKey, "error", err)
			continue
		}
		if syncResult.Skipped {
			continue
		}
		result.MeetingsProcessed++
		result.ItemsStored += syncResult.ItemCount
	}

	if err := f.store.UpdateLastSynced(ctx, city.Banana, f.now()); err != nil {
		slog.Error("update last synced failed", "banana", city.Banana, "error", err)
	}

	result.DurationSeconds = f.now().Sub(start).Seconds()
	return result
}

// idleBetweenPartitions sleeps a randomized 30-40s idle period (spec
// §4.3/§4.6), interruptible by ctx cancellation.
func (f *Fetcher) idleBetweenPartitions(ctx context.Context) error {
	lo, hi := f.cfg.PartitionIdleMin, f.cfg.PartitionIdleMax
	d := lo
	if hi > lo {
		d = lo + time.Duration(rand.Int64N(int64(hi-lo)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
