// Package processor drains the durable queue and turns each leased
// MeetingJob or MatterJob into written summaries. Its main loop is a
// single logical worker looping lease-dispatch-complete with
// interruptible sleeps on empty-queue and error conditions, covering the
// item-level, monolithic, and matter summarization paths.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/civicsync/civicsync/pkg/attachment"
	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/contentfilter"
	"github.com/civicsync/civicsync/pkg/doccache"
	"github.com/civicsync/civicsync/pkg/extract"
	"github.com/civicsync/civicsync/pkg/idgen"
	"github.com/civicsync/civicsync/pkg/llmclient"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/queue"
	"github.com/civicsync/civicsync/pkg/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// extractTimeout bounds a single document's download-and-parse call. It is
// not operator-configurable; ExtractionConcurrency is the knob that matters
// for overall resource use.
const extractTimeout = 60 * time.Second

// Processor is a single logical worker draining the job queue.
type Processor struct {
	store     *store.Store
	queue     *queue.Queue
	filter    *contentfilter.Filter
	filterCfg *config.FilterConfig
	queueCfg  *config.QueueConfig
	extractor extract.Extractor
	llm       *llmclient.Client
	hasher    *attachment.Hasher
}

// New wires a Processor from its collaborators.
func New(s *store.Store, q *queue.Queue, filter *contentfilter.Filter, filterCfg *config.FilterConfig, queueCfg *config.QueueConfig, extractor extract.Extractor, llm *llmclient.Client, hasher *attachment.Hasher) *Processor {
	return &Processor{
		store:     s,
		queue:     q,
		filter:    filter,
		filterCfg: filterCfg,
		queueCfg:  queueCfg,
		extractor: extractor,
		llm:       llm,
		hasher:    hasher,
	}
}

// Run drains the queue until ctx is cancelled: lease, dispatch, complete or
// fail, loop. It recovers stale leases from a prior crashed worker before
// entering the loop.
func (p *Processor) Run(ctx context.Context) error {
	if n, err := p.queue.RecoverStale(ctx); err != nil {
		slog.Error("recover stale jobs failed", "error", err)
	} else if n > 0 {
		slog.Info("recovered stale jobs", "count", n)
	}

	for ctx.Err() == nil {
		job, err := p.queue.Lease(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				if !p.sleep(ctx, p.queueCfg.PollInterval) {
					break
				}
				continue
			}
			slog.Error("lease failed", "error", err)
			if !p.sleep(ctx, p.queueCfg.PollBackoff) {
				break
			}
			continue
		}

		if err := p.handle(ctx, job); err != nil {
			slog.Error("job handling failed", "job_id", job.ID, "job_type", job.JobType, "error", err)
			if !p.sleep(ctx, p.queueCfg.ErrorBackoff) {
				break
			}
		}
	}
	return ctx.Err()
}

// sleep waits for d or ctx cancellation, reporting which happened first.
func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ProcessJob dispatches and records the terminal outcome of a single
// already-leased job. Exposed for the `sync-and-process-city` CLI path,
// which drains a banana-scoped lease loop outside the main Run loop.
func (p *Processor) ProcessJob(ctx context.Context, job *models.QueueJob) error {
	return p.handle(ctx, job)
}

// handle dispatches one leased job and records its terminal outcome. A
// non-nil return means the job failed and the worker should back off before
// its next lease.
func (p *Processor) handle(ctx context.Context, job *models.QueueJob) error {
	var procErr error
	switch job.JobType {
	case models.JobTypeMeeting:
		var payload models.MeetingJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			procErr = fmt.Errorf("decode meeting payload: %w", err)
		} else {
			procErr = p.processMeeting(ctx, payload.MeetingID)
		}
	case models.JobTypeMatter:
		var payload models.MatterJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			procErr = fmt.Errorf("decode matter payload: %w", err)
		} else {
			procErr = p.processMatter(ctx, payload)
		}
	default:
		procErr = fmt.Errorf("unknown job type %q", job.JobType)
	}

	if procErr == nil {
		return p.queue.Complete(ctx, job.ID)
	}

	if err := p.queue.Fail(ctx, job.ID, procErr.Error(), classifyRetryable(procErr)); err != nil {
		return fmt.Errorf("record failure for job %d: %w (original: %v)", job.ID, err, procErr)
	}
	return procErr
}

// classifyRetryable implements the error taxonomy: only a confirmed
// credentials problem with the LLM service is non-retryable; every other
// processing error (transient network/5xx failures included) is retried up
// to the queue's MaxRetries.
func classifyRetryable(err error) bool {
	return !errors.Is(err, llmclient.ErrUnavailable)
}

// processMeeting picks the item-level or monolithic path based on whether
// the meeting has any agenda items carrying attachments.
func (p *Processor) processMeeting(ctx context.Context, meetingID string) error {
	meeting, items, err := p.store.GetMeetingWithItems(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("load meeting %s: %w", meetingID, err)
	}

	hasAttachedItems := false
	for _, item := range items {
		if len(item.Attachments) > 0 {
			hasAttachedItems = true
			break
		}
	}

	switch {
	case hasAttachedItems:
		return p.processMeetingItemLevel(ctx, meeting, items)
	case meeting.PacketURL != nil && *meeting.PacketURL != "":
		return p.processMeetingMonolithic(ctx, meeting)
	default:
		// No attachments anywhere and no packet to fall back to; nothing to
		// summarize. Mark completed so the enqueue decider never re-queues it.
		return p.store.UpdateMeetingProcessingStatus(ctx, meeting.ID, models.ProcessingCompleted)
	}
}

// processMeetingItemLevel implements the per-item summarization path: skip
// procedural and already-summarized items, build the meeting's shared
// DocumentCache, extract concurrently, submit a batch, and write results as
// each chunk arrives.
func (p *Processor) processMeetingItemLevel(ctx context.Context, meeting *models.Meeting, items []models.AgendaItem) error {
	city, err := p.store.GetCity(ctx, meeting.Banana)
	if err != nil {
		return fmt.Errorf("load city %s: %w", meeting.Banana, err)
	}

	var candidates []models.AgendaItem
	for _, item := range items {
		if item.HasSummary() {
			continue
		}
		if skip, reason := p.filter.ShouldSkipItem(item.Title); skip {
			if err := p.store.UpdateItemFilterReason(ctx, item.ID, reason); err != nil {
				return fmt.Errorf("record filter reason for item %s: %w", item.ID, err)
			}
			continue
		}
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return p.store.UpdateMeetingProcessingStatus(ctx, meeting.ID, models.ProcessingCompleted)
	}

	itemAttachmentURLs := make(map[string][]string, len(candidates))
	seenURL := make(map[string]bool)
	var kept []models.Attachment
	for _, item := range candidates {
		for _, a := range item.Attachments {
			itemAttachmentURLs[item.ID] = append(itemAttachmentURLs[item.ID], a.URL)
			if seenURL[a.URL] {
				continue
			}
			if p.filter.ClassifyDocument(meeting.Banana, a.Name) != contentfilter.DocumentGeneral {
				continue
			}
			seenURL[a.URL] = true
			kept = append(kept, a)
		}
	}
	kept = collapseVersions(kept)

	keptURL := make(map[string]bool, len(kept))
	urls := make([]string, 0, len(kept))
	for _, a := range kept {
		keptURL[a.URL] = true
		urls = append(urls, a.URL)
	}

	cache, err := p.extractAll(ctx, urls)
	if err != nil {
		return fmt.Errorf("extract meeting %s documents: %w", meeting.ID, err)
	}
	defer cache.Release()

	finalItemURLs := make(map[string][]string, len(candidates))
	refCountInput := make([][]string, 0, len(candidates))
	for _, item := range candidates {
		var final []string
		for _, url := range itemAttachmentURLs[item.ID] {
			if !keptURL[url] {
				continue
			}
			if _, ok := cache.Get(url); !ok {
				continue // extraction failed or the document was discarded
			}
			final = append(final, url)
		}
		finalItemURLs[item.ID] = final
		refCountInput = append(refCountInput, final)
	}
	refCounts := doccache.ReferenceCounts(refCountInput)

	sharedURLs := make(map[string]bool)
	var sharedText strings.Builder
	for url, count := range refCounts {
		if count < 2 {
			continue
		}
		sharedURLs[url] = true
		if r, ok := cache.Get(url); ok {
			sharedText.WriteString(r.Text)
			sharedText.WriteString("\n")
		}
	}

	var sharedContexts []llmclient.SharedContext
	if sharedText.Len() > 0 {
		sharedContexts = []llmclient.SharedContext{{Ref: meeting.ID, Text: sharedText.String()}}
	}

	requests := make([]llmclient.Request, 0, len(candidates))
	requestItems := make(map[string]models.AgendaItem, len(candidates))
	for _, item := range candidates {
		var text strings.Builder
		pageCount := 0
		referencesShared := false
		for _, url := range finalItemURLs[item.ID] {
			r, _ := cache.Get(url)
			pageCount += r.PageCount
			if sharedURLs[url] {
				referencesShared = true
				continue
			}
			text.WriteString(r.Text)
			text.WriteString("\n")
		}
		req := llmclient.Request{ItemID: item.ID, Title: item.Title, Text: text.String(), PageCount: pageCount}
		if referencesShared && len(sharedContexts) > 0 {
			req.SharedContextRef = meeting.ID
		}
		requests = append(requests, req)
		requestItems[item.ID] = item
	}

	chunks, err := p.llm.SubmitBatch(ctx, sharedContexts, requests)
	if err != nil {
		return fmt.Errorf("submit llm batch for meeting %s: %w", meeting.ID, err)
	}

	var topicLists [][]string
	for chunk := range chunks {
		if chunk.Err != nil {
			slog.Error("item summarization failed", "item_id", chunk.ItemID, "error", chunk.Err)
			continue
		}
		item := requestItems[chunk.ItemID]
		topics := normalizeTopics(chunk.Topics)
		if err := p.store.UpdateItemSummary(ctx, chunk.ItemID, chunk.Summary, topics); err != nil {
			return fmt.Errorf("write summary for item %s: %w", chunk.ItemID, err)
		}
		topicLists = append(topicLists, topics)

		if item.MatterID != nil && *item.MatterID != "" {
			hash := p.hasher.Hash(ctx, item.Attachments, city.Config.EnhancedHashing)
			if err := p.store.UpdateMatterCanonical(ctx, *item.MatterID, chunk.Summary, topics, hash); err != nil {
				return fmt.Errorf("write matter canonical for %s: %w", *item.MatterID, err)
			}
		}
	}

	meetingTopics := mergeTopics(meeting.Topics, mergeTopics(topicLists...))
	if err := p.store.UpdateMeetingTopicsAndParticipation(ctx, meeting.ID, meetingTopics, meeting.Participation); err != nil {
		return fmt.Errorf("update meeting topics for %s: %w", meeting.ID, err)
	}
	return p.store.UpdateMeetingProcessingStatus(ctx, meeting.ID, models.ProcessingCompleted)
}

// extractAll downloads and parses every url concurrently, bounded by the
// configured extraction semaphore. A document that fails to extract or
// fails the content heuristics is simply absent from the returned cache;
// callers treat a cache miss as "no usable text", not an error.
func (p *Processor) extractAll(ctx context.Context, urls []string) (*doccache.Cache, error) {
	cache := doccache.New()
	concurrency := p.filterCfg.ExtractionConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for _, url := range urls {
		url := url
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			result, err := p.extractor.Extract(gctx, url, extractTimeout)
			if err != nil {
				slog.Warn("pdf extraction failed", "url", url, "error", err)
				return nil
			}
			if extract.ShouldDiscard(p.filterCfg, result) {
				return nil
			}
			cache.Put(url, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cache, nil
}

// processMeetingMonolithic handles a meeting with no agenda items but a
// packet URL: extract the whole packet and run one LLM call over it.
func (p *Processor) processMeetingMonolithic(ctx context.Context, meeting *models.Meeting) error {
	result, err := p.extractor.Extract(ctx, *meeting.PacketURL, extractTimeout)
	if err != nil {
		return fmt.Errorf("extract packet for meeting %s: %w", meeting.ID, err)
	}
	if extract.ShouldDiscard(p.filterCfg, result) {
		return p.store.UpdateMeetingProcessingStatus(ctx, meeting.ID, models.ProcessingCompleted)
	}

	req := llmclient.Request{ItemID: meeting.ID, Title: meeting.Title, Text: result.Text, PageCount: result.PageCount}
	chunks, err := p.llm.SubmitBatch(ctx, nil, []llmclient.Request{req})
	if err != nil {
		return fmt.Errorf("submit llm request for meeting %s: %w", meeting.ID, err)
	}

	chunk, ok := <-chunks
	if !ok {
		return fmt.Errorf("llm returned no result for meeting %s", meeting.ID)
	}
	if chunk.Err != nil {
		return fmt.Errorf("summarize meeting %s: %w", meeting.ID, chunk.Err)
	}

	return p.store.UpdateMeetingMonolithicSummary(ctx, meeting.ID, chunk.Summary, normalizeTopics(chunk.Topics))
}

// processMatter validates the matter ID, unions attachments across its
// item_ids, runs extraction and a single LLM call against the richest
// representative item, writes the matter's canonical fields, and backfills
// any sibling item still missing a summary.
func (p *Processor) processMatter(ctx context.Context, payload models.MatterJobPayload) error {
	if !idgen.ValidMatterID(payload.MatterID) {
		return fmt.Errorf("malformed matter_id %q", payload.MatterID)
	}

	items, err := p.store.ListAgendaItemsByIDs(ctx, payload.ItemIDs)
	if err != nil {
		return fmt.Errorf("load items for matter %s: %w", payload.MatterID, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("matter %s: no agenda items found for item_ids", payload.MatterID)
	}

	matter, err := p.store.GetMatter(ctx, payload.MatterID)
	if err != nil {
		return fmt.Errorf("load matter %s: %w", payload.MatterID, err)
	}

	city, err := p.store.GetCity(ctx, matter.Banana)
	if err != nil {
		return fmt.Errorf("load city %s: %w", matter.Banana, err)
	}

	seenURL := make(map[string]bool)
	var allAttachments []models.Attachment
	representative := items[0]
	for _, item := range items {
		if len(item.Attachments) > len(representative.Attachments) {
			representative = item
		}
		for _, a := range item.Attachments {
			if seenURL[a.URL] {
				continue
			}
			seenURL[a.URL] = true
			allAttachments = append(allAttachments, a)
		}
	}
	attachmentHash := p.hasher.Hash(ctx, allAttachments, city.Config.EnhancedHashing)

	var combined extract.Result
	for _, a := range representative.Attachments {
		if p.filter.ClassifyDocument(matter.Banana, a.Name) != contentfilter.DocumentGeneral {
			continue
		}
		r, err := p.extractor.Extract(ctx, a.URL, extractTimeout)
		if err != nil {
			slog.Warn("matter representative extraction failed", "matter_id", payload.MatterID, "url", a.URL, "error", err)
			continue
		}
		if extract.ShouldDiscard(p.filterCfg, r) {
			continue
		}
		combined.Text += r.Text + "\n"
		combined.PageCount += r.PageCount
	}

	req := llmclient.Request{ItemID: payload.MatterID, Title: matter.Title, Text: combined.Text, PageCount: combined.PageCount}
	chunks, err := p.llm.SubmitBatch(ctx, nil, []llmclient.Request{req})
	if err != nil {
		return fmt.Errorf("submit llm request for matter %s: %w", payload.MatterID, err)
	}

	chunk, ok := <-chunks
	if !ok {
		return fmt.Errorf("llm returned no result for matter %s", payload.MatterID)
	}
	if chunk.Err != nil {
		return fmt.Errorf("summarize matter %s: %w", payload.MatterID, chunk.Err)
	}

	topics := normalizeTopics(chunk.Topics)
	if err := p.store.UpdateMatterCanonical(ctx, payload.MatterID, chunk.Summary, topics, attachmentHash); err != nil {
		return fmt.Errorf("write matter canonical %s: %w", payload.MatterID, err)
	}

	var backfillIDs []string
	for _, item := range items {
		if !item.HasSummary() {
			backfillIDs = append(backfillIDs, item.ID)
		}
	}
	return p.store.BackfillItemSummaries(ctx, backfillIDs, chunk.Summary, topics)
}

var versionPattern = regexp.MustCompile(`(?i)ver(?:sion)?\.?\s*(\d+)`)

// collapseVersions drops all but the highest-version attachment within each
// base-name group, e.g. keeping only "StaffReport_Ver2.pdf" when
// "StaffReport_Ver1.pdf" also appears.
func collapseVersions(attachments []models.Attachment) []models.Attachment {
	type versioned struct {
		attachment models.Attachment
		version    int
	}
	best := make(map[string]versioned)
	var order []string
	var unversioned []models.Attachment

	for _, a := range attachments {
		base, version, hasVersion := splitVersion(a.Name)
		if !hasVersion {
			unversioned = append(unversioned, a)
			continue
		}
		existing, ok := best[base]
		if !ok {
			order = append(order, base)
		}
		if !ok || version > existing.version {
			best[base] = versioned{attachment: a, version: version}
		}
	}

	out := make([]models.Attachment, 0, len(order)+len(unversioned))
	for _, base := range order {
		out = append(out, best[base].attachment)
	}
	return append(out, unversioned...)
}

// splitVersion extracts a "VerN" token from name, returning the name with
// the token removed as base, along with the parsed version number.
func splitVersion(name string) (base string, version int, hasVersion bool) {
	loc := versionPattern.FindStringSubmatchIndex(name)
	if loc == nil {
		return name, 0, false
	}
	base = strings.TrimSpace(name[:loc[0]] + name[loc[1]:])
	n, err := strconv.Atoi(name[loc[2]:loc[3]])
	if err != nil {
		return name, 0, false
	}
	return base, n, true
}
