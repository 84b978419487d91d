// Package syncorchestrator turns one vendor-reported meeting into durable
// rows — meeting, agenda items, matter bookkeeping — inside a single
// transaction, then (once committed) decides what processing work to
// enqueue. Follows a validate-then-persist-then-enqueue shape, adapted
// from a single-entity create to a whole-meeting graph write.
package syncorchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/attachment"
	"github.com/civicsync/civicsync/pkg/contentfilter"
	"github.com/civicsync/civicsync/pkg/idgen"
	"github.com/civicsync/civicsync/pkg/matter"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/queue"
	"github.com/civicsync/civicsync/pkg/store"
	"github.com/civicsync/civicsync/pkg/vendoradapter"
)

// Orchestrator persists one vendor meeting draft at a time and enqueues
// the processing jobs it produces.
type Orchestrator struct {
	store  *store.Store
	queue  *queue.Queue
	filter *contentfilter.Filter
	hasher *attachment.Hasher
}

// New wires a store, queue, content filter, and attachment hasher together.
// The hasher is needed here (not just by the processor) because the matter
// enqueue decision compares a candidate attachment hash against the matter's
// last-summarized one.
func New(s *store.Store, q *queue.Queue, f *contentfilter.Filter, h *attachment.Hasher) *Orchestrator {
	return &Orchestrator{store: s, queue: q, filter: f, hasher: h}
}

// Result summarizes one SyncMeeting call for the fetcher's SyncResult
// aggregation.
type Result struct {
	MeetingID          string
	Skipped            bool
	SkipReason         string
	ItemCount          int
	MeetingEnqueued    bool
	MatterJobsEnqueued []string
}

// SyncMeeting upserts a meeting and its items, tracks matter appearances,
// and enqueues meeting/matter processing jobs as needed. Enqueue calls run
// after the transaction commits — a failed enqueue never rolls back
// persisted rows, since the meeting will simply be picked up by the next
// sync pass's backlog scan.
func (o *Orchestrator) SyncMeeting(ctx context.Context, banana string, draft vendoradapter.MeetingDraft) (*Result, error) {
	if o.filter.ShouldSkipMeeting(draft.Title) {
		return &Result{Skipped: true, SkipReason: "meeting title matched a skip pattern"}, nil
	}

	meetingID := idgen.MeetingID(banana, draft.VendorMeetingKey, draft.Date)
	var matterIDsSeen []string

	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpsertMeeting(ctx, models.Meeting{
			ID: meetingID, Banana: banana, VendorMeetingKey: draft.VendorMeetingKey,
			Title: draft.Title, Date: draft.Date,
			AgendaURL: nonEmptyPtr(draft.AgendaURL), PacketURL: nonEmptyPtr(draft.PacketURL),
		}); err != nil {
			return fmt.Errorf("upsert meeting: %w", err)
		}

		for _, itemDraft := range draft.Items {
			itemID := idgen.ItemID(meetingID, itemDraft.Sequence, itemDraft.VendorItemKey)

			var matterID *string
			mID, ok, err := matter.Track(ctx, tx, banana, itemDraft.MatterFile, itemDraft.MatterID, itemDraft.MatterType,
				itemDraft.Title, meetingID, itemID, itemDraft.Sequence, draft.Date)
			if err != nil {
				return fmt.Errorf("track matter for item %s: %w", itemID, err)
			}
			if ok {
				matterID = &mID
				matterIDsSeen = append(matterIDsSeen, mID)
			}

			if err := tx.UpsertAgendaItem(ctx, models.AgendaItem{
				ID: itemID, MeetingID: meetingID, Sequence: itemDraft.Sequence, VendorItemKey: itemDraft.VendorItemKey,
				Title: itemDraft.Title, Attachments: convertAttachments(itemDraft.Attachments), MatterID: matterID,
			}); err != nil {
				return fmt.Errorf("upsert item %s: %w", itemID, err)
			}

			if skip, reason := o.filter.ShouldSkipItem(itemDraft.Title); skip {
				if err := tx.UpdateItemFilterReason(ctx, itemID, reason); err != nil {
					return fmt.Errorf("set filter reason for item %s: %w", itemID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync meeting %s: %w", meetingID, err)
	}

	result := &Result{MeetingID: meetingID, ItemCount: len(draft.Items)}

	meeting, items, err := o.store.GetMeetingWithItems(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("reload meeting %s: %w", meetingID, err)
	}
	hasItems := len(items) > 0
	allItemsHandled := true
	for _, item := range items {
		if !item.HasSummary() && item.FilterReason == nil {
			allItemsHandled = false
			break
		}
	}
	if ShouldEnqueueMeeting(meeting, hasItems, allItemsHandled) {
		priority := queue.MeetingPriority(draft.Date, time.Now())
		_, enqueued, err := o.queue.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: meetingID},
			models.MeetingDedupKey(meetingID), banana, priority)
		if err != nil {
			return nil, fmt.Errorf("enqueue meeting job %s: %w", meetingID, err)
		}
		result.MeetingEnqueued = enqueued
	}

	if len(matterIDsSeen) > 0 {
		city, err := o.store.GetCity(ctx, banana)
		if err != nil {
			return nil, fmt.Errorf("load city %s for matter enqueue decision: %w", banana, err)
		}

		matters, err := o.store.ListMattersByIDs(ctx, dedupStrings(matterIDsSeen))
		if err != nil {
			return nil, fmt.Errorf("load matters for enqueue decision: %w", err)
		}
		for _, m := range matters {
			appearances, err := o.store.ListAppearancesByMatter(ctx, m.ID)
			if err != nil {
				return nil, fmt.Errorf("load appearances for matter %s: %w", m.ID, err)
			}
			if len(appearances) == 0 {
				continue
			}
			itemIDs := make([]string, len(appearances))
			for i, a := range appearances {
				itemIDs[i] = a.ItemID
			}

			items, err := o.store.ListAgendaItemsByIDs(ctx, itemIDs)
			if err != nil {
				return nil, fmt.Errorf("load items for matter %s attachment union: %w", m.ID, err)
			}
			attachments := unionAttachments(items)
			attachmentHash := o.hasher.Hash(ctx, attachments, city.Config.EnhancedHashing)

			if !ShouldEnqueueMatter(&m, o.filter.ShouldSkipMatterType(m.MatterType), len(attachments) > 0, attachmentHash) {
				continue
			}
			rep := appearances[len(appearances)-1]
			priority := queue.MatterPriority(m.LastSeen, time.Now())
			_, enqueued, err := o.queue.Enqueue(ctx, models.JobTypeMatter, models.MatterJobPayload{
				MatterID: m.ID, RepresentativeMeetingID: rep.MeetingID, ItemIDs: itemIDs,
			}, models.MatterDedupKey(m.ID), banana, priority)
			if err != nil {
				return nil, fmt.Errorf("enqueue matter job %s: %w", m.ID, err)
			}
			if enqueued {
				result.MatterJobsEnqueued = append(result.MatterJobsEnqueued, m.ID)
			}
		}
	}

	return result, nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func convertAttachments(in []vendoradapter.Attachment) []models.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Attachment, len(in))
	for i, a := range in {
		out[i] = models.Attachment{URL: a.URL, Name: a.Name, PageRange: a.PageRange}
	}
	return out
}

// unionAttachments collects the deduplicated (by URL) attachment set across
// every item, used to compute the candidate hash for the matter enqueue
// decision and later reused by the processor for the same purpose.
func unionAttachments(items []models.AgendaItem) []models.Attachment {
	seen := make(map[string]bool)
	var out []models.Attachment
	for _, item := range items {
		for _, a := range item.Attachments {
			if seen[a.URL] {
				continue
			}
			seen[a.URL] = true
			out = append(out, a)
		}
	}
	return out
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
