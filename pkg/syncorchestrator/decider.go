package syncorchestrator

import "github.com/civicsync/civicsync/pkg/models"

// ShouldEnqueueMeeting reports whether a meeting needs a MeetingJob,
// following the item-level-takes-precedence rule: a meeting with items is
// judged solely on whether every item is already handled (summarized or
// filtered out), regardless of items vs. monolithic status; a meeting with
// no items at all falls back to its own monolithic summary field.
// allItemsHandled must be true only when no item remains that still needs
// an LLM pass (i.e. every item either has a summary or a filter_reason).
func ShouldEnqueueMeeting(m *models.Meeting, hasItems, allItemsHandled bool) bool {
	if hasItems {
		return !allItemsHandled
	}
	return !m.HasSummary()
}

// ShouldEnqueueMatter reports whether a matter needs a MatterJob.
// skippedType short-circuits to false regardless of attachments. A matter
// with no attachments at all has nothing to summarize. A matter never
// summarized is always enqueued; one already carrying a canonical summary
// is re-enqueued only when its attachment set has changed since that
// summary was computed.
func ShouldEnqueueMatter(m *models.Matter, skippedType, hasAttachments bool, newAttachmentHash string) bool {
	if skippedType {
		return false
	}
	if !hasAttachments {
		return false
	}
	if m.CanonicalSummary == nil {
		return true
	}
	return m.AttachmentHash == nil || *m.AttachmentHash != newAttachmentHash
}
