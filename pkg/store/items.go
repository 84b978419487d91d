package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicsync/civicsync/pkg/models"
)

// UpsertAgendaItem inserts an item or refreshes its vendor-sourced fields
// (title, attachments, matter linkage). Processor-owned fields — summary,
// topics, filter_reason — are preserved across re-fetches.
func (t *Tx) UpsertAgendaItem(ctx context.Context, item models.AgendaItem) error {
	return upsertAgendaItem(ctx, t.tx, item)
}

func (s *Store) UpsertAgendaItem(ctx context.Context, item models.AgendaItem) error {
	return upsertAgendaItem(ctx, s.db, item)
}

func upsertAgendaItem(ctx context.Context, q queryer, item models.AgendaItem) error {
	attachments, err := marshalJSON(item.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO agenda_items (id, meeting_id, sequence, vendor_item_key, title, attachments, matter_id, topics, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '[]', now(), now())
		ON CONFLICT (id) DO UPDATE SET
			sequence = EXCLUDED.sequence,
			title = EXCLUDED.title,
			attachments = EXCLUDED.attachments,
			matter_id = EXCLUDED.matter_id,
			updated_at = now()
	`, item.ID, item.MeetingID, item.Sequence, item.VendorItemKey, item.Title, attachments, item.MatterID)
	if err != nil {
		return fmt.Errorf("upsert agenda item %s: %w", item.ID, err)
	}
	return nil
}

// GetAgendaItem fetches a single item by ID.
func (s *Store) GetAgendaItem(ctx context.Context, id string) (*models.AgendaItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, meeting_id, sequence, vendor_item_key, title, attachments, matter_id, summary, topics, filter_reason, created_at, updated_at
		FROM agenda_items WHERE id = $1
	`, id)
	return scanAgendaItem(row)
}

func scanAgendaItem(row *sql.Row) (*models.AgendaItem, error) {
	var a models.AgendaItem
	var attachments, topics []byte
	if err := row.Scan(&a.ID, &a.MeetingID, &a.Sequence, &a.VendorItemKey, &a.Title, &attachments, &a.MatterID,
		&a.Summary, &topics, &a.FilterReason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan agenda item: %w", err)
	}
	if err := unmarshalAttachments(attachments, &a.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if err := unmarshalStrings(topics, &a.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal item topics: %w", err)
	}
	return &a, nil
}

// ListAgendaItemsByMeeting returns a meeting's items in agenda order.
func (s *Store) ListAgendaItemsByMeeting(ctx context.Context, meetingID string) ([]models.AgendaItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, sequence, vendor_item_key, title, attachments, matter_id, summary, topics, filter_reason, created_at, updated_at
		FROM agenda_items WHERE meeting_id = $1 ORDER BY sequence ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list agenda items for meeting %s: %w", meetingID, err)
	}
	defer rows.Close()

	var out []models.AgendaItem
	for rows.Next() {
		var a models.AgendaItem
		var attachments, topics []byte
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.Sequence, &a.VendorItemKey, &a.Title, &attachments, &a.MatterID,
			&a.Summary, &topics, &a.FilterReason, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agenda item: %w", err)
		}
		if err := unmarshalAttachments(attachments, &a.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
		if err := unmarshalStrings(topics, &a.Topics); err != nil {
			return nil, fmt.Errorf("unmarshal item topics: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAgendaItemsByIDs batch-fetches items by ID, used when gathering the
// sibling item set for a MatterJob (representative selection, backfill).
func (s *Store) ListAgendaItemsByIDs(ctx context.Context, ids []string) ([]models.AgendaItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, sequence, vendor_item_key, title, attachments, matter_id, summary, topics, filter_reason, created_at, updated_at
		FROM agenda_items WHERE id = ANY($1)
	`, idArray(ids))
	if err != nil {
		return nil, fmt.Errorf("list agenda items by ids: %w", err)
	}
	defer rows.Close()

	var out []models.AgendaItem
	for rows.Next() {
		var a models.AgendaItem
		var attachments, topics []byte
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.Sequence, &a.VendorItemKey, &a.Title, &attachments, &a.MatterID,
			&a.Summary, &topics, &a.FilterReason, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agenda item: %w", err)
		}
		if err := unmarshalAttachments(attachments, &a.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
		if err := unmarshalStrings(topics, &a.Topics); err != nil {
			return nil, fmt.Errorf("unmarshal item topics: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateItemFilterReason records why an item was skipped during
// processing without marking it summarized.
func (s *Store) UpdateItemFilterReason(ctx context.Context, id, reason string) error {
	return updateItemFilterReason(ctx, s.db, id, reason)
}

func (t *Tx) UpdateItemFilterReason(ctx context.Context, id, reason string) error {
	return updateItemFilterReason(ctx, t.tx, id, reason)
}

func updateItemFilterReason(ctx context.Context, q queryer, id, reason string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE agenda_items SET filter_reason = $2, updated_at = now() WHERE id = $1
	`, id, reason)
	if err != nil {
		return fmt.Errorf("update item filter reason %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// UpdateItemSummary writes a per-item summary and topic set — the
// per-item processing path's terminal write.
func (s *Store) UpdateItemSummary(ctx context.Context, id, summary string, topics []string) error {
	topicsJSON, err := marshalJSON(topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agenda_items SET summary = $2, topics = $3, updated_at = now() WHERE id = $1
	`, id, summary, topicsJSON)
	if err != nil {
		return fmt.Errorf("update item summary %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// BackfillItemSummaries copies a matter's canonical summary/topics onto
// every sibling item that shares it, once the matter job completes.
func (s *Store) BackfillItemSummaries(ctx context.Context, itemIDs []string, summary string, topics []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	topicsJSON, err := marshalJSON(topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE agenda_items SET summary = $2, topics = $3, updated_at = now()
		WHERE id = ANY($1)
	`, idArray(itemIDs), summary, topicsJSON)
	if err != nil {
		return fmt.Errorf("backfill item summaries: %w", err)
	}
	return nil
}

func idArray(ids []string) []string {
	// pgx's stdlib driver encodes a []string as a Postgres text[] for
	// ANY($1); copy defensively so callers can't mutate it mid-flight.
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
