package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicsync/civicsync/pkg/models"
)

// UpsertMeeting inserts a meeting or refreshes its vendor-sourced fields
// (title, date, agenda/packet URLs, participation). Processor-owned fields
// — summary, topics, processing_status — are never touched here; a
// re-fetch of an already-processed meeting must not erase its summary.
func (s *Store) UpsertMeeting(ctx context.Context, m models.Meeting) error {
	return upsertMeeting(ctx, s.db, m)
}

func (t *Tx) UpsertMeeting(ctx context.Context, m models.Meeting) error {
	return upsertMeeting(ctx, t.tx, m)
}

func upsertMeeting(ctx context.Context, q queryer, m models.Meeting) error {
	participation, err := marshalJSON(m.Participation)
	if err != nil {
		return fmt.Errorf("marshal participation: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO meetings (id, banana, vendor_meeting_key, title, date, agenda_url, packet_url, participation, topics, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]', now(), now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			date = EXCLUDED.date,
			agenda_url = EXCLUDED.agenda_url,
			packet_url = EXCLUDED.packet_url,
			participation = EXCLUDED.participation,
			updated_at = now()
	`, m.ID, m.Banana, m.VendorMeetingKey, m.Title, m.Date, m.AgendaURL, m.PacketURL, participation)
	if err != nil {
		return fmt.Errorf("upsert meeting %s: %w", m.ID, err)
	}
	return nil
}

// GetMeeting fetches a meeting by its content-addressed ID.
func (s *Store) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return getMeeting(ctx, s.db, id)
}

func (t *Tx) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return getMeeting(ctx, t.tx, id)
}

func getMeeting(ctx context.Context, q queryer, id string) (*models.Meeting, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, banana, vendor_meeting_key, title, date, agenda_url, packet_url, summary, topics, participation, processing_status, created_at, updated_at
		FROM meetings WHERE id = $1
	`, id)
	return scanMeeting(row)
}

func scanMeeting(row *sql.Row) (*models.Meeting, error) {
	var m models.Meeting
	var topics, participation []byte
	if err := row.Scan(&m.ID, &m.Banana, &m.VendorMeetingKey, &m.Title, &m.Date, &m.AgendaURL, &m.PacketURL,
		&m.Summary, &topics, &participation, &m.ProcessingStatus, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	if err := unmarshalStrings(topics, &m.Topics); err != nil {
		return nil, fmt.Errorf("unmarshal meeting topics: %w", err)
	}
	if err := unmarshalParticipation(participation, &m.Participation); err != nil {
		return nil, fmt.Errorf("unmarshal meeting participation: %w", err)
	}
	return &m, nil
}

// GetMeetingWithItems loads a meeting together with its agenda items
// (via ListAgendaItemsByMeeting), so callers get both in one call.
func (s *Store) GetMeetingWithItems(ctx context.Context, id string) (*models.Meeting, []models.AgendaItem, error) {
	m, err := s.GetMeeting(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.ListAgendaItemsByMeeting(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return m, items, nil
}

// UpdateMeetingMonolithicSummary writes a single summary/topic set across
// the whole meeting and marks it completed — the §4.7.2 fallback path for
// meetings too small to split per item.
func (s *Store) UpdateMeetingMonolithicSummary(ctx context.Context, id, summary string, topics []string) error {
	return updateMeetingSummary(ctx, s.db, id, summary, topics)
}

func (t *Tx) UpdateMeetingMonolithicSummary(ctx context.Context, id, summary string, topics []string) error {
	return updateMeetingSummary(ctx, t.tx, id, summary, topics)
}

func updateMeetingSummary(ctx context.Context, q queryer, id, summary string, topics []string) error {
	topicsJSON, err := marshalJSON(topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	res, err := q.ExecContext(ctx, `
		UPDATE meetings SET summary = $2, topics = $3, processing_status = 'completed', updated_at = now()
		WHERE id = $1
	`, id, summary, topicsJSON)
	if err != nil {
		return fmt.Errorf("update meeting summary %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// UpdateMeetingTopicsAndParticipation writes the meeting-level aggregated
// topic set produced by the item-level processing path together with the
// given participation info, without touching per-item data.
func (s *Store) UpdateMeetingTopicsAndParticipation(ctx context.Context, id string, topics []string, participation models.Participation) error {
	topicsJSON, err := marshalJSON(topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	participationJSON, err := marshalJSON(participation)
	if err != nil {
		return fmt.Errorf("marshal participation: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET topics = $2, participation = $3, updated_at = now() WHERE id = $1
	`, id, topicsJSON, participationJSON)
	if err != nil {
		return fmt.Errorf("update meeting topics/participation %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// UpdateMeetingProcessingStatus transitions a meeting's lifecycle state
// without touching its content.
func (s *Store) UpdateMeetingProcessingStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	return updateMeetingStatus(ctx, s.db, id, status)
}

func (t *Tx) UpdateMeetingProcessingStatus(ctx context.Context, id string, status models.ProcessingStatus) error {
	return updateMeetingStatus(ctx, t.tx, id, status)
}

func updateMeetingStatus(ctx context.Context, q queryer, id string, status models.ProcessingStatus) error {
	res, err := q.ExecContext(ctx, `
		UPDATE meetings SET processing_status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update meeting status %s: %w", id, err)
	}
	return requireRowsAffected(res)
}
