package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/models"
)

// InsertMatter creates a new matter row the first time a vendor matter
// file/ID is seen for a city.
func (t *Tx) InsertMatter(ctx context.Context, m models.Matter) error {
	return insertMatter(ctx, t.tx, m)
}

func (s *Store) InsertMatter(ctx context.Context, m models.Matter) error {
	return insertMatter(ctx, s.db, m)
}

func insertMatter(ctx context.Context, q queryer, m models.Matter) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO matters (id, banana, matter_file, matter_id, matter_type, title, sponsors, canonical_topics, first_seen, last_seen, appearance_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '[]', '[]', $7, $7, 1, now(), now())
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.Banana, nullIfEmpty(m.MatterFile), nullIfEmpty(m.MatterVendorID), nullIfEmpty(m.MatterType), m.Title, m.FirstSeen)
	if err != nil {
		return fmt.Errorf("insert matter %s: %w", m.ID, err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetMatter fetches a matter by its content-addressed ID.
func (t *Tx) GetMatter(ctx context.Context, id string) (*models.Matter, error) {
	return getMatter(ctx, t.tx, id)
}

func (s *Store) GetMatter(ctx context.Context, id string) (*models.Matter, error) {
	return getMatter(ctx, s.db, id)
}

func getMatter(ctx context.Context, q queryer, id string) (*models.Matter, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, banana, coalesce(matter_file, ''), coalesce(matter_id, ''), coalesce(matter_type, ''), title,
		       canonical_summary, canonical_topics, attachment_hash, sponsors, first_seen, last_seen, appearance_count, created_at, updated_at
		FROM matters WHERE id = $1
	`, id)
	return scanMatter(row)
}

func scanMatter(row *sql.Row) (*models.Matter, error) {
	var m models.Matter
	var topics, sponsors []byte
	if err := row.Scan(&m.ID, &m.Banana, &m.MatterFile, &m.MatterVendorID, &m.MatterType, &m.Title,
		&m.CanonicalSummary, &topics, &m.AttachmentHash, &sponsors, &m.FirstSeen, &m.LastSeen, &m.AppearanceCount,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan matter: %w", err)
	}
	if err := unmarshalStrings(topics, &m.CanonicalTopics); err != nil {
		return nil, fmt.Errorf("unmarshal canonical topics: %w", err)
	}
	if err := unmarshalStrings(sponsors, &m.Sponsors); err != nil {
		return nil, fmt.Errorf("unmarshal sponsors: %w", err)
	}
	return &m, nil
}

// TouchMatterAppearance bumps a matter's appearance bookkeeping — called
// once per newly recorded appearance row, so a matter that appears on
// several items within the same meeting is counted once per item.
func (t *Tx) TouchMatterAppearance(ctx context.Context, id string, seenAt time.Time) error {
	return touchMatterAppearance(ctx, t.tx, id, seenAt)
}

func (s *Store) TouchMatterAppearance(ctx context.Context, id string, seenAt time.Time) error {
	return touchMatterAppearance(ctx, s.db, id, seenAt)
}

func touchMatterAppearance(ctx context.Context, q queryer, id string, seenAt time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE matters SET
			appearance_count = appearance_count + 1,
			first_seen = LEAST(first_seen, $2),
			last_seen = GREATEST(last_seen, $2),
			updated_at = now()
		WHERE id = $1
	`, id, seenAt)
	if err != nil {
		return fmt.Errorf("touch matter appearance %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// UpdateMatterCanonical writes the matter-level LLM output and the
// attachment-set hash it was computed against.
func (s *Store) UpdateMatterCanonical(ctx context.Context, id, summary string, topics []string, attachmentHash string) error {
	topicsJSON, err := marshalJSON(topics)
	if err != nil {
		return fmt.Errorf("marshal canonical topics: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE matters SET canonical_summary = $2, canonical_topics = $3, attachment_hash = $4, updated_at = now()
		WHERE id = $1
	`, id, summary, topicsJSON, attachmentHash)
	if err != nil {
		return fmt.Errorf("update matter canonical %s: %w", id, err)
	}
	return requireRowsAffected(res)
}

// ListMattersByIDs batch-fetches matters, used when aggregating a
// meeting's referenced matters for the enqueue decision.
func (s *Store) ListMattersByIDs(ctx context.Context, ids []string) ([]models.Matter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, banana, coalesce(matter_file, ''), coalesce(matter_id, ''), coalesce(matter_type, ''), title,
		       canonical_summary, canonical_topics, attachment_hash, sponsors, first_seen, last_seen, appearance_count, created_at, updated_at
		FROM matters WHERE id = ANY($1)
	`, idArray(ids))
	if err != nil {
		return nil, fmt.Errorf("list matters by ids: %w", err)
	}
	defer rows.Close()

	var out []models.Matter
	for rows.Next() {
		var m models.Matter
		var topics, sponsors []byte
		if err := rows.Scan(&m.ID, &m.Banana, &m.MatterFile, &m.MatterVendorID, &m.MatterType, &m.Title,
			&m.CanonicalSummary, &topics, &m.AttachmentHash, &sponsors, &m.FirstSeen, &m.LastSeen, &m.AppearanceCount,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan matter: %w", err)
		}
		if err := unmarshalStrings(topics, &m.CanonicalTopics); err != nil {
			return nil, fmt.Errorf("unmarshal canonical topics: %w", err)
		}
		if err := unmarshalStrings(sponsors, &m.Sponsors); err != nil {
			return nil, fmt.Errorf("unmarshal sponsors: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
