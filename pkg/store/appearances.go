package store

import (
	"context"
	"fmt"

	"github.com/civicsync/civicsync/pkg/models"
)

// CreateMatterAppearance links a matter to the (meeting, item) slot it was
// found on. Idempotent: re-syncing the same meeting re-inserts the same
// composite key harmlessly. Reports whether the row was newly created, so
// callers can tell a genuinely new appearance from a re-sync no-op.
func (t *Tx) CreateMatterAppearance(ctx context.Context, a models.MatterAppearance) (bool, error) {
	return createMatterAppearance(ctx, t.tx, a)
}

func (s *Store) CreateMatterAppearance(ctx context.Context, a models.MatterAppearance) (bool, error) {
	return createMatterAppearance(ctx, s.db, a)
}

func createMatterAppearance(ctx context.Context, q queryer, a models.MatterAppearance) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO matter_appearances (matter_id, meeting_id, item_id, sequence, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (matter_id, meeting_id, item_id) DO NOTHING
	`, a.MatterID, a.MeetingID, a.ItemID, a.Sequence)
	if err != nil {
		return false, fmt.Errorf("create matter appearance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create matter appearance: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAppearancesByMatter returns every (meeting, item) slot a matter has
// appeared on, used to find the representative item and sibling item set
// when building a matter job payload.
func (s *Store) ListAppearancesByMatter(ctx context.Context, matterID string) ([]models.MatterAppearance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT matter_id, meeting_id, item_id, sequence, created_at
		FROM matter_appearances WHERE matter_id = $1
		ORDER BY created_at ASC
	`, matterID)
	if err != nil {
		return nil, fmt.Errorf("list appearances for matter %s: %w", matterID, err)
	}
	defer rows.Close()

	var out []models.MatterAppearance
	for rows.Next() {
		var a models.MatterAppearance
		if err := rows.Scan(&a.MatterID, &a.MeetingID, &a.ItemID, &a.Sequence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan matter appearance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
