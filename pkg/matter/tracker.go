// Package matter tracks legislative matters across repeated meeting
// appearances: the same zoning ordinance or resolution shows up on
// multiple agendas under a stable vendor file number, and this package is
// what recognizes that and keeps one canonical row per matter instead of
// one per appearance. Follows a create-or-update pattern against the
// raw store.Tx this module uses.
package matter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/idgen"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/store"
)

// Tx is the subset of *store.Tx the tracker needs — small enough to keep
// tests focused on matter-tracking logic without a full store.Tx mock.
type Tx interface {
	GetMatter(ctx context.Context, id string) (*models.Matter, error)
	InsertMatter(ctx context.Context, m models.Matter) error
	TouchMatterAppearance(ctx context.Context, id string, seenAt time.Time) error
	CreateMatterAppearance(ctx context.Context, a models.MatterAppearance) (bool, error)
}

var _ Tx = (*store.Tx)(nil)

// Track resolves (matterFile, matterVendorID) to a stable matter ID,
// creating the matter row the first time it's seen and bumping its
// appearance bookkeeping on every later sighting, then links it to the
// given (meeting, item) slot. ok is false when neither matterFile nor
// matterVendorID was supplied — such items have nothing to dedup against
// and are left matter-less.
func Track(ctx context.Context, tx Tx, banana, matterFile, matterVendorID, matterType, title string, meetingID, itemID string, sequence int, seenAt time.Time) (matterID string, ok bool, err error) {
	id, ok := idgen.MatterID(banana, matterFile, matterVendorID)
	if !ok {
		return "", false, nil
	}

	existing, err := tx.GetMatter(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertMatter(ctx, models.Matter{
			ID: id, Banana: banana, MatterFile: matterFile, MatterVendorID: matterVendorID,
			MatterType: matterType, Title: title, FirstSeen: seenAt, LastSeen: seenAt,
		}); err != nil {
			return "", false, fmt.Errorf("insert matter %s: %w", id, err)
		}
	case err != nil:
		return "", false, fmt.Errorf("look up matter %s: %w", id, err)
	default:
		_ = existing // existing row kept as-is; only appearance bookkeeping changes below
	}

	created, err := tx.CreateMatterAppearance(ctx, models.MatterAppearance{
		MatterID: id, MeetingID: meetingID, ItemID: itemID, Sequence: sequence,
	})
	if err != nil {
		return "", false, fmt.Errorf("record appearance for matter %s: %w", id, err)
	}

	// Only a genuinely new appearance (not a re-sync of an already-recorded
	// meeting) advances appearance_count / first_seen / last_seen — and
	// only for matters that weren't just created, which already start at
	// appearance_count 1 with first_seen = last_seen = seenAt.
	if created && existing != nil {
		if err := tx.TouchMatterAppearance(ctx, id, seenAt); err != nil {
			return "", false, fmt.Errorf("touch matter appearance %s: %w", id, err)
		}
	}

	return id, true, nil
}
