package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/models"
)

// UpsertCity inserts a city or updates its vendor/config/active flag,
// leaving last_synced_at untouched — that field only moves via
// UpdateLastSynced, which the fetcher calls after a sync pass completes.
func (s *Store) UpsertCity(ctx context.Context, c models.City) error {
	return upsertCity(ctx, s.db, c)
}

func (t *Tx) UpsertCity(ctx context.Context, c models.City) error {
	return upsertCity(ctx, t.tx, c)
}

func upsertCity(ctx context.Context, q queryer, c models.City) error {
	cfg, err := marshalJSON(c.Config)
	if err != nil {
		return fmt.Errorf("marshal city config: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO cities (banana, vendor, config_json, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (banana) DO UPDATE SET
			vendor = EXCLUDED.vendor,
			config_json = EXCLUDED.config_json,
			active = EXCLUDED.active,
			updated_at = now()
	`, c.Banana, c.Vendor, cfg, c.Active)
	if err != nil {
		return fmt.Errorf("upsert city %s: %w", c.Banana, err)
	}
	return nil
}

// GetCity fetches a single city by its banana slug.
func (s *Store) GetCity(ctx context.Context, banana string) (*models.City, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT banana, vendor, config_json, active, last_synced_at, created_at, updated_at
		FROM cities WHERE banana = $1
	`, banana)
	return scanCity(row)
}

func scanCity(row *sql.Row) (*models.City, error) {
	var c models.City
	var cfg []byte
	if err := row.Scan(&c.Banana, &c.Vendor, &cfg, &c.Active, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan city: %w", err)
	}
	if err := unmarshalVendorConfig(cfg, &c.Config); err != nil {
		return nil, fmt.Errorf("unmarshal city config: %w", err)
	}
	return &c, nil
}

// ListActiveCities returns every active city, used by the fetcher to build
// a sync pass's partition set.
func (s *Store) ListActiveCities(ctx context.Context) ([]models.City, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT banana, vendor, config_json, active, last_synced_at, created_at, updated_at
		FROM cities WHERE active = true
		ORDER BY banana
	`)
	if err != nil {
		return nil, fmt.Errorf("list active cities: %w", err)
	}
	defer rows.Close()

	var out []models.City
	for rows.Next() {
		var c models.City
		var cfg []byte
		if err := rows.Scan(&c.Banana, &c.Vendor, &cfg, &c.Active, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		if err := unmarshalVendorConfig(cfg, &c.Config); err != nil {
			return nil, fmt.Errorf("unmarshal city config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateLastSynced records the completion time of a city's most recent
// fetcher pass.
func (s *Store) UpdateLastSynced(ctx context.Context, banana string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cities SET last_synced_at = $2, updated_at = now() WHERE banana = $1
	`, banana, at)
	if err != nil {
		return fmt.Errorf("update last synced for %s: %w", banana, err)
	}
	return requireRowsAffected(res)
}

// CountMeetingsSince counts a city's meetings with date >= since, used by
// the fetcher's 30-day activity ranking.
func (s *Store) CountMeetingsSince(ctx context.Context, banana string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM meetings WHERE banana = $1 AND date >= $2
	`, banana, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count meetings since for %s: %w", banana, err)
	}
	return n, nil
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
