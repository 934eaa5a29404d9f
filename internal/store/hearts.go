package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HeartsStore manages the user -> store favorite set.
type HeartsStore struct {
	db *pgxpool.Pool
}

// Toggle flips the heart for (userID, storeID) in a single statement: the
// delete and the conditional insert run atomically, so concurrent toggles
// from the same user cannot lose updates. It reports whether the store is
// hearted after the call.
func (s *HeartsStore) Toggle(ctx context.Context, userID, storeID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		WITH removed AS (
			DELETE FROM hearts
			WHERE user_id = $1 AND store_id = $2
			RETURNING store_id
		), added AS (
			INSERT INTO hearts (user_id, store_id)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT DO NOTHING
			RETURNING store_id
		)
		SELECT EXISTS (SELECT 1 FROM added)
	`

	var hearted bool
	if err := s.db.QueryRow(ctx, query, userID, storeID).Scan(&hearted); err != nil {
		return false, fmt.Errorf("toggle heart: %w", err)
	}
	return hearted, nil
}

// ListStores returns the stores a user has hearted, most recently hearted
// first.
func (s *HeartsStore) ListStores(ctx context.Context, userID int64) ([]Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT s.id, s.author_id, s.name, s.slug, s.description, s.tags, s.photo, s.address,
		       ST_X(s.location::geometry) AS longitude,
		       ST_Y(s.location::geometry) AS latitude,
		       s.created_at, s.updated_at
		FROM stores s
		JOIN hearts h ON h.store_id = s.id
		WHERE h.user_id = $1
		ORDER BY h.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list hearted stores: %w", err)
	}
	defer rows.Close()

	return collectStores(rows)
}
