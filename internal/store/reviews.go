package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Review is immutable once written: there is no update or delete path.
type Review struct {
	ID        int64     `json:"id"`
	StoreID   int64     `json:"store"`
	AuthorID  int64     `json:"author"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"` // 1-5, enforced by a check constraint
	CreatedAt time.Time `json:"created_at"`

	// Joined field
	AuthorName string `json:"author_name,omitempty"`
}

type ReviewsStore struct {
	db *pgxpool.Pool
}

func (s *ReviewsStore) Create(ctx context.Context, review *Review) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		INSERT INTO reviews (store_id, author_id, text, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return s.db.QueryRow(ctx, query,
		review.StoreID,
		review.AuthorID,
		review.Text,
		review.Rating,
	).Scan(&review.ID, &review.CreatedAt)
}

// GetByStore returns a store's reviews, newest first, each joined with its
// author's display name.
func (s *ReviewsStore) GetByStore(ctx context.Context, storeID int64) ([]Review, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT r.id, r.store_id, r.author_id, r.text, r.rating, r.created_at, u.name
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.store_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := s.db.Query(ctx, query, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var review Review
		err := rows.Scan(
			&review.ID,
			&review.StoreID,
			&review.AuthorID,
			&review.Text,
			&review.Rating,
			&review.CreatedAt,
			&review.AuthorName,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}
