package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Location is a geographic point plus the human-readable address it stands
// for. Coordinates are [longitude, latitude], matching PostGIS argument order.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address"`
}

// Store represents a store in the directory.
type Store struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Photo       *string   `json:"photo,omitempty"`
	Location    Location  `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Joined at read time, never stored on the row.
	Reviews []Review `json:"reviews,omitempty"`
}

// TagCount is one bucket of the tag aggregation. A store carrying N tags
// contributes to N buckets.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// RatedStore is a store joined with its review aggregate.
type RatedStore struct {
	ID            int64   `json:"id"`
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	Photo         *string `json:"photo,omitempty"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// StoreSummary is the display-field projection returned by the proximity and
// text-search queries.
type StoreSummary struct {
	ID          int64    `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Photo       *string  `json:"photo,omitempty"`
	Location    Location `json:"location"`
}

type StoresStore struct {
	db *pgxpool.Pool
}

// deriveSlug turns a name into a slug that is unique among existing stores.
// It counts stores whose slug is the base or a numbered variant of it and
// suffixes accordingly. The count and the later insert are separate
// statements; the unique index on stores.slug turns a lost race into
// ErrConflict instead of a silent duplicate.
func (s *StoresStore) deriveSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", fmt.Errorf("store name %q produces an empty slug", name)
	}

	var existing int
	query := `SELECT COUNT(*) FROM stores WHERE slug ~* ('^' || $1 || '(-[0-9]*)?$')`
	if err := s.db.QueryRow(ctx, query, base).Scan(&existing); err != nil {
		return "", fmt.Errorf("count slug matches: %w", err)
	}

	return nextSlug(base, existing), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create derives the slug and inserts the store.
func (s *StoresStore) Create(ctx context.Context, store *Store) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	slug, err := s.deriveSlug(ctx, store.Name)
	if err != nil {
		return err
	}
	store.Slug = slug

	query := `
		INSERT INTO stores (author_id, name, slug, description, tags, address, location, photo)
		VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9)
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRow(
		ctx, query,
		store.AuthorID,
		store.Name,
		store.Slug,
		store.Description,
		store.Tags,
		store.Location.Address,
		store.Location.Coordinates[0],
		store.Location.Coordinates[1],
		store.Photo,
	).Scan(&store.ID, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	store.Location.Type = "Point"
	return nil
}

// Update applies a partial update. When the name changes the slug is
// re-derived before the write; identical names leave the slug untouched.
// Location updates always rebuild the full point, so a partial update can
// never leave a half-written coordinate pair behind.
func (s *StoresStore) Update(ctx context.Context, storeID int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if name, ok := updates["name"].(string); ok {
		var current string
		err := s.db.QueryRow(ctx, `SELECT name FROM stores WHERE id = $1`, storeID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if current != name {
			slug, err := s.deriveSlug(ctx, name)
			if err != nil {
				return err
			}
			updates["slug"] = slug
		}
	}

	setClauses := []string{}
	args := []interface{}{}
	argCounter := 1

	for key, value := range updates {
		switch key {
		case "name", "slug", "description", "photo":
			setClauses = append(setClauses, fmt.Sprintf("%s = $%d", key, argCounter))
			args = append(args, value)
			argCounter++
		case "tags":
			tags, ok := value.([]string)
			if !ok {
				return fmt.Errorf("invalid tags data")
			}
			setClauses = append(setClauses, fmt.Sprintf("tags = $%d", argCounter))
			args = append(args, tags)
			argCounter++
		case "address":
			setClauses = append(setClauses, fmt.Sprintf("address = $%d", argCounter))
			args = append(args, value)
			argCounter++
		case "location":
			coords, ok := value.([]float64)
			if !ok || len(coords) != 2 {
				return fmt.Errorf("invalid location data")
			}
			setClauses = append(setClauses, fmt.Sprintf(
				"location = ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography", argCounter, argCounter+1,
			))
			args = append(args, coords[0], coords[1])
			argCounter += 2
		default:
			return fmt.Errorf("unsupported field: %s", key)
		}
	}

	query := fmt.Sprintf(
		"UPDATE stores SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(setClauses, ", "), argCounter,
	)
	args = append(args, storeID)

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to update store: %w", err)
	}
	return nil
}

const storeColumns = `
	id, author_id, name, slug, description, tags, photo, address,
	ST_X(location::geometry) AS longitude,
	ST_Y(location::geometry) AS latitude,
	created_at, updated_at
`

func scanStore(row pgx.Row) (*Store, error) {
	var (
		st       Store
		lng, lat float64
	)
	err := row.Scan(
		&st.ID,
		&st.AuthorID,
		&st.Name,
		&st.Slug,
		&st.Description,
		&st.Tags,
		&st.Photo,
		&st.Location.Address,
		&lng,
		&lat,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	st.Location.Type = "Point"
	st.Location.Coordinates = []float64{lng, lat}
	return &st, nil
}

func (s *StoresStore) GetByID(ctx context.Context, storeID int64) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	return scanStore(s.db.QueryRow(ctx, query, storeID))
}

func (s *StoresStore) GetBySlug(ctx context.Context, slug string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + storeColumns + ` FROM stores WHERE slug = $1`
	return scanStore(s.db.QueryRow(ctx, query, slug))
}

// List returns one page of stores, newest first, together with the total
// store count so the caller can compute the page count.
func (s *StoresStore) List(ctx context.Context, page, pageSize int) ([]Store, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM stores`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + storeColumns + `
		FROM stores
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	stores, err := collectStores(rows)
	if err != nil {
		return nil, 0, err
	}
	return stores, total, nil
}

// ByTag returns stores carrying the given tag. An empty tag means "any store
// with at least one tag".
func (s *StoresStore) ByTag(ctx context.Context, tag string) ([]Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + storeColumns + ` FROM stores WHERE $1 = ANY(tags) ORDER BY created_at DESC`
	if tag == "" {
		query = `SELECT ` + storeColumns + ` FROM stores WHERE cardinality(tags) > 0 ORDER BY created_at DESC`
	}

	var (
		rows pgx.Rows
		err  error
	)
	if tag == "" {
		rows, err = s.db.Query(ctx, query)
	} else {
		rows, err = s.db.Query(ctx, query, tag)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStores(rows)
}

// TagCounts unwinds every tag occurrence, counts per tag and sorts by count
// descending.
func (s *StoresStore) TagCounts(ctx context.Context) ([]TagCount, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT tag, COUNT(*) AS count
		FROM stores, unnest(tags) AS tag
		GROUP BY tag
		ORDER BY count DESC, tag ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// TopRated joins stores with their reviews, keeps those with at least
// minReviews, and orders by mean rating descending.
func (s *StoresStore) TopRated(ctx context.Context, minReviews, limit int) ([]RatedStore, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT s.id, s.slug, s.name, s.photo,
		       COUNT(r.id) AS review_count,
		       AVG(r.rating) AS average_rating
		FROM stores s
		JOIN reviews r ON r.store_id = s.id
		GROUP BY s.id
		HAVING COUNT(r.id) >= $1
		ORDER BY average_rating DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, minReviews, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []RatedStore
	for rows.Next() {
		var rs RatedStore
		if err := rows.Scan(&rs.ID, &rs.Slug, &rs.Name, &rs.Photo, &rs.ReviewCount, &rs.AverageRating); err != nil {
			return nil, err
		}
		top = append(top, rs)
	}
	return top, rows.Err()
}

// FindNear returns stores within maxMeters of the given point, nearest first.
func (s *StoresStore) FindNear(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]StoreSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT id, slug, name, description, photo, address,
		       ST_X(location::geometry) AS longitude,
		       ST_Y(location::geometry) AS latitude
		FROM stores
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) ASC
		LIMIT $4
	`

	rows, err := s.db.Query(ctx, query, lng, lat, maxMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSummaries(rows)
}

// SearchText runs a full-text relevance search over name and description.
func (s *StoresStore) SearchText(ctx context.Context, q string, limit int) ([]StoreSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		SELECT id, slug, name, description, photo, address,
		       ST_X(location::geometry) AS longitude,
		       ST_Y(location::geometry) AS latitude
		FROM stores
		WHERE fts @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank_cd(fts, plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search stores: %w", err)
	}
	defer rows.Close()

	return collectSummaries(rows)
}

// SetPhoto records the uploaded photo filename on the store.
func (s *StoresStore) SetPhoto(ctx context.Context, storeID int64, filename string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE stores SET photo = $1, updated_at = NOW() WHERE id = $2`
	tag, err := s.db.Exec(ctx, query, filename, storeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectStores(rows pgx.Rows) ([]Store, error) {
	var stores []Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *st)
	}
	return stores, rows.Err()
}

func collectSummaries(rows pgx.Rows) ([]StoreSummary, error) {
	var summaries []StoreSummary
	for rows.Next() {
		var (
			sm       StoreSummary
			lng, lat float64
		)
		if err := rows.Scan(&sm.ID, &sm.Slug, &sm.Name, &sm.Description, &sm.Photo, &sm.Location.Address, &lng, &lat); err != nil {
			return nil, err
		}
		sm.Location.Type = "Point"
		sm.Location.Coordinates = []float64{lng, lat}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}
