package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Stores interface {
		Create(context.Context, *Store) error
		Update(context.Context, int64, map[string]interface{}) error
		GetByID(context.Context, int64) (*Store, error)
		GetBySlug(context.Context, string) (*Store, error)
		List(context.Context, int, int) ([]Store, int, error)
		ByTag(context.Context, string) ([]Store, error)
		TagCounts(context.Context) ([]TagCount, error)
		TopRated(context.Context, int, int) ([]RatedStore, error)
		FindNear(context.Context, float64, float64, float64, int) ([]StoreSummary, error)
		SearchText(context.Context, string, int) ([]StoreSummary, error)
		SetPhoto(context.Context, int64, string) error
	}
	Reviews interface {
		Create(context.Context, *Review) error
		GetByStore(context.Context, int64) ([]Review, error)
	}
	Users interface {
		Create(context.Context, *User) error
		GetByID(context.Context, int64) (*User, error)
		GetByEmail(context.Context, string) (*User, error)
		UpdateAccount(context.Context, int64, string, string) error
		SetResetToken(context.Context, string, string, time.Time) error
		GetByResetToken(context.Context, string) (*User, error)
		ResetCredential(context.Context, *User) error
		SaveRefreshToken(context.Context, int64, string) error
		GetRefreshToken(context.Context, int64) (string, error)
		DeleteRefreshToken(context.Context, int64) error
	}
	Hearts interface {
		Toggle(context.Context, int64, int64) (bool, error)
		ListStores(context.Context, int64) ([]Store, error)
	}
}

func NewStorage(db *pgxpool.Pool) Storage {
	return Storage{
		Stores:  &StoresStore{db},
		Reviews: &ReviewsStore{db},
		Users:   &UsersStore{db},
		Hearts:  &HeartsStore{db},
	}
}

// PageCount reports how many pages a listing of total items spans at the
// given page size.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
