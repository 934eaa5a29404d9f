package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"savory/internal/auth"
	"savory/internal/mailer"
	"savory/internal/ratelimiter"
	"savory/internal/security"
	"savory/internal/store"

	"go.uber.org/zap"
)

type mockStoresStore struct {
	createFn     func(ctx context.Context, st *store.Store) error
	updateFn     func(ctx context.Context, id int64, updates map[string]interface{}) error
	getByIDFn    func(ctx context.Context, id int64) (*store.Store, error)
	getBySlugFn  func(ctx context.Context, slug string) (*store.Store, error)
	listFn       func(ctx context.Context, page, pageSize int) ([]store.Store, int, error)
	byTagFn      func(ctx context.Context, tag string) ([]store.Store, error)
	tagCountsFn  func(ctx context.Context) ([]store.TagCount, error)
	topRatedFn   func(ctx context.Context, minReviews, limit int) ([]store.RatedStore, error)
	findNearFn   func(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]store.StoreSummary, error)
	searchTextFn func(ctx context.Context, q string, limit int) ([]store.StoreSummary, error)
	setPhotoFn   func(ctx context.Context, id int64, filename string) error
}

func (m *mockStoresStore) Create(ctx context.Context, st *store.Store) error {
	if m.createFn != nil {
		return m.createFn(ctx, st)
	}
	return nil
}
func (m *mockStoresStore) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, updates)
	}
	return nil
}
func (m *mockStoresStore) GetByID(ctx context.Context, id int64) (*store.Store, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &store.Store{ID: id}, nil
}
func (m *mockStoresStore) GetBySlug(ctx context.Context, slug string) (*store.Store, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, store.ErrNotFound
}
func (m *mockStoresStore) List(ctx context.Context, page, pageSize int) ([]store.Store, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, pageSize)
	}
	return nil, 0, nil
}
func (m *mockStoresStore) ByTag(ctx context.Context, tag string) ([]store.Store, error) {
	if m.byTagFn != nil {
		return m.byTagFn(ctx, tag)
	}
	return nil, nil
}
func (m *mockStoresStore) TagCounts(ctx context.Context) ([]store.TagCount, error) {
	if m.tagCountsFn != nil {
		return m.tagCountsFn(ctx)
	}
	return nil, nil
}
func (m *mockStoresStore) TopRated(ctx context.Context, minReviews, limit int) ([]store.RatedStore, error) {
	if m.topRatedFn != nil {
		return m.topRatedFn(ctx, minReviews, limit)
	}
	return nil, nil
}
func (m *mockStoresStore) FindNear(ctx context.Context, lng, lat, maxMeters float64, limit int) ([]store.StoreSummary, error) {
	if m.findNearFn != nil {
		return m.findNearFn(ctx, lng, lat, maxMeters, limit)
	}
	return nil, nil
}
func (m *mockStoresStore) SearchText(ctx context.Context, q string, limit int) ([]store.StoreSummary, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q, limit)
	}
	return nil, nil
}
func (m *mockStoresStore) SetPhoto(ctx context.Context, id int64, filename string) error {
	if m.setPhotoFn != nil {
		return m.setPhotoFn(ctx, id, filename)
	}
	return nil
}

type mockReviewsStore struct {
	createFn     func(ctx context.Context, review *store.Review) error
	getByStoreFn func(ctx context.Context, storeID int64) ([]store.Review, error)
}

func (m *mockReviewsStore) Create(ctx context.Context, review *store.Review) error {
	if m.createFn != nil {
		return m.createFn(ctx, review)
	}
	return nil
}
func (m *mockReviewsStore) GetByStore(ctx context.Context, storeID int64) ([]store.Review, error) {
	if m.getByStoreFn != nil {
		return m.getByStoreFn(ctx, storeID)
	}
	return nil, nil
}

type mockUsersStore struct {
	createFn             func(ctx context.Context, user *store.User) error
	getByIDFn            func(ctx context.Context, id int64) (*store.User, error)
	getByEmailFn         func(ctx context.Context, email string) (*store.User, error)
	updateAccountFn      func(ctx context.Context, id int64, name, email string) error
	setResetTokenFn      func(ctx context.Context, email, tokenHash string, expires time.Time) error
	getByResetTokenFn    func(ctx context.Context, tokenHash string) (*store.User, error)
	resetCredentialFn    func(ctx context.Context, user *store.User) error
	saveRefreshTokenFn   func(ctx context.Context, id int64, token string) error
	getRefreshTokenFn    func(ctx context.Context, id int64) (string, error)
	deleteRefreshTokenFn func(ctx context.Context, id int64) error
}

func (m *mockUsersStore) Create(ctx context.Context, user *store.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}
func (m *mockUsersStore) GetByID(ctx context.Context, id int64) (*store.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &store.User{ID: id, Name: "Test User", Email: "test@example.com"}, nil
}
func (m *mockUsersStore) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrNotFound
}
func (m *mockUsersStore) UpdateAccount(ctx context.Context, id int64, name, email string) error {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(ctx, id, name, email)
	}
	return nil
}
func (m *mockUsersStore) SetResetToken(ctx context.Context, email, tokenHash string, expires time.Time) error {
	if m.setResetTokenFn != nil {
		return m.setResetTokenFn(ctx, email, tokenHash, expires)
	}
	return nil
}
func (m *mockUsersStore) GetByResetToken(ctx context.Context, tokenHash string) (*store.User, error) {
	if m.getByResetTokenFn != nil {
		return m.getByResetTokenFn(ctx, tokenHash)
	}
	return nil, store.ErrNotFound
}
func (m *mockUsersStore) ResetCredential(ctx context.Context, user *store.User) error {
	if m.resetCredentialFn != nil {
		return m.resetCredentialFn(ctx, user)
	}
	return nil
}
func (m *mockUsersStore) SaveRefreshToken(ctx context.Context, id int64, token string) error {
	if m.saveRefreshTokenFn != nil {
		return m.saveRefreshTokenFn(ctx, id, token)
	}
	return nil
}
func (m *mockUsersStore) GetRefreshToken(ctx context.Context, id int64) (string, error) {
	if m.getRefreshTokenFn != nil {
		return m.getRefreshTokenFn(ctx, id)
	}
	return "", nil
}
func (m *mockUsersStore) DeleteRefreshToken(ctx context.Context, id int64) error {
	if m.deleteRefreshTokenFn != nil {
		return m.deleteRefreshTokenFn(ctx, id)
	}
	return nil
}

type mockHeartsStore struct {
	toggleFn     func(ctx context.Context, userID, storeID int64) (bool, error)
	listStoresFn func(ctx context.Context, userID int64) ([]store.Store, error)
}

func (m *mockHeartsStore) Toggle(ctx context.Context, userID, storeID int64) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, storeID)
	}
	return false, nil
}
func (m *mockHeartsStore) ListStores(ctx context.Context, userID int64) ([]store.Store, error) {
	if m.listStoresFn != nil {
		return m.listStoresFn(ctx, userID)
	}
	return nil, nil
}

type mockMailer struct {
	sendFn func(templateFile, username, email string, data any) error
	sent   []string
}

func (m *mockMailer) Send(templateFile, username, email string, data any) error {
	m.sent = append(m.sent, email)
	if m.sendFn != nil {
		return m.sendFn(templateFile, username, email, data)
	}
	return nil
}

var _ mailer.Client = (*mockMailer)(nil)

func newTestStorage() store.Storage {
	return store.Storage{
		Stores:  &mockStoresStore{},
		Reviews: &mockReviewsStore{},
		Users:   &mockUsersStore{},
		Hearts:  &mockHeartsStore{},
	}
}

func newTestApp(t *testing.T, storage store.Storage) *application {
	t.Helper()

	return &application{
		config: config{
			addr:        ":0",
			env:         "test",
			frontendURL: "http://localhost:7777",
			maps:        mapConfig{lat: 43.2, lng: -79.8, zoom: 11},
			rateLimiter: ratelimiter.Config{Enabled: false},
		},
		logger: zap.NewNop().Sugar(),
		store:  storage,
		mailer: &mockMailer{},
		authenticator: auth.NewJWTAuthenticator(
			"test-secret", "test-refresh-secret",
			"savory", "savory",
			time.Hour, time.Hour,
		),
		rateLimiter: ratelimiter.NewFixedWindowLimiter(1000, time.Second),
		sanitizer:   security.NewSanitizer(),
	}
}

// bearerToken mints a valid access token for the given user ID.
func bearerToken(t *testing.T, app *application, userID int64) string {
	t.Helper()

	access, _, err := app.authenticator.GenerateTokens(userID)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("Bearer %s", access)
}

func executeRequest(req *http.Request, mux http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}
