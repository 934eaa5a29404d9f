package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"savory/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, mux http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return executeRequest(req, mux)
}

func TestForgotPassword_DoesNotRevealAccounts(t *testing.T) {
	storage := newTestStorage()

	known := &store.User{ID: 7, Name: "Alice", Email: "alice@example.com"}
	storage.Users = &mockUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (*store.User, error) {
			if email == known.Email {
				return known, nil
			}
			return nil, store.ErrNotFound
		},
	}

	app := newTestApp(t, storage)
	sent := &mockMailer{}
	app.mailer = sent
	mux := app.mount()

	type body struct {
		Message string `json:"message"`
	}

	// Known account: mail goes out.
	rr := postJSON(t, mux, "/account/forgot", map[string]string{"email": known.Email})
	require.Equal(t, http.StatusOK, rr.Code)
	var knownResp struct{ Data body }
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &knownResp))

	// Unknown account: same status, same message, no mail.
	rr = postJSON(t, mux, "/account/forgot", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	var unknownResp struct{ Data body }
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &unknownResp))

	assert.Equal(t, knownResp.Data.Message, unknownResp.Data.Message)
	assert.Equal(t, []string{known.Email}, sent.sent)
}

func TestForgotPassword_StoresHashNotToken(t *testing.T) {
	storage := newTestStorage()

	var storedHash string
	var storedExpiry time.Time
	storage.Users = &mockUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (*store.User, error) {
			return &store.User{ID: 1, Name: "Alice", Email: email}, nil
		},
		setResetTokenFn: func(ctx context.Context, email, tokenHash string, expires time.Time) error {
			storedHash = tokenHash
			storedExpiry = expires
			return nil
		},
	}

	app := newTestApp(t, storage)

	var mailedURL string
	app.mailer = &mockMailer{
		sendFn: func(templateFile, username, email string, data any) error {
			vars, ok := data.(struct {
				Username string
				ResetURL string
			})
			require.True(t, ok)
			mailedURL = vars.ResetURL
			return nil
		},
	}
	mux := app.mount()

	rr := postJSON(t, mux, "/account/forgot", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)

	// sha256 hex is 64 chars; a 20-byte token is 40.
	require.Len(t, storedHash, 64)
	assert.NotContains(t, mailedURL, storedHash)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), storedExpiry, time.Minute)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	storage := newTestStorage()
	storage.Users = &mockUsersStore{
		getByResetTokenFn: func(ctx context.Context, tokenHash string) (*store.User, error) {
			return nil, store.ErrNotFound
		},
	}

	app := newTestApp(t, storage)
	mux := app.mount()

	rr := postJSON(t, mux, "/account/reset/deadbeef", map[string]string{
		"password":         "hunter2hunter2",
		"password_confirm": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid or has expired")
}

func TestResetPassword_MismatchedConfirmation(t *testing.T) {
	app := newTestApp(t, newTestStorage())
	mux := app.mount()

	rr := postJSON(t, mux, "/account/reset/deadbeef", map[string]string{
		"password":         "hunter2hunter2",
		"password_confirm": "different-password",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestResetPassword_Valid(t *testing.T) {
	storage := newTestStorage()

	user := &store.User{ID: 3, Name: "Alice", Email: "alice@example.com"}
	var credentialReset bool
	var refreshSaved bool
	storage.Users = &mockUsersStore{
		getByResetTokenFn: func(ctx context.Context, tokenHash string) (*store.User, error) {
			return user, nil
		},
		resetCredentialFn: func(ctx context.Context, u *store.User) error {
			credentialReset = true
			return nil
		},
		saveRefreshTokenFn: func(ctx context.Context, id int64, token string) error {
			refreshSaved = true
			return nil
		},
	}

	app := newTestApp(t, storage)
	mux := app.mount()

	rr := postJSON(t, mux, "/account/reset/deadbeef", map[string]string{
		"password":         "hunter2hunter2",
		"password_confirm": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, credentialReset)
	assert.True(t, refreshSaved)
	assert.Contains(t, rr.Body.String(), "access_token")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	storage := newTestStorage()
	storage.Users = &mockUsersStore{
		createFn: func(ctx context.Context, user *store.User) error {
			return store.ErrDuplicateEmail
		},
	}

	app := newTestApp(t, storage)
	mux := app.mount()

	rr := postJSON(t, mux, "/register", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	storage := newTestStorage()

	user := &store.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, user.Password.Set("correct-horse-battery"))
	storage.Users = &mockUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (*store.User, error) {
			return user, nil
		},
	}

	app := newTestApp(t, storage)
	mux := app.mount()

	rr := postJSON(t, mux, "/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password-here",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_Valid(t *testing.T) {
	storage := newTestStorage()

	user := &store.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, user.Password.Set("correct-horse-battery"))
	storage.Users = &mockUsersStore{
		getByEmailFn: func(ctx context.Context, email string) (*store.User, error) {
			return user, nil
		},
	}

	app := newTestApp(t, storage)
	mux := app.mount()

	rr := postJSON(t, mux, "/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "access_token")
	assert.Contains(t, rr.Body.String(), "refresh_token")
}
