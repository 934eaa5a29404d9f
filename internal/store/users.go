package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var ErrDuplicateEmail = errors.New("a user with that email already exists")

type User struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Password             password  `json:"-"`
	Hearts               []int64   `json:"hearts"`
	RefreshToken         string    `json:"-"`
	ResetPasswordToken   string    `json:"-"`
	ResetPasswordExpires time.Time `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// password keeps both the plaintext (only for the lifetime of the request
// that set it) and the bcrypt hash out of any serialized form.
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

type UsersStore struct {
	db *pgxpool.Pool
}

func (s *UsersStore) Create(ctx context.Context, user *User) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		INSERT INTO users (name, email, password)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query, user.Name, user.Email, user.Password.hash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

const userColumns = `
	u.id, u.name, u.email, u.password, u.created_at, u.updated_at,
	ARRAY(SELECT h.store_id FROM hearts h WHERE h.user_id = u.id ORDER BY h.created_at)
`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password.hash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Hearts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UsersStore) GetByID(ctx context.Context, userID int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	return scanUser(s.db.QueryRow(ctx, query, userID))
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`
	return scanUser(s.db.QueryRow(ctx, query, email))
}

// UpdateAccount changes the profile fields a user can edit themselves.
func (s *UsersStore) UpdateAccount(ctx context.Context, userID int64, name, email string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE users SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`
	tag, err := s.db.Exec(ctx, query, name, email, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the hashed reset token and its expiry on the user with
// the given email.
func (s *UsersStore) SetResetToken(ctx context.Context, email, tokenHash string, expires time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE users
		SET reset_password_token = $1, reset_password_expires = $2, updated_at = NOW()
		WHERE email = $3
	`
	tag, err := s.db.Exec(ctx, query, tokenHash, expires, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByResetToken resolves a user by hashed reset token. The expiry check is
// part of the query: an expired token behaves exactly like an unknown one.
func (s *UsersStore) GetByResetToken(ctx context.Context, tokenHash string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT ` + userColumns + `
		FROM users u
		WHERE u.reset_password_token = $1 AND u.reset_password_expires > $2`
	return scanUser(s.db.QueryRow(ctx, query, tokenHash, time.Now().UTC()))
}

// ResetCredential writes the new password hash and clears the reset token
// fields in a single statement.
func (s *UsersStore) ResetCredential(ctx context.Context, user *User) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
		UPDATE users
		SET password = $1,
		    reset_password_token = NULL,
		    reset_password_expires = NULL,
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := s.db.Exec(ctx, query, user.Password.hash, user.ID)
	return err
}

func (s *UsersStore) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.db.Exec(ctx, query, refreshToken, userID)
	return err
}

func (s *UsersStore) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var refreshToken string
	query := `SELECT COALESCE(refresh_token, '') FROM users WHERE id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return refreshToken, nil
}

func (s *UsersStore) DeleteRefreshToken(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1`
	_, err := s.db.Exec(ctx, query, userID)
	return err
}
