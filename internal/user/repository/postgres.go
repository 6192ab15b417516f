package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hattbooks/backend/internal/user/domain"
)

const userColumns = `id, auth0_id, email, username, display_name, password_hash,
	auth_provider, avatar, bio, preferences, followers, following,
	is_active, last_login, refresh_tokens, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for
// persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail returns the user with the given email (including the password
// hash), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername returns the user with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByAuth0ID returns the user linked to the external identity id, or nil if
// not found.
func (r *PostgresRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	return r.getBy(ctx, "auth0_id", auth0ID)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column), value)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Create persists the user. The user must have ID set; it is not assigned by
// this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	prefs, followers, following, tokens, err := marshalJSONFields(u)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		u.ID, nullString(u.Auth0ID), u.Email, u.Username, u.DisplayName,
		nullString(u.PasswordHash), string(u.AuthProvider), nullString(u.Avatar),
		u.Bio, prefs, followers, following, u.IsActive, u.LastLogin, tokens,
		u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// Update writes the whole user record back. The refresh-token list, profile
// fields, and preferences are read-modify-write against this single row.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	prefs, followers, following, tokens, err := marshalJSONFields(u)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET
			auth0_id = $2, email = $3, username = $4, display_name = $5,
			password_hash = $6, auth_provider = $7, avatar = $8, bio = $9,
			preferences = $10, followers = $11, following = $12,
			is_active = $13, last_login = $14, refresh_tokens = $15, updated_at = $16
		 WHERE id = $1`,
		u.ID, nullString(u.Auth0ID), u.Email, u.Username, u.DisplayName,
		nullString(u.PasswordHash), string(u.AuthProvider), nullString(u.Avatar),
		u.Bio, prefs, followers, following, u.IsActive, u.LastLogin, tokens,
		u.UpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u            domain.User
		auth0ID      sql.NullString
		passwordHash sql.NullString
		avatar       sql.NullString
		provider     string
		prefs        []byte
		followers    []byte
		following    []byte
		tokens       []byte
	)
	err := row.Scan(
		&u.ID, &auth0ID, &u.Email, &u.Username, &u.DisplayName, &passwordHash,
		&provider, &avatar, &u.Bio, &prefs, &followers, &following,
		&u.IsActive, &u.LastLogin, &tokens, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Auth0ID = auth0ID.String
	u.PasswordHash = passwordHash.String
	u.Avatar = avatar.String
	u.AuthProvider = domain.AuthProvider(provider)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("users: decode preferences: %w", err)
		}
	}
	if len(followers) > 0 {
		if err := json.Unmarshal(followers, &u.Followers); err != nil {
			return nil, fmt.Errorf("users: decode followers: %w", err)
		}
	}
	if len(following) > 0 {
		if err := json.Unmarshal(following, &u.Following); err != nil {
			return nil, fmt.Errorf("users: decode following: %w", err)
		}
	}
	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &u.RefreshTokens); err != nil {
			return nil, fmt.Errorf("users: decode refresh tokens: %w", err)
		}
	}
	return &u, nil
}

func marshalJSONFields(u *domain.User) (prefs, followers, following, tokens []byte, err error) {
	if prefs, err = json.Marshal(orEmptyMap(u.Preferences)); err != nil {
		return nil, nil, nil, nil, err
	}
	if followers, err = json.Marshal(orEmptySlice(u.Followers)); err != nil {
		return nil, nil, nil, nil, err
	}
	if following, err = json.Marshal(orEmptySlice(u.Following)); err != nil {
		return nil, nil, nil, nil, err
	}
	if tokens, err = json.Marshal(orEmptyRecords(u.RefreshTokens)); err != nil {
		return nil, nil, nil, nil, err
	}
	return prefs, followers, following, tokens, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyRecords(s []domain.RefreshTokenRecord) []domain.RefreshTokenRecord {
	if s == nil {
		return []domain.RefreshTokenRecord{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
