package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository is the Postgres-backed identity store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateIdentity inserts the identity unless the username is already taken.
func (r *Repository) CreateIdentity(ctx context.Context, key, username, passwordHash string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (key, username, password_hash)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING
RETURNING key, username, password_hash, created_at;`

	var identity Identity
	err := r.pool.QueryRow(ctx, query, key, username, passwordHash).Scan(
		&identity.Key,
		&identity.Username,
		&identity.PasswordHash,
		&identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrUsernameTaken
		}
		return Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return identity, nil
}

// FindByKey fetches the identity owning key.
func (r *Repository) FindByKey(ctx context.Context, key string) (Identity, error) {
	return r.findOne(ctx, `
SELECT key, username, password_hash, created_at
FROM users
WHERE key = $1;`, key)
}

// FindByUsername fetches an identity by username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (Identity, error) {
	return r.findOne(ctx, `
SELECT key, username, password_hash, created_at
FROM users
WHERE username = $1;`, username)
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var identity Identity
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&identity.Key,
		&identity.Username,
		&identity.PasswordHash,
		&identity.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}
