package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/books4all/books4all/internal/shared"
)

// Store defines persistence operations for principals. Soft-deleted records
// are filtered out by every method.
type Store interface {
	// FindByEmail returns the principal for login regardless of active flag.
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	// FindByID returns the principal regardless of active flag, so callers
	// can distinguish "not found" from "found but disabled".
	FindByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	// FindActiveByID returns the principal only when the account is active.
	FindActiveByID(ctx context.Context, id uuid.UUID) (*Principal, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const principalColumns = "id, email, password_hash, role, is_active, deleted_at, created_at, updated_at"

// FindByEmail fetches a non-deleted principal by email.
func (s *PGStore) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 AND deleted_at IS NULL", principalColumns)
	return s.fetch(ctx, query, email)
}

// FindByID fetches a non-deleted principal by identifier.
func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL", principalColumns)
	return s.fetch(ctx, query, id)
}

// FindActiveByID fetches a non-deleted, active principal by identifier.
func (s *PGStore) FindActiveByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL AND is_active", principalColumns)
	return s.fetch(ctx, query, id)
}

func (s *PGStore) fetch(ctx context.Context, query string, arg any) (*Principal, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	var p Principal
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role, &p.IsActive, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: fetch principal: %w", err)
	}
	return &p, nil
}

var _ Store = (*PGStore)(nil)
