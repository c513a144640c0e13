package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/books4all/books4all/internal/shared"
	"github.com/books4all/books4all/internal/token"
)

// Service wraps authentication business rules: credential checks at login
// and token pair issuance and rotation.
type Service struct {
	store Store
	codec *token.Codec
}

// NewService constructs a new Service.
func NewService(store Store, codec *token.Codec) *Service {
	return &Service{store: store, codec: codec}
}

// Authenticate validates email/password credentials. Every failure collapses
// to ErrInvalidCredentials so callers cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	p, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !p.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if !VerifyPassword(password, p.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return p, nil
}

// Login authenticates credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (token.Pair, error) {
	p, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return token.Pair{}, err
	}
	return s.codec.IssuePair(p.ID.String(), string(p.Role))
}

// Refresh exchanges a valid refresh token for a new pair. The principal is
// re-fetched so a deactivated account cannot rotate tokens, and the role in
// the new pair reflects the store, not the old snapshot.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	claims, err := s.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return token.Pair{}, shared.ErrUnauthenticated
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return token.Pair{}, shared.ErrUnauthenticated
	}
	p, err := s.store.FindActiveByID(ctx, id)
	if err != nil {
		return token.Pair{}, shared.ErrUnauthenticated
	}
	return s.codec.IssuePair(p.ID.String(), string(p.Role))
}
