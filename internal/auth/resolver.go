package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/books4all/books4all/internal/shared"
	"github.com/books4all/books4all/internal/token"
)

// Resolver turns a bearer token into an authenticated principal by verifying
// the access assertion and consulting the principal store.
type Resolver struct {
	codec *token.Codec
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(codec *token.Codec, store Store) *Resolver {
	return &Resolver{codec: codec, store: store}
}

// ResolveRequired resolves the principal or fails. A missing, invalid,
// expired or wrong-kind token and a vanished principal all yield
// ErrUnauthenticated; a principal that exists but is inactive yields
// ErrDisabled, which maps to 403 rather than 401.
func (r *Resolver) ResolveRequired(ctx context.Context, rawToken string) (*Principal, error) {
	if rawToken == "" {
		return nil, shared.ErrUnauthenticated
	}
	claims, err := r.codec.Verify(rawToken, token.KindAccess)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	p, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	if !p.IsActive {
		return nil, shared.ErrDisabled
	}
	return p, nil
}

// ResolveOptional resolves the principal when possible and returns nil
// otherwise. An absent token is not an error here: it is the anonymous
// branch used by routes that serve both audiences.
func (r *Resolver) ResolveOptional(ctx context.Context, rawToken string) *Principal {
	if rawToken == "" {
		return nil
	}
	claims, err := r.codec.Verify(rawToken, token.KindAccess)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil
	}
	p, err := r.store.FindActiveByID(ctx, id)
	if err != nil {
		return nil
	}
	return p
}
