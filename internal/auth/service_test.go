package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/books4all/books4all/internal/shared"
	"github.com/books4all/books4all/internal/token"
)

type stubStore struct {
	byEmail map[string]*Principal
	byID    map[uuid.UUID]*Principal
}

func newStubStore(principals ...*Principal) *stubStore {
	s := &stubStore{
		byEmail: make(map[string]*Principal),
		byID:    make(map[uuid.UUID]*Principal),
	}
	for _, p := range principals {
		s.byEmail[p.Email] = p
		s.byID[p.ID] = p
	}
	return s
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	p, ok := s.byEmail[email]
	if !ok || p.DeletedAt != nil {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) FindByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	p, ok := s.byID[id]
	if !ok || p.DeletedAt != nil {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) FindActiveByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec("0123456789abcdef0123456789abcdef", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return codec
}

func testPrincipal(t *testing.T, role Role, active bool) *Principal {
	t.Helper()
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	return &Principal{
		ID:           uuid.New(),
		Email:        "user@books4all.test",
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	p := testPrincipal(t, RoleBuyer, true)
	svc := NewService(newStubStore(p), newTestCodec(t))

	got, err := svc.Authenticate(context.Background(), p.Email, "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestAuthenticateFailuresCollapse(t *testing.T) {
	p := testPrincipal(t, RoleBuyer, true)
	inactive := testPrincipal(t, RoleSeller, false)
	inactive.Email = "inactive@books4all.test"
	svc := NewService(newStubStore(p, inactive), newTestCodec(t))
	ctx := context.Background()

	cases := []struct {
		name            string
		email, password string
	}{
		{"unknown email", "nobody@books4all.test", "correct-horse-battery"},
		{"wrong password", p.Email, "wrong-password"},
		{"inactive account", inactive.Email, "correct-horse-battery"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestLoginIssuesPair(t *testing.T) {
	p := testPrincipal(t, RoleSeller, true)
	codec := newTestCodec(t)
	svc := NewService(newStubStore(p), codec)

	pair, err := svc.Login(context.Background(), p.Email, "correct-horse-battery")
	require.NoError(t, err)

	claims, err := codec.Verify(pair.AccessToken, token.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, p.ID.String(), claims.Subject)
	assert.Equal(t, "seller", claims.Role)
}

func TestRefreshRotatesPair(t *testing.T) {
	p := testPrincipal(t, RoleBuyer, true)
	codec := newTestCodec(t)
	svc := NewService(newStubStore(p), codec)
	ctx := context.Background()

	pair, err := svc.Login(ctx, p.Email, "correct-horse-battery")
	require.NoError(t, err)

	// Role changes between issuance and refresh must show up in the new pair.
	p.Role = RoleSeller
	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := codec.Verify(next.AccessToken, token.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "seller", claims.Role)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	p := testPrincipal(t, RoleBuyer, true)
	svc := NewService(newStubStore(p), newTestCodec(t))
	ctx := context.Background()

	pair, err := svc.Login(ctx, p.Email, "correct-horse-battery")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRefreshRejectsDeactivatedPrincipal(t *testing.T) {
	p := testPrincipal(t, RoleBuyer, true)
	svc := NewService(newStubStore(p), newTestCodec(t))
	ctx := context.Background()

	pair, err := svc.Login(ctx, p.Email, "correct-horse-battery")
	require.NoError(t, err)

	p.IsActive = false
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
