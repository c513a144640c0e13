package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/books4all/books4all/internal/shared"
)

func TestRequireRole(t *testing.T) {
	buyer := &Principal{Role: RoleBuyer}
	seller := &Principal{Role: RoleSeller}
	admin := &Principal{Role: RoleAdmin}

	assert.NoError(t, RequireRole(admin, AdminOnly))
	assert.NoError(t, RequireRole(seller, SellerOrAdmin))
	assert.NoError(t, RequireRole(admin, SellerOrAdmin))
	assert.NoError(t, RequireRole(buyer, BuyerOrAbove))

	assert.ErrorIs(t, RequireRole(buyer, AdminOnly), shared.ErrForbidden)
	assert.ErrorIs(t, RequireRole(buyer, SellerOrAdmin), shared.ErrForbidden)
	assert.ErrorIs(t, RequireRole(seller, AdminOnly), shared.ErrForbidden)
}

func TestRequireRoleNilPrincipal(t *testing.T) {
	assert.ErrorIs(t, RequireRole(nil, AdminOnly), shared.ErrForbidden)
}

func TestRequireRoleEmptySetPanics(t *testing.T) {
	assert.Panics(t, func() {
		_ = RequireRole(&Principal{Role: RoleAdmin}, nil)
	})
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleBuyer.Valid())
	assert.True(t, RoleSeller.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}
