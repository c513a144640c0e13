package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the closed set of marketplace roles.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Per-route role sets. Routes are configured with one of these instead of
// enumerating tuples at call sites.
var (
	AdminOnly     = []Role{RoleAdmin}
	SellerOrAdmin = []Role{RoleSeller, RoleAdmin}
	BuyerOrAbove  = []Role{RoleBuyer, RoleSeller, RoleAdmin}
)

// Principal represents the authenticated actor behind a request. It is looked
// up fresh from the store on every request and never cached across requests.
type Principal struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
