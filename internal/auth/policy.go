package auth

import (
	"fmt"

	"github.com/books4all/books4all/internal/shared"
)

// RequireRole checks that an already-resolved, already-active principal holds
// one of the allowed roles. The returned error wraps ErrForbidden and names
// the required roles for logs; response writers must not forward that detail
// to the caller.
//
// An empty allowed set is a configuration mistake, not a rejection path, and
// panics so it is caught at route registration time.
func RequireRole(p *Principal, allowed []Role) error {
	if len(allowed) == 0 {
		panic("auth: RequireRole called with an empty role set")
	}
	if p == nil {
		return shared.ErrForbidden
	}
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q not in %v", shared.ErrForbidden, p.Role, allowed)
}
