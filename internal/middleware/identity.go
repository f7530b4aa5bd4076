package middleware

// identity.go holds the context helpers shared by the middleware in this
// package and by the handlers.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/session"
)

const identityKey = "identity"

// IdentityFrom returns the identity resolved by ResolveIdentity.
func IdentityFrom(c echo.Context) (authz.Identity, bool) {
	id, ok := c.Get(identityKey).(authz.Identity)
	return id, ok
}

// sessionKey identifies the caller for rate limiting: the session id when
// one exists, "anon" otherwise.
func sessionKey(c echo.Context) string {
	if s := session.FromContext(c); s != nil && s.LoggedIn() {
		return s.ID()
	}
	return "anon"
}
