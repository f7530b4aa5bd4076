package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/session"
)

// Redirect targets used by the gates.
const (
	LoginPath = "/login"
	HomePath  = "/main"
)

// RequireLogin is the route guard: it lets the request through only when
// the session carries the login flag and otherwise redirects to the login
// page.  It is evaluated on every request.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := session.FromContext(c)
			if s == nil || !s.LoggedIn() {
				return c.Redirect(http.StatusFound, LoginPath)
			}
			return next(c)
		}
	}
}

// ResolveIdentity resolves the caller's role and profile summary once per
// request and stores it in the context.  A request is never handed on with
// an unresolved role; when resolution fails the user is sent to log in.
func ResolveIdentity(r *authz.Resolver, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := session.FromContext(c)
			if s == nil {
				return c.Redirect(http.StatusFound, LoginPath)
			}
			id, err := r.Resolve(c.Request().Context(), s)
			if err != nil {
				log.Warn("identity resolution failed",
					zap.String("session_id", s.ID()),
					zap.String("path", c.Request().URL.Path),
					zap.Error(err))
				return c.Redirect(http.StatusFound, LoginPath)
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// RequireRole enforces authz.RoutePermissions for the request path.  A
// caller whose role does not match is redirected to the main page and no
// protected content is rendered.  It must run after ResolveIdentity.
func RequireRole() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok || !authz.Allowed(id.Role, c.Request().URL.Path) {
				return c.Redirect(http.StatusFound, HomePath)
			}
			return next(c)
		}
	}
}
