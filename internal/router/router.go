package router // package router registers the portal's pages on an echo instance

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/handler"
	"github.com/iliyamo/clinic-portal/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth    *handler.AuthHandler
	Pages   *handler.PageHandler
	Patient *handler.PatientHandler
	Doctor  *handler.DoctorHandler
}

// Gates are the middleware the routes are wrapped in.  Limiter guards the
// credential forms; Resolver feeds the role gate.
type Gates struct {
	Resolver *authz.Resolver
	Limiter  echo.MiddlewareFunc
	Log      *zap.Logger
}

// RegisterRoutes registers the routes that need no login.
func RegisterRoutes(e *echo.Echo, h Handlers, g Gates) {
	e.GET("/healthz", handler.Health)

	limit := g.Limiter
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	e.GET("/login", h.Auth.LoginPage)
	e.POST("/login", h.Auth.Login, limit)
	e.GET("/register", h.Auth.RegisterPage)
	e.POST("/register", h.Auth.Register, limit)
	e.GET("/logout", h.Auth.LogoutPage)
	e.POST("/logout", h.Auth.Logout)
}

// RegisterPages registers the logged-in pages.  Every page passes the login
// gate, resolves the caller's identity once and is then checked against
// authz.RoutePermissions.  Middleware is attached per route rather than
// through a group so unknown paths still reach the not-found page.
func RegisterPages(e *echo.Echo, h Handlers, g Gates) {
	login := middleware.RequireLogin()
	gated := []echo.MiddlewareFunc{login, middleware.ResolveIdentity(g.Resolver, g.Log), middleware.RequireRole()}

	// Nav decides from the cached role, so it must not trigger a resolution.
	e.GET("/nav", h.Auth.Nav, login)

	e.GET("/", h.Pages.Main, gated...)
	e.GET("/main", h.Pages.Main, gated...)

	e.GET("/patient", h.Pages.PatientMenu, gated...)
	e.GET("/patient/search", h.Patient.Search, gated...)
	e.GET("/patient/search/select-doctor", h.Patient.SelectDoctor, gated...)
	e.POST("/patient/search/select-doctor/book", h.Patient.Book, gated...)
	e.GET("/patient/appointment", h.Patient.Appointments, gated...)
	e.GET("/patient/profile", h.Patient.Profile, gated...)
	e.POST("/patient/profile", h.Patient.UpdateProfile, gated...)

	e.GET("/doctor", h.Pages.DoctorMenu, gated...)
	e.GET("/doctor/schedule", h.Doctor.Schedule, gated...)
	e.POST("/doctor/schedule", h.Doctor.CreateSlot, gated...)
	e.GET("/doctor/request-attention", h.Doctor.RequestAttention, gated...)
	e.GET("/doctor/profile", h.Doctor.Profile, gated...)
	e.POST("/doctor/profile", h.Doctor.UpdateProfile, gated...)
}
