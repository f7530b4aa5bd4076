package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/middleware"
	"github.com/iliyamo/clinic-portal/internal/session"
	"github.com/iliyamo/clinic-portal/internal/view"
)

// RememberCookie keeps the last username on this browser.
const RememberCookie = "savedUsername"

const (
	msgLoginEmpty     = "กรุณากรอกชื่อผู้ใช้และรหัสผ่านให้ครบถ้วน."
	msgLoginWrong     = "รหัสผ่านหรือชื่อผู้ใช้ไม่ถูกต้อง."
	msgNoServer       = "ไม่สามารถเชื่อมต่อ server ได้ โปรดลองอีกครั้ง."
	msgSomethingWrong = "มีบางอย่างผิดพลาด โปรดลองอีกครั้ง."
	msgRegistered     = "สมัครสมาชิกสำเร็จ กรุณาเข้าสู่ระบบ"
	msgRegisterFailed = "ไม่สามารถสมัครสมาชิกได้"
	msgStillLoading   = "กำลังโหลดข้อมูลผู้ใช้ โปรดลองอีกครั้งในภายหลัง."
	msgNoPermission   = "คุณไม่มีสิทธิ์เข้าถึงหน้านี้."
)

// AuthAPI is the part of the clinic API used for signing in and out.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (clinicapi.Credentials, error)
	Register(ctx context.Context, r clinicapi.RegisterRequest) error
	Logout(ctx context.Context, creds clinicapi.Credentials) error
}

// AuthHandler serves login, registration, logout and the navigation
// shell's link checks.
type AuthHandler struct {
	base
	API          AuthAPI
	Resolver     *authz.Resolver
	RememberDays int
	SecureCookie bool
}

func NewAuthHandler(api AuthAPI, r *authz.Resolver, rememberDays int, secure bool, log *zap.Logger) *AuthHandler {
	if rememberDays <= 0 {
		rememberDays = 30
	}
	return &AuthHandler{base: newBase(log), API: api, Resolver: r, RememberDays: rememberDays, SecureCookie: secure}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Remember bool   `form:"remember"`
}

// LoginPage shows the login form, prefilled from the remember-me cookie.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	var f loginForm
	if ck, err := c.Cookie(RememberCookie); err == nil && ck.Value != "" {
		f.Username = ck.Value
		f.Remember = true
	}
	return h.render(c, "login.html", h.page(c, "Login", f))
}

// Login exchanges the form credentials for API cookies.  On success the
// session is renewed, the cookies are sealed into it, the login flag is set
// and the browser is sent to "/".
func (h *AuthHandler) Login(c echo.Context) error {
	var f loginForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Username = strings.TrimSpace(f.Username)
	fail := func(msg string) error {
		p := h.page(c, "Login", loginForm{Username: f.Username, Remember: f.Remember})
		p.Modal = view.Alert(msg)
		return h.render(c, "login.html", p)
	}
	if f.Username == "" || f.Password == "" {
		return fail(msgLoginEmpty)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	apiCookies, err := h.API.Login(ctx, f.Username, f.Password)
	if err != nil {
		h.Log.Info("login refused", zap.String("username", f.Username), zap.Error(err))
		return fail(loginMessage(err))
	}

	if f.Remember {
		c.SetCookie(&http.Cookie{
			Name:     RememberCookie,
			Value:    f.Username,
			Path:     "/",
			MaxAge:   h.RememberDays * 24 * 60 * 60,
			Expires:  time.Now().AddDate(0, 0, h.RememberDays),
			HttpOnly: true,
			Secure:   h.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	} else {
		c.SetCookie(&http.Cookie{Name: RememberCookie, Value: "", Path: "/", MaxAge: -1})
	}

	sess := session.FromContext(c)
	sess.Renew()
	sess.Remove(session.IdentityKeys...)
	if err := authz.StoreCredentials(sess, apiCookies); err != nil {
		h.Log.Error("store api credentials", zap.Error(err))
		return fail(msgSomethingWrong)
	}
	sess.MarkLoggedIn()
	return c.Redirect(http.StatusFound, "/")
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, clinicapi.ErrRejected):
		if m := clinicapi.Message(err); m != "" {
			return m
		}
		return msgLoginWrong
	case errors.Is(err, clinicapi.ErrUnauthorized), errors.Is(err, clinicapi.ErrStatus):
		return msgLoginWrong
	case errors.Is(err, clinicapi.ErrTransport):
		return msgNoServer
	}
	return msgSomethingWrong
}

type registerForm struct {
	Email     string `form:"email" validate:"required,email,max=255"`
	Password  string `form:"password" validate:"required,min=6,max=72"`
	FirstName string `form:"firstName" validate:"required,max=100"`
	LastName  string `form:"lastName" validate:"required,max=100"`
	UserType  string `form:"userType" validate:"required,oneof=patient doctor"`
}

var registerMessages = map[string]string{
	"Email":     "กรุณากรอกอีเมลให้ถูกต้อง",
	"Password":  "รหัสผ่านต้องมี 6-72 ตัวอักษร",
	"FirstName": "กรุณากรอกชื่อ (ไม่เกิน 100 ตัวอักษร)",
	"LastName":  "กรุณากรอกนามสกุล (ไม่เกิน 100 ตัวอักษร)",
	"UserType":  "กรุณาเลือกประเภทผู้ใช้",
}

// RegisterPage shows the registration form.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return h.render(c, "register.html", h.page(c, "Register", registerForm{UserType: "patient"}))
}

// Register validates the form and creates the account.
func (h *AuthHandler) Register(c echo.Context) error {
	var f registerForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.UserType = strings.ToLower(strings.TrimSpace(f.UserType))

	fail := func(msg string) error {
		shown := f
		shown.Password = ""
		p := h.page(c, "Register", shown)
		p.Modal = view.Alert(msg)
		return h.render(c, "register.html", p)
	}
	if err := c.Validate(&f); err != nil {
		field, _ := invalidField(err)
		if msg, ok := registerMessages[field]; ok {
			return fail(msg)
		}
		return fail(msgSomethingWrong)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	err := h.API.Register(ctx, clinicapi.RegisterRequest{
		Email:     f.Email,
		Password:  f.Password,
		UserType:  f.UserType,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	})
	switch {
	case err == nil:
		return flashRedirect(c, msgRegistered, middleware.LoginPath)
	case errors.Is(err, clinicapi.ErrTransport):
		return fail(msgNoServer)
	}
	h.Log.Info("registration refused", zap.String("email", f.Email), zap.Error(err))
	if m := clinicapi.Message(err); m != "" {
		return fail(m)
	}
	return fail(msgRegisterFailed)
}

type logoutPage struct {
	BackURL string
}

// LogoutPage asks for confirmation.
func (h *AuthHandler) LogoutPage(c echo.Context) error {
	return h.render(c, "logout.html", h.page(c, "Logout", logoutPage{BackURL: referer(c, middleware.HomePath)}))
}

// Logout ends the API session best-effort, then clears the identity from
// the session and returns to the login page.  An API failure is logged and
// never shown.
func (h *AuthHandler) Logout(c echo.Context) error {
	sess := session.FromContext(c)
	if apiCookies := authz.Credentials(sess); len(apiCookies) > 0 {
		ctx, cancel := apiContext(c)
		if err := h.API.Logout(ctx, apiCookies); err != nil {
			h.Log.Warn("api logout failed", zap.String("session_id", sess.ID()), zap.Error(err))
		}
		cancel()
	}
	sess.Remove(session.IdentityKeys...)
	return c.Redirect(http.StatusFound, middleware.LoginPath)
}

// Nav follows a side-bar link.  It decides from the cached role only: with
// no role cached yet it shows the still-loading alert, and a target the
// role may not open shows the no-permission alert.
func (h *AuthHandler) Nav(c echo.Context) error {
	to := c.QueryParam("to")
	sess := session.FromContext(c)

	role, ok := h.Resolver.CachedRole(sess)
	if !ok {
		return h.navAlert(c, sess, msgStillLoading)
	}
	if !authz.CanNavigate(role, to) {
		return h.navAlert(c, sess, msgNoPermission)
	}
	return c.Redirect(http.StatusFound, to)
}

func (h *AuthHandler) navAlert(c echo.Context, sess *session.Session, msg string) error {
	back := referer(c, middleware.HomePath)
	p := h.page(c, "Clinic", nil)
	if id, ok := h.Resolver.Cached(sess); ok {
		p.Shell = view.NewShell(id.Summary, back)
	}
	p.Modal = &view.Modal{Message: msg, CloseURL: back}
	return h.render(c, "alert.html", p)
}
