package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contextKey = "session"

// Options configure a Manager.
type Options struct {
	CookieName string        // name of the session cookie
	Secret     string        // HS256 key signing the cookie
	TTL        time.Duration // idle lifetime of a session record and its cookie token
	Secure     bool          // mark the cookie Secure
}

// Manager loads and saves sessions for each request.  The browser only ever
// holds a signed session id; the values live in the Store.
//
// Expiry slides: once a quarter of the TTL has passed since the cookie was
// signed, the next request re-signs it and extends the stored record.
type Manager struct {
	opts  Options
	store Store
	codec Codec
	log   *zap.Logger
	now   func() time.Time
}

// NewManager builds a Manager.  It panics on a nil store or codec, which is
// a wiring mistake.
func NewManager(opts Options, store Store, codec Codec, log *zap.Logger) *Manager {
	if store == nil || codec == nil {
		panic("nil store or codec passed to session.NewManager")
	}
	if opts.CookieName == "" {
		opts.CookieName = "clinic_sid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{opts: opts, store: store, codec: codec, log: log, now: time.Now}
}

// Middleware attaches the request's Session to the echo context and writes
// it back just before the response header goes out.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := m.load(c)
			c.Set(contextKey, sess)

			saved := false
			save := func() {
				if saved {
					return
				}
				saved = true
				m.persist(c, sess)
			}
			c.Response().Before(save)

			err := next(c)
			if !c.Response().Committed {
				save()
			}
			return err
		}
	}
}

// FromContext returns the Session attached by Middleware, or nil.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}

func (m *Manager) load(c echo.Context) *Session {
	ck, err := c.Cookie(m.opts.CookieName)
	if err != nil || ck.Value == "" {
		return m.fresh()
	}
	id, err := m.parseCookie(ck.Value)
	if err != nil {
		m.log.Debug("session cookie rejected", zap.Error(err))
		return m.fresh()
	}
	vals, err := m.store.Load(c.Request().Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			m.log.Warn("session load failed", zap.String("session_id", id), zap.Error(err))
		}
		return m.fresh()
	}
	return restore(id, vals, m.codec)
}

func (m *Manager) fresh() *Session { return New(uuid.NewString(), m.codec) }

func (m *Manager) persist(c echo.Context, sess *Session) {
	now := m.now()
	refresh := !sess.fresh && len(sess.values) > 0 && now.Sub(sess.issued) >= m.opts.TTL/4
	if !sess.Dirty() && !refresh {
		return
	}
	if sess.previous != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := m.store.Delete(ctx, sess.previous); err != nil {
			m.log.Warn("old session delete failed", zap.String("session_id", sess.previous), zap.Error(err))
		}
		cancel()
		sess.previous = ""
	}
	if sess.fresh || refresh {
		tok, err := m.signCookie(sess.ID(), now)
		if err != nil {
			m.log.Error("session cookie sign failed", zap.Error(err))
			return
		}
		c.SetCookie(&http.Cookie{
			Name:     m.opts.CookieName,
			Value:    tok,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		sess.issued = now
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, sess.ID(), sess.snapshot(), m.opts.TTL); err != nil {
		m.log.Error("session save failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return
	}
	sess.dirty = false
	sess.fresh = false
}

// signCookie issues the cookie token.  There is no cookie Expires, so the
// browser drops it when it closes; the exp claim bounds a leaked token.
func (m *Manager) signCookie(id string, now time.Time) (string, error) {
	now = now.UTC()
	claims := jwt.MapClaims{
		"sid": id,
		"iat": now.Unix(),
		"exp": now.Add(m.opts.TTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.opts.Secret))
}

func (m *Manager) parseCookie(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(m.opts.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid {
		return "", errors.New("invalid session token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid session claims")
	}
	id, _ := claims["sid"].(string)
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.New("invalid session id")
	}
	return id, nil
}
