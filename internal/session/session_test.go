package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-portal/internal/seal"
)

func newCodec(t *testing.T, secret string) *seal.Codec {
	t.Helper()
	c, err := seal.New(secret)
	require.NoError(t, err)
	return c
}

func TestSealedValues(t *testing.T) {
	s := New("id", newCodec(t, "k1"))

	_, err := s.GetSealed(KeyUserType)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetSealed(KeyUserType, "patient"))
	raw, _ := s.Get(KeyUserType)
	assert.NotEqual(t, "patient", raw)

	got, err := s.GetSealed(KeyUserType)
	require.NoError(t, err)
	assert.Equal(t, "patient", got)
}

func TestGetSealedEvictsUndecodable(t *testing.T) {
	other := New("x", newCodec(t, "other-key"))
	require.NoError(t, other.SetSealed(KeyProfile, `{"firstName":"A"}`))
	foreign, _ := other.Get(KeyProfile)

	s := New("id", newCodec(t, "k1"))
	s.Set(KeyProfile, foreign)
	s.Set(KeyUserType, "garbage!!")

	_, err := s.GetSealed(KeyProfile)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	_, ok := s.Get(KeyProfile)
	assert.False(t, ok, "undecodable value must be evicted")

	_, err = s.GetSealed(KeyUserType)
	assert.Error(t, err)
	_, ok = s.Get(KeyUserType)
	assert.False(t, ok)
}

func TestFlashIsOneShot(t *testing.T) {
	s := New("id", newCodec(t, "k1"))
	s.SetFlash("booked")
	assert.Equal(t, "booked", s.TakeFlash())
	assert.Equal(t, "", s.TakeFlash())
}

func TestMemoryStoreExpiry(t *testing.T) {
	st := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	require.NoError(t, st.Save(context.Background(), "a", map[string]string{"k": "v"}, time.Minute))
	vals, err := st.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "v", vals["k"])

	now = now.Add(2 * time.Minute)
	_, err = st.Load(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManagerRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(Options{Secret: "cookie-secret", TTL: time.Hour}, store, newCodec(t, "k1"), nil)

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/login", func(c echo.Context) error {
		FromContext(c).MarkLoggedIn()
		return c.Redirect(http.StatusFound, "/")
	})
	e.GET("/whoami", func(c echo.Context) error {
		if FromContext(c).LoggedIn() {
			return c.String(http.StatusOK, "in")
		}
		return c.String(http.StatusOK, "out")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "clinic_sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Expires.IsZero(), "session cookie must not persist")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "in", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "out", rec.Body.String())
}

func TestManagerRejectsForgedCookie(t *testing.T) {
	store := NewMemoryStore()
	codec := newCodec(t, "k1")
	good := NewManager(Options{Secret: "right"}, store, codec, nil)
	forged := NewManager(Options{Secret: "wrong"}, store, codec, nil)

	tok, err := forged.signCookie("6f1c1b8e-8d9a-4c57-9c55-1f3f0c7ad001", time.Now())
	require.NoError(t, err)
	_, err = good.parseCookie(tok)
	assert.Error(t, err)
}

func TestRenewReplacesStoredRecord(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(Options{Secret: "cookie-secret", TTL: time.Hour}, store, newCodec(t, "k1"), nil)

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/flash", func(c echo.Context) error {
		FromContext(c).SetFlash("hello")
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/login", func(c echo.Context) error {
		s := FromContext(c)
		s.Renew()
		s.MarkLoggedIn()
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/flash", nil))
	first := rec.Result().Cookies()
	require.Len(t, first, 1)
	oldID, err := m.parseCookie(first[0].Value)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(first[0])
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	second := rec.Result().Cookies()
	require.Len(t, second, 1)
	newID, err := m.parseCookie(second[0].Value)
	require.NoError(t, err)

	assert.NotEqual(t, oldID, newID)
	_, err = store.Load(context.Background(), oldID)
	assert.ErrorIs(t, err, ErrNoSession)
	vals, err := store.Load(context.Background(), newID)
	require.NoError(t, err)
	assert.Equal(t, "true", vals[KeyLoginFlag])
	assert.Equal(t, "hello", vals[KeyFlash])
}

func TestIdleSessionIsRefreshedAfterQuarterTTL(t *testing.T) {
	clock := time.Now()
	now := func() time.Time { return clock }
	store := NewMemoryStore()
	store.now = now
	m := NewManager(Options{Secret: "cookie-secret", TTL: time.Hour}, store, newCodec(t, "k1"), nil)
	m.now = now

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/login", func(c echo.Context) error {
		FromContext(c).MarkLoggedIn()
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/whoami", func(c echo.Context) error {
		if FromContext(c).LoggedIn() {
			return c.String(http.StatusOK, "in")
		}
		return c.String(http.StatusOK, "out")
	})
	whoami := func(ck *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(ck)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	first := rec.Result().Cookies()
	require.Len(t, first, 1)

	// Inside the throttle window nothing is rewritten.
	clock = clock.Add(10 * time.Minute)
	rec = whoami(first[0])
	assert.Equal(t, "in", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	clock = clock.Add(10 * time.Minute)
	rec = whoami(first[0])
	assert.Equal(t, "in", rec.Body.String())
	second := rec.Result().Cookies()
	require.Len(t, second, 1)
	oldID, err := m.parseCookie(first[0].Value)
	require.NoError(t, err)
	newID, err := m.parseCookie(second[0].Value)
	require.NoError(t, err)
	assert.Equal(t, oldID, newID)

	// Past the first cookie's exp, only the refreshed cookie and record are live.
	clock = clock.Add(50 * time.Minute)
	assert.Equal(t, "out", whoami(first[0]).Body.String())
	assert.Equal(t, "in", whoami(second[0]).Body.String())

	vals, err := store.Load(context.Background(), newID)
	require.NoError(t, err)
	assert.Contains(t, vals, keyIssued)
	assert.NotContains(t, restore(newID, vals, m.codec).values, keyIssued)
}

func TestAbandonedSessionExpires(t *testing.T) {
	clock := time.Now()
	now := func() time.Time { return clock }
	store := NewMemoryStore()
	store.now = now
	m := NewManager(Options{Secret: "cookie-secret", TTL: time.Hour}, store, newCodec(t, "k1"), nil)
	m.now = now

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/login", func(c echo.Context) error {
		FromContext(c).MarkLoggedIn()
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/whoami", func(c echo.Context) error {
		if FromContext(c).LoggedIn() {
			return c.String(http.StatusOK, "in")
		}
		return c.String(http.StatusOK, "out")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	ck := rec.Result().Cookies()
	require.Len(t, ck, 1)

	clock = clock.Add(61 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(ck[0])
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "out", rec.Body.String())
}
