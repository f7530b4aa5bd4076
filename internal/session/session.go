// Package session holds the per-browser-session values the portal keeps
// server side: the login flag, the sealed user type, the sealed profile
// summary and the remote API cookies.  A Session is loaded once per request
// by Manager.Middleware and passed down through the echo context.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Keys stored in a session.  The first three mirror the names the front end
// has always used for its session storage.
const (
	KeyLoginFlag  = "userSession"
	KeyUserType   = "UsersType"
	KeyProfile    = "admin"
	KeyAPICookies = "apiCookies"
	KeyFlash      = "flash"
)

// keyIssued holds the unix time the cookie was last signed.  It is kept out
// of the visible values.
const keyIssued = "_issued"

// IdentityKeys are removed on logout.
var IdentityKeys = []string{KeyProfile, KeyUserType, KeyLoginFlag, KeyAPICookies}

// ErrNotFound is returned when a key is absent.
var ErrNotFound = errors.New("session: key not found")

// Codec seals values before they are written to the store.  *seal.Codec
// satisfies it.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Session is the explicit session context.  It is not safe for concurrent
// use; each request owns its own copy.
type Session struct {
	id     string
	values map[string]string
	codec  Codec
	dirty  bool
	fresh  bool

	previous string    // id replaced by Renew, deleted on save
	issued   time.Time // when the current cookie was signed
}

// New returns an empty session with the given id.
func New(id string, codec Codec) *Session {
	return &Session{id: id, values: map[string]string{}, codec: codec, fresh: true}
}

func restore(id string, values map[string]string, codec Codec) *Session {
	if values == nil {
		values = map[string]string{}
	}
	s := &Session{id: id, values: values, codec: codec}
	if raw, ok := values[keyIssued]; ok {
		delete(values, keyIssued)
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.issued = time.Unix(sec, 0)
		}
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Renew moves the session to a new id.  The old record is deleted and a
// new cookie is issued when the session is saved.  Call it at login.
func (s *Session) Renew() {
	if s.previous == "" && !s.fresh {
		s.previous = s.id
	}
	s.id = uuid.NewString()
	s.fresh = true
	s.dirty = true
}

// Dirty reports whether the session was modified since it was loaded.
func (s *Session) Dirty() bool { return s.dirty }

// Get returns the raw value stored under key.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores a raw value.
func (s *Session) Set(key, value string) {
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Remove deletes the given keys.
func (s *Session) Remove(keys ...string) {
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			s.dirty = true
		}
	}
}

// Clear drops every value.
func (s *Session) Clear() {
	if len(s.values) == 0 {
		return
	}
	s.values = map[string]string{}
	s.dirty = true
}

// SetSealed seals value with the session codec and stores it under key.
func (s *Session) SetSealed(key, value string) error {
	sealed, err := s.codec.Encrypt(value)
	if err != nil {
		return fmt.Errorf("session: seal %s: %w", key, err)
	}
	s.Set(key, sealed)
	return nil
}

// GetSealed opens the value stored under key.  A value that cannot be opened
// is evicted and the decode error is returned; an absent value returns
// ErrNotFound.
func (s *Session) GetSealed(key string) (string, error) {
	raw, ok := s.values[key]
	if !ok || raw == "" {
		return "", ErrNotFound
	}
	plain, err := s.codec.Decrypt(raw)
	if err != nil {
		s.Remove(key)
		return "", fmt.Errorf("session: open %s: %w", key, err)
	}
	return plain, nil
}

// LoggedIn reports whether the login flag is set.
func (s *Session) LoggedIn() bool {
	v, ok := s.values[KeyLoginFlag]
	return ok && v != ""
}

// MarkLoggedIn sets the login flag.
func (s *Session) MarkLoggedIn() { s.Set(KeyLoginFlag, "true") }

// SetFlash stores a one-shot message shown on the next rendered page.
func (s *Session) SetFlash(msg string) { s.Set(KeyFlash, msg) }

// TakeFlash returns and removes the pending flash message.
func (s *Session) TakeFlash() string {
	msg, ok := s.values[KeyFlash]
	if !ok {
		return ""
	}
	s.Remove(KeyFlash)
	return msg
}

func (s *Session) snapshot() map[string]string {
	out := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		out[k] = v
	}
	if len(out) > 0 && !s.issued.IsZero() {
		out[keyIssued] = strconv.FormatInt(s.issued.Unix(), 10)
	}
	return out
}
