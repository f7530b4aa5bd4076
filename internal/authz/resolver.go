package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/session"
)

// IdentityAPI is the part of the clinic API the resolver needs.
type IdentityAPI interface {
	Verify(ctx context.Context, creds clinicapi.Credentials) (string, error)
	Profile(ctx context.Context, creds clinicapi.Credentials) (clinicapi.Profile, error)
}

// Resolver turns a session into an Identity.  It is the only place the role
// is derived; the route gate and the navigation shell both read its result.
type Resolver struct {
	api   IdentityAPI
	log   *zap.Logger
	group singleflight.Group
}

// NewResolver builds a Resolver.
func NewResolver(api IdentityAPI, log *zap.Logger) *Resolver {
	if api == nil {
		panic("nil api passed to authz.NewResolver")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{api: api, log: log}
}

// Cached returns the identity sealed in the session, if both the profile
// summary and the user type decode.  Undecodable entries are evicted.
func (r *Resolver) Cached(sess *session.Session) (Identity, bool) {
	raw, err := sess.GetSealed(session.KeyProfile)
	if err != nil {
		r.logDecode(sess, session.KeyProfile, err)
		return Identity{}, false
	}
	var sum Summary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		r.logDecode(sess, session.KeyProfile, err)
		sess.Remove(session.KeyProfile)
		return Identity{}, false
	}
	ut, err := sess.GetSealed(session.KeyUserType)
	if err != nil {
		r.logDecode(sess, session.KeyUserType, err)
		return Identity{}, false
	}
	return Identity{Role: ParseRole(ut), Summary: sum}, true
}

// CachedRole returns only the role, for callers that must not touch the
// network.
func (r *Resolver) CachedRole(sess *session.Session) (Role, bool) {
	ut, err := sess.GetSealed(session.KeyUserType)
	if err != nil {
		r.logDecode(sess, session.KeyUserType, err)
		return RoleUnknown, false
	}
	return ParseRole(ut), true
}

// Resolve returns the cached identity or asks the API for it and caches
// the answer.  Concurrent resolutions for one session share a single pair
// of API calls.
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) (Identity, error) {
	if id, ok := r.Cached(sess); ok {
		return id, nil
	}
	creds := Credentials(sess)
	v, err, _ := r.group.Do(sess.ID(), func() (interface{}, error) {
		return r.fetch(ctx, creds)
	})
	if err != nil {
		return Identity{}, err
	}
	f := v.(fetched)

	if err := sess.SetSealed(session.KeyUserType, f.userType); err != nil {
		return Identity{}, err
	}
	b, err := json.Marshal(f.summary)
	if err != nil {
		return Identity{}, fmt.Errorf("authz: encode summary: %w", err)
	}
	if err := sess.SetSealed(session.KeyProfile, string(b)); err != nil {
		return Identity{}, err
	}
	return Identity{Role: ParseRole(f.userType), Summary: f.summary}, nil
}

type fetched struct {
	userType string
	summary  Summary
}

func (r *Resolver) fetch(ctx context.Context, creds clinicapi.Credentials) (fetched, error) {
	ut, err := r.api.Verify(ctx, creds)
	if err != nil {
		return fetched{}, fmt.Errorf("authz: verify: %w", err)
	}
	prof, err := r.api.Profile(ctx, creds)
	switch {
	case errors.Is(err, clinicapi.ErrRejected):
		return fetched{userType: ut, summary: UnknownSummary}, nil
	case err != nil:
		return fetched{}, fmt.Errorf("authz: profile: %w", err)
	}
	return fetched{userType: ut, summary: SummaryFromProfile(prof)}, nil
}

// SummaryFromProfile picks the names that match the profile's user table.
func SummaryFromProfile(p clinicapi.Profile) Summary {
	switch p.TypeTable {
	case "doctor":
		return Summary{FirstName: p.DoctorFirstName, LastName: p.DoctorLastName, RoleLabel: "Doctor"}
	case "patient":
		return Summary{FirstName: p.PatientFirstName, LastName: p.PatientLastName, RoleLabel: "Patient"}
	}
	return Summary{
		FirstName: firstNonEmpty(p.DoctorFirstName, p.PatientFirstName, "Unknown"),
		LastName:  firstNonEmpty(p.DoctorLastName, p.PatientLastName, "Unknown"),
		RoleLabel: firstNonEmpty(p.TypeTable, "Unknown"),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *Resolver) logDecode(sess *session.Session, key string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		return
	}
	r.log.Warn("cached session value dropped",
		zap.String("session_id", sess.ID()),
		zap.String("key", key),
		zap.Error(err))
}

// Credentials returns the API cookies stored in sess, or nil.
func Credentials(sess *session.Session) clinicapi.Credentials {
	raw, err := sess.GetSealed(session.KeyAPICookies)
	if err != nil {
		return nil
	}
	creds, err := clinicapi.DecodeCredentials(raw)
	if err != nil {
		sess.Remove(session.KeyAPICookies)
		return nil
	}
	return creds
}

// StoreCredentials seals the API cookies into sess.
func StoreCredentials(sess *session.Session, creds clinicapi.Credentials) error {
	raw, err := creds.Encode()
	if err != nil {
		return fmt.Errorf("authz: encode credentials: %w", err)
	}
	return sess.SetSealed(session.KeyAPICookies, raw)
}
