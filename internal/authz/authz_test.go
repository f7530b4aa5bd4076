package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/seal"
	"github.com/iliyamo/clinic-portal/internal/session"
)

type fakeAPI struct {
	userType   string
	profile    clinicapi.Profile
	verifyErr  error
	profileErr error
	verifies   int
	profiles   int
}

func (f *fakeAPI) Verify(context.Context, clinicapi.Credentials) (string, error) {
	f.verifies++
	return f.userType, f.verifyErr
}

func (f *fakeAPI) Profile(context.Context, clinicapi.Credentials) (clinicapi.Profile, error) {
	f.profiles++
	return f.profile, f.profileErr
}

func newSession(t *testing.T, secret string) *session.Session {
	t.Helper()
	c, err := seal.New(secret)
	require.NoError(t, err)
	return session.New("sid", c)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RolePatient, ParseRole(" Patient "))
	assert.Equal(t, RoleDoctor, ParseRole("DOCTOR"))
	assert.Equal(t, RoleStaff, ParseRole("staff"))
	assert.Equal(t, RoleTeacher, ParseRole("teacher"))
	assert.Equal(t, RoleUnknown, ParseRole(""))
	assert.Equal(t, RoleUnknown, ParseRole("admin"))
}

func TestRoutePermissions(t *testing.T) {
	cases := []struct {
		path string
		role Role
		ok   bool
	}{
		{"/patient/appointment", RolePatient, true},
		{"/patient/appointment", RoleDoctor, false},
		{"/patient", RoleStaff, false},
		{"/doctor/schedule", RoleDoctor, true},
		{"/doctor/schedule", RolePatient, false},
		{"/doctor/request-attention", RoleUnknown, false},
		{"/main", RoleUnknown, true},
		{"/", RoleTeacher, true},
		{"/patients-help", RoleDoctor, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, Allowed(tc.role, tc.path), "%s as %s", tc.path, tc.role)
	}
}

func TestNavAccess(t *testing.T) {
	assert.True(t, CanNavigate(RolePatient, "/patient"))
	assert.False(t, CanNavigate(RolePatient, "/doctor"))
	assert.True(t, CanNavigate(RoleDoctor, "/doctor"))
	assert.False(t, CanNavigate(RoleDoctor, "/patient"))
	for _, r := range []Role{RoleStaff, RoleTeacher, RoleUnknown} {
		assert.True(t, CanNavigate(r, "/main"))
		assert.False(t, CanNavigate(r, "/patient"))
		assert.False(t, CanNavigate(r, "/doctor"))
	}
}

func TestResolveFetchesAndCaches(t *testing.T) {
	api := &fakeAPI{userType: "Patient", profile: clinicapi.Profile{
		TypeTable: "patient", PatientFirstName: "Mali", PatientLastName: "Suk",
	}}
	r := NewResolver(api, nil)
	sess := newSession(t, "k")

	id, err := r.Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, id.Role)
	assert.Equal(t, Summary{FirstName: "Mali", LastName: "Suk", RoleLabel: "Patient"}, id.Summary)

	again, err := r.Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, api.verifies)
	assert.Equal(t, 1, api.profiles)

	role, ok := r.CachedRole(sess)
	assert.True(t, ok)
	assert.Equal(t, RolePatient, role)
}

func TestResolveEvictsForeignCacheAndRefetches(t *testing.T) {
	stale := newSession(t, "old-secret")
	require.NoError(t, stale.SetSealed(session.KeyProfile, `{"firstName":"X"}`))
	require.NoError(t, stale.SetSealed(session.KeyUserType, "patient"))
	p, _ := stale.Get(session.KeyProfile)
	u, _ := stale.Get(session.KeyUserType)

	sess := newSession(t, "new-secret")
	sess.Set(session.KeyProfile, p)
	sess.Set(session.KeyUserType, u)

	api := &fakeAPI{userType: "doctor", profile: clinicapi.Profile{
		TypeTable: "doctor", DoctorFirstName: "Somchai", DoctorLastName: "D",
	}}
	r := NewResolver(api, nil)

	_, ok := r.Cached(sess)
	assert.False(t, ok)

	id, err := r.Resolve(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, RoleDoctor, id.Role)
	assert.Equal(t, "Doctor", id.Summary.RoleLabel)
	assert.Equal(t, 1, api.verifies)
}

func TestResolveVerifyFailure(t *testing.T) {
	api := &fakeAPI{verifyErr: &clinicapi.Error{Kind: clinicapi.ErrRejected, Op: "verify"}}
	r := NewResolver(api, nil)
	sess := newSession(t, "k")

	_, err := r.Resolve(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clinicapi.ErrRejected))
	_, ok := r.CachedRole(sess)
	assert.False(t, ok)
	assert.Equal(t, 0, api.profiles)
}

func TestResolveProfileRejectedGivesUnknownSummary(t *testing.T) {
	api := &fakeAPI{userType: "staff", profileErr: &clinicapi.Error{Kind: clinicapi.ErrRejected, Op: "profile"}}
	r := NewResolver(api, nil)

	id, err := r.Resolve(context.Background(), newSession(t, "k"))
	require.NoError(t, err)
	assert.Equal(t, RoleStaff, id.Role)
	assert.Equal(t, UnknownSummary, id.Summary)
}

func TestResolveProfileTransportFailure(t *testing.T) {
	api := &fakeAPI{userType: "patient", profileErr: &clinicapi.Error{Kind: clinicapi.ErrTransport, Op: "profile"}}
	r := NewResolver(api, nil)

	_, err := r.Resolve(context.Background(), newSession(t, "k"))
	assert.True(t, errors.Is(err, clinicapi.ErrTransport))
}

func TestSummaryFromProfileFallbacks(t *testing.T) {
	s := SummaryFromProfile(clinicapi.Profile{TypeTable: "staff", PatientLastName: "Lee"})
	assert.Equal(t, Summary{FirstName: "Unknown", LastName: "Lee", RoleLabel: "staff"}, s)

	s = SummaryFromProfile(clinicapi.Profile{})
	assert.Equal(t, UnknownSummary, s)
}

func TestCredentialsRoundTrip(t *testing.T) {
	sess := newSession(t, "k")
	assert.Nil(t, Credentials(sess))

	require.NoError(t, StoreCredentials(sess, clinicapi.Credentials{{Name: "token", Value: "abc"}}))
	creds := Credentials(sess)
	require.Len(t, creds, 1)
	assert.Equal(t, "abc", creds[0].Value)
}
