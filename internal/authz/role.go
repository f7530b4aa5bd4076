// Package authz resolves who the current user is and decides which routes
// and navigation targets they may use.
package authz

import (
	"sort"
	"strings"
)

// Role is the user type reported by the clinic API.
type Role string

const (
	RoleUnknown Role = "unknown"
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
	RoleTeacher Role = "teacher"
)

// ParseRole normalises a raw user type; anything unrecognised is RoleUnknown.
func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RolePatient, RoleDoctor, RoleStaff, RoleTeacher:
		return r
	}
	return RoleUnknown
}

func (r Role) String() string { return string(r) }

// Summary is the identity shown in the navigation shell.
type Summary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	RoleLabel string `json:"typeName"`
}

// UnknownSummary is shown when the profile cannot be read.
var UnknownSummary = Summary{FirstName: "Unknown", LastName: "Unknown", RoleLabel: "Unknown"}

// Identity is the outcome of one resolution.
type Identity struct {
	Role    Role
	Summary Summary
}

// navAccess lists the top-level navigation targets each role may open.
var navAccess = map[Role][]string{
	RolePatient: {"/main", "/patient"},
	RoleDoctor:  {"/main", "/doctor"},
}

var defaultNav = []string{"/main"}

// NavTargets returns the navigation targets role may open.
func NavTargets(r Role) []string {
	if t, ok := navAccess[r]; ok {
		return t
	}
	return defaultNav
}

// CanNavigate reports whether role may open the navigation target path.
func CanNavigate(r Role, path string) bool {
	for _, p := range NavTargets(r) {
		if p == path {
			return true
		}
	}
	return false
}

// RoutePermissions maps a route prefix to the single role allowed to see
// it.  Prefixes not listed are open to any logged-in user.
var RoutePermissions = map[string]Role{
	"/patient": RolePatient,
	"/doctor":  RoleDoctor,
}

// prefixes is RoutePermissions' keys, longest first.
var prefixes = func() []string {
	out := make([]string, 0, len(RoutePermissions))
	for p := range RoutePermissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}()

// RequiredRole returns the role needed for path and whether one is needed.
// A prefix matches only on a path segment boundary.
func RequiredRole(path string) (Role, bool) {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return RoutePermissions[p], true
		}
	}
	return "", false
}

// Allowed reports whether role may see path.
func Allowed(r Role, path string) bool {
	need, ok := RequiredRole(path)
	return !ok || need == r
}
