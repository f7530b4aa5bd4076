// Package clinicapi is the portal's client for the remote clinic REST API.
// Every call forwards the caller's API cookies; responses use a JSON
// envelope {"status": bool, "data": ..., "message": ...}, except for list
// endpoints that return a bare array, which is read as a successful envelope.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Paths lists the endpoint paths of the clinic API.  DoctorByName and
// DoctorBySpecialty are prefixes the escaped query is appended to;
// DoctorAvailability contains an "{id}" placeholder.
type Paths struct {
	Login                string
	Register             string
	Verify               string
	Logout               string
	Profile              string
	PatientProfileUpdate string
	DoctorProfileUpdate  string
	DoctorByName         string
	DoctorBySpecialty    string
	DoctorAvailability   string
	MyAvailability       string
	PatientAppointments  string
	DoctorSchedule       string
	AppointmentCreate    string
}

// DefaultPaths returns the paths used when none are configured.
func DefaultPaths() Paths {
	return Paths{
		Login:                "/api/login",
		Register:             "/api/register",
		Verify:               "/api/verify",
		Logout:               "/api/logout",
		Profile:              "/api/profile",
		PatientProfileUpdate: "/api/profile/patient/update",
		DoctorProfileUpdate:  "/api/profile/doctor/update",
		DoctorByName:         "/api/doctor/search/name/",
		DoctorBySpecialty:    "/api/doctor/search/specialty/",
		DoctorAvailability:   "/api/doctor/{id}/availability",
		MyAvailability:       "/api/doctor/availability",
		PatientAppointments:  "/api/appointment/patient",
		DoctorSchedule:       "/api/appointment/schedule",
		AppointmentCreate:    "/api/appointment/create",
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the clinic API.  It holds no per-user state: credentials
// are passed in on every call.
type Client struct {
	rc    *resty.Client
	paths Paths
	log   *zap.Logger
	cache SearchCache
}

// New builds a Client for baseURL.
func New(baseURL string, timeout time.Duration, paths Paths, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		// Credentials belong to the caller, never to the shared client.
		SetCookieJar(nil)
	return &Client{rc: rc, paths: paths, log: log, cache: nopCache{}}
}

// WithCache sets the cache used for doctor searches.
func (c *Client) WithCache(sc SearchCache) *Client {
	if sc != nil {
		c.cache = sc
	}
	return c
}

// do performs one request and unwraps the envelope.  The raw body is
// returned so callers can read top-level fields beside the envelope.
func (c *Client) do(ctx context.Context, op, method, path string, creds Credentials, body any) (*resty.Response, envelope, error) {
	var env envelope
	req := c.rc.R().SetContext(ctx)
	if len(creds) > 0 {
		req.SetCookies(creds)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, env, &Error{Kind: ErrTransport, Op: op, Cause: err}
	}

	var decodeErr error
	if raw := bytes.TrimSpace(resp.Body()); len(raw) > 0 && raw[0] == '[' {
		// Some list endpoints (the doctor's own availability) answer with
		// the bare array instead of an envelope.
		env = envelope{Status: true, Data: json.RawMessage(raw)}
	} else {
		decodeErr = json.Unmarshal(resp.Body(), &env)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized:
		return resp, env, &Error{Kind: ErrUnauthorized, Op: op, Status: code, Message: env.Message}
	case code < 200 || code > 299:
		return resp, env, &Error{Kind: ErrStatus, Op: op, Status: code, Message: env.Message}
	}
	if decodeErr != nil {
		return resp, env, &Error{Kind: ErrDecode, Op: op, Status: resp.StatusCode(), Cause: decodeErr}
	}
	if !env.Status {
		return resp, env, &Error{Kind: ErrRejected, Op: op, Status: resp.StatusCode(), Message: env.Message}
	}
	return resp, env, nil
}

// Login exchanges credentials for API session cookies.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	resp, _, err := c.do(ctx, "login", http.MethodPost, c.paths.Login, nil, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return FromCookies(resp.Cookies()), nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	_, _, err := c.do(ctx, "register", http.MethodPost, c.paths.Register, nil, r)
	return err
}

// Verify asks the API who the credentials belong to and returns the raw
// user type string.
func (c *Client) Verify(ctx context.Context, creds Credentials) (string, error) {
	resp, _, err := c.do(ctx, "verify", http.MethodPost, c.paths.Verify, creds, struct{}{})
	if err != nil {
		return "", err
	}
	var v verifyResponse
	if err := json.Unmarshal(resp.Body(), &v); err != nil {
		return "", &Error{Kind: ErrDecode, Op: "verify", Cause: err}
	}
	return v.UserType, nil
}

// Logout ends the API session.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	_, _, err := c.do(ctx, "logout", http.MethodPost, c.paths.Logout, creds, struct{}{})
	return err
}

// Profile fetches the logged-in user's profile.
func (c *Client) Profile(ctx context.Context, creds Credentials) (Profile, error) {
	var p Profile
	resp, _, err := c.do(ctx, "profile", http.MethodGet, c.paths.Profile, creds, nil)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return p, &Error{Kind: ErrDecode, Op: "profile", Cause: err}
	}
	return p, nil
}

// UpdatePatientProfile sends only the given fields.
func (c *Client) UpdatePatientProfile(ctx context.Context, creds Credentials, fields map[string]string) error {
	_, _, err := c.do(ctx, "update patient profile", http.MethodPut, c.paths.PatientProfileUpdate, creds, fields)
	return err
}

// UpdateDoctorProfile sends only the given fields.
func (c *Client) UpdateDoctorProfile(ctx context.Context, creds Credentials, fields map[string]string) error {
	_, _, err := c.do(ctx, "update doctor profile", http.MethodPut, c.paths.DoctorProfileUpdate, creds, fields)
	return err
}

// SearchDoctorsByName lists doctors whose name matches.
func (c *Client) SearchDoctorsByName(ctx context.Context, creds Credentials, name string) Result[[]Doctor] {
	return cachedList[Doctor](ctx, c, "doctors by name", c.paths.DoctorByName+url.PathEscape(name), creds)
}

// SearchDoctorsBySpecialty lists doctors of a specialty.
func (c *Client) SearchDoctorsBySpecialty(ctx context.Context, creds Credentials, specialty string) Result[[]Doctor] {
	return cachedList[Doctor](ctx, c, "doctors by specialty", c.paths.DoctorBySpecialty+url.PathEscape(specialty), creds)
}

// DoctorAvailability lists a doctor's slots.
func (c *Client) DoctorAvailability(ctx context.Context, creds Credentials, doctorID string) Result[[]Slot] {
	path := strings.ReplaceAll(c.paths.DoctorAvailability, "{id}", url.PathEscape(doctorID))
	return fetchList[Slot](ctx, c, "doctor availability", path, creds)
}

// MyAvailability lists the logged-in doctor's own slots.
func (c *Client) MyAvailability(ctx context.Context, creds Credentials) Result[[]Slot] {
	return fetchList[Slot](ctx, c, "my availability", c.paths.MyAvailability, creds)
}

// CreateAvailability publishes a new slot for the logged-in doctor.
func (c *Client) CreateAvailability(ctx context.Context, creds Credentials, s NewSlot) error {
	_, _, err := c.do(ctx, "create availability", http.MethodPost, c.paths.MyAvailability, creds, s)
	return err
}

// PatientAppointments lists the logged-in patient's appointments.
func (c *Client) PatientAppointments(ctx context.Context, creds Credentials) Result[[]Appointment] {
	return fetchList[Appointment](ctx, c, "patient appointments", c.paths.PatientAppointments, creds)
}

// DoctorSchedule lists appointment requests addressed to the logged-in doctor.
func (c *Client) DoctorSchedule(ctx context.Context, creds Credentials) Result[[]Appointment] {
	return fetchList[Appointment](ctx, c, "doctor schedule", c.paths.DoctorSchedule, creds)
}

// CreateAppointment books availabilityID with doctorID.  Double booking is
// resolved by the API; its refusal comes back as ErrRejected.
func (c *Client) CreateAppointment(ctx context.Context, creds Credentials, doctorID, availabilityID string) error {
	_, _, err := c.do(ctx, "create appointment", http.MethodPost, c.paths.AppointmentCreate, creds,
		bookingRequest{DoctorID: doctorID, AvailabilityID: availabilityID})
	return err
}
