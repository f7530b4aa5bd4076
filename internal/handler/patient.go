package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/middleware"
	"github.com/iliyamo/clinic-portal/internal/queue"
	"github.com/iliyamo/clinic-portal/internal/session"
	"github.com/iliyamo/clinic-portal/internal/view"
)

const (
	selectDoctorPath = "/patient/search/select-doctor"
	appointmentsPath = "/patient/appointment"

	msgSearchEmpty    = "กรุณากรอกสาขาแพทย์หรือชื่อแพทย์ก่อนค้นหา"
	msgPickSlot       = "กรุณาเลือกเวลานัด"
	msgBooked         = "นัดแพทย์เรียบร้อยแล้ว"
	msgBookingError   = "เกิดข้อผิดพลาด: "
	msgBookingFailed  = "เกิดข้อผิดพลาดในการนัดแพทย์"
	msgProfileSaved   = "บันทึกข้อมูลสำเร็จ"
	msgProfileRefused = "ไม่สามารถบันทึกข้อมูลได้"
	msgProfileFailed  = "เกิดข้อผิดพลาดในการบันทึกข้อมูล"
	msgNothingToSave  = "กรุณากรอกข้อมูลที่ต้องการแก้ไขก่อนบันทึก"
)

// PatientAPI is the part of the clinic API the patient pages use.
type PatientAPI interface {
	Profile(ctx context.Context, creds clinicapi.Credentials) (clinicapi.Profile, error)
	UpdatePatientProfile(ctx context.Context, creds clinicapi.Credentials, fields map[string]string) error
	SearchDoctorsByName(ctx context.Context, creds clinicapi.Credentials, name string) clinicapi.Result[[]clinicapi.Doctor]
	SearchDoctorsBySpecialty(ctx context.Context, creds clinicapi.Credentials, specialty string) clinicapi.Result[[]clinicapi.Doctor]
	DoctorAvailability(ctx context.Context, creds clinicapi.Credentials, doctorID string) clinicapi.Result[[]clinicapi.Slot]
	PatientAppointments(ctx context.Context, creds clinicapi.Credentials) clinicapi.Result[[]clinicapi.Appointment]
	CreateAppointment(ctx context.Context, creds clinicapi.Credentials, doctorID, availabilityID string) error
}

// PatientHandler serves everything under /patient.
type PatientHandler struct {
	base
	API    PatientAPI
	Events queue.Publisher
}

func NewPatientHandler(api PatientAPI, events queue.Publisher, log *zap.Logger) *PatientHandler {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &PatientHandler{base: newBase(log), API: api, Events: events}
}

type searchForm struct {
	Specialty  string
	DoctorName string
}

// Search shows the doctor search form.  A submitted form with both fields
// empty shows a modal; otherwise it moves on to the doctor list.
func (h *PatientHandler) Search(c echo.Context) error {
	f := searchForm{
		Specialty:  strings.TrimSpace(c.QueryParam("specialty")),
		DoctorName: strings.TrimSpace(c.QueryParam("doctorName")),
	}
	if c.QueryParam("go") == "" {
		return h.render(c, "search.html", h.page(c, "ค้นหาแพทย์", f))
	}
	if f.Specialty == "" && f.DoctorName == "" {
		p := h.page(c, "ค้นหาแพทย์", f)
		p.Modal = view.Alert(msgSearchEmpty)
		return h.render(c, "search.html", p)
	}
	q := url.Values{}
	if f.Specialty != "" {
		q.Set("specialty", f.Specialty)
	}
	if f.DoctorName != "" {
		q.Set("doctorName", f.DoctorName)
	}
	return c.Redirect(http.StatusFound, selectDoctorPath+"?"+q.Encode())
}

type doctorRow struct {
	clinicapi.Doctor
	SelectURL string
}

type slotOption struct {
	clinicapi.Slot
	URL    string
	Chosen bool
}

type bookingPanel struct {
	Doctor   clinicapi.Doctor
	Slots    []slotOption
	SlotID   string
	Chosen   *clinicapi.Slot
	CloseURL string
	BackURL  string
}

type selectDoctorPage struct {
	table[doctorRow]
	Booking *bookingPanel
}

// SelectDoctor lists the doctors matching the search.  A name search takes
// precedence over a specialty search.  ?doctor= opens the booking panel
// with that doctor's free slots and ?slot= marks the chosen one; the
// confirm button stays disabled until a slot is chosen.
func (h *PatientHandler) SelectDoctor(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	cr := creds(c)

	var res clinicapi.Result[[]clinicapi.Doctor]
	switch name, specialty := strings.TrimSpace(c.QueryParam("doctorName")), strings.TrimSpace(c.QueryParam("specialty")); {
	case name != "":
		res = h.API.SearchDoctorsByName(ctx, cr, name)
	case specialty != "":
		res = h.API.SearchDoctorsBySpecialty(ctx, cr, specialty)
	default:
		res = clinicapi.Result[[]clinicapi.Doctor]{Data: []clinicapi.Doctor{}}
	}

	reqURL := c.Request().URL
	rows := make([]doctorRow, len(res.Data))
	for i, d := range res.Data {
		rows[i] = doctorRow{Doctor: d, SelectURL: withQuery(reqURL, map[string]string{"doctor": d.ID.String(), "slot": ""})}
	}
	data := selectDoctorPage{table: newTable(c, clinicapi.Result[[]doctorRow]{Data: rows, Err: res.Err})}

	if id := c.QueryParam("doctor"); id != "" {
		for _, d := range res.Data {
			if d.ID.String() == id {
				data.Booking = h.bookingPanel(ctx, cr, reqURL, d, c.QueryParam("slot"))
				break
			}
		}
	}
	return h.render(c, "select_doctor.html", h.page(c, "เลือกแพทย์", data))
}

func (h *PatientHandler) bookingPanel(ctx context.Context, cr clinicapi.Credentials, reqURL *url.URL, d clinicapi.Doctor, slotID string) *bookingPanel {
	slots := h.API.DoctorAvailability(ctx, cr, d.ID.String())
	panel := &bookingPanel{
		Doctor:   d,
		Slots:    make([]slotOption, 0, len(slots.Data)),
		CloseURL: withQuery(reqURL, map[string]string{"doctor": "", "slot": ""}),
		BackURL:  reqURL.RequestURI(),
	}
	for i, s := range slots.Data {
		chosen := slotID != "" && s.ID.String() == slotID
		if chosen {
			panel.SlotID = slotID
			panel.Chosen = &slots.Data[i]
		}
		panel.Slots = append(panel.Slots, slotOption{
			Slot:   s,
			URL:    withQuery(reqURL, map[string]string{"slot": s.ID.String()}),
			Chosen: chosen,
		})
	}
	return panel
}

// withQuery copies u with the given parameters set; an empty value deletes
// the parameter.
func withQuery(u *url.URL, set map[string]string) string {
	cp := *u
	q := cp.Query()
	for k, v := range set {
		if v == "" {
			q.Del(k)
		} else {
			q.Set(k, v)
		}
	}
	cp.RawQuery = q.Encode()
	return cp.RequestURI()
}

type bookForm struct {
	DoctorID       string `form:"doctorId"`
	AvailabilityID string `form:"availabilityId"`
	Back           string `form:"back"`
	DoctorName     string `form:"doctorName"`
	Date           string `form:"date"`
	StartTime      string `form:"startTime"`
	EndTime        string `form:"endTime"`
}

// Book submits the chosen slot.  Success goes to the appointment list and
// publishes an appointment event; any failure returns to the doctor list
// with a message.
func (h *PatientHandler) Book(c echo.Context) error {
	var f bookForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	back := localURL(f.Back, "/patient/search")
	if !strings.HasPrefix(back, selectDoctorPath) {
		back = "/patient/search"
	}
	if strings.TrimSpace(f.AvailabilityID) == "" || strings.TrimSpace(f.DoctorID) == "" {
		return flashRedirect(c, msgPickSlot, back)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	err := h.API.CreateAppointment(ctx, creds(c), f.DoctorID, f.AvailabilityID)
	switch {
	case errors.Is(err, clinicapi.ErrRejected):
		return flashRedirect(c, msgBookingError+clinicapi.Message(err), back)
	case err != nil:
		h.Log.Warn("booking failed", zap.String("availability_id", f.AvailabilityID), zap.Error(err))
		return flashRedirect(c, msgBookingFailed, back)
	}

	ev := queue.AppointmentBookedEvent{
		DoctorID:       f.DoctorID,
		DoctorName:     strings.TrimSpace(f.DoctorName),
		AvailabilityID: f.AvailabilityID,
		Date:           f.Date,
		StartTime:      f.StartTime,
		EndTime:        f.EndTime,
		BookedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if s := session.FromContext(c); s != nil {
		ev.SessionID = s.ID()
	}
	pubCtx, pubCancel := context.WithTimeout(context.Background(), 3*time.Second)
	_ = h.Events.PublishAppointmentBooked(pubCtx, ev)
	pubCancel()

	return flashRedirect(c, msgBooked, appointmentsPath)
}

// Appointments lists the patient's appointments.
func (h *PatientHandler) Appointments(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	res := h.API.PatientAppointments(ctx, creds(c))
	return h.render(c, "appointments.html", h.page(c, "สถานะการนัดของฉัน", newTable(c, res)))
}

type patientProfileForm struct {
	FirstName      string `form:"Patient_FirstName" validate:"omitempty,max=100"`
	LastName       string `form:"Patient_LastName" validate:"omitempty,max=100"`
	Phone          string `form:"Patient_Phone" validate:"omitempty,number,min=8,max=20"`
	Gender         string `form:"Patient_Gender" validate:"omitempty,oneof=male female"`
	MedicalHistory string `form:"Patient_MedicalHistory" validate:"omitempty,max=1023"`
}

var patientProfileMessages = map[string]string{
	"FirstName":      "ชื่อ ต้องไม่เกิน 100 ตัวอักษร",
	"LastName":       "นามสกุล ต้องไม่เกิน 100 ตัวอักษร",
	"Phone":          "เบอร์โทร ต้องเป็นตัวเลข 8-20 หลัก",
	"Gender":         "ค่าเพศไม่ถูกต้อง",
	"MedicalHistory": "ประวัติการรักษายาวเกิน 1023 ตัวอักษร",
}

func (f *patientProfileForm) normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Gender = normalizeGender(f.Gender)
	f.MedicalHistory = strings.TrimSpace(f.MedicalHistory)
}

// fields returns the non-empty fields keyed by their API names.
func (f patientProfileForm) fields() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"Patient_FirstName":      f.FirstName,
		"Patient_LastName":       f.LastName,
		"Patient_Phone":          f.Phone,
		"Patient_Gender":         f.Gender,
		"Patient_MedicalHistory": f.MedicalHistory,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// normalizeGender maps the stored gender onto the form's two values.  Thai
// labels are accepted; any other non-empty value is kept so validation can
// reject it.
func normalizeGender(raw string) string {
	g := strings.ToLower(strings.TrimSpace(raw))
	switch g {
	case "male", "ชาย":
		return "male"
	case "female", "หญิง":
		return "female"
	}
	return g
}

type profilePage[F any] struct {
	Profile clinicapi.Profile
	Found   bool
	Editing bool
	Form    F
}

// Profile shows the patient profile; ?edit=1 shows the edit form.  A 401
// from the API sends the user to log in again.
func (h *PatientHandler) Profile(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	prof, err := h.API.Profile(ctx, creds(c))
	if errors.Is(err, clinicapi.ErrUnauthorized) {
		return c.Redirect(http.StatusFound, middleware.LoginPath)
	}
	if err != nil {
		h.Log.Warn("profile fetch failed", zap.Error(err))
	}
	data := profilePage[patientProfileForm]{
		Profile: prof,
		Found:   err == nil,
		Editing: c.QueryParam("edit") != "",
		Form: patientProfileForm{
			FirstName:      prof.PatientFirstName,
			LastName:       prof.PatientLastName,
			Phone:          prof.PatientPhone,
			Gender:         storedGender(prof.PatientGender),
			MedicalHistory: prof.PatientMedicalHistory,
		},
	}
	return h.render(c, "patient_profile.html", h.page(c, "โปรไฟล์ของคุณ", data))
}

// storedGender reads a gender for the edit form: male or ชาย is male,
// anything else non-empty is female.
func storedGender(raw string) string {
	switch g := normalizeGender(raw); g {
	case "":
		return ""
	case "male":
		return "male"
	}
	return "female"
}

// UpdateProfile validates the edit form and sends only the filled fields.
func (h *PatientHandler) UpdateProfile(c echo.Context) error {
	var f patientProfileForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.normalize()

	fail := func(msg string) error {
		p := h.page(c, "โปรไฟล์ของคุณ", profilePage[patientProfileForm]{Found: true, Editing: true, Form: f})
		p.Modal = view.Alert(msg)
		return h.render(c, "patient_profile.html", p)
	}
	if err := c.Validate(&f); err != nil {
		field, _ := invalidField(err)
		return fail(patientProfileMessages[field])
	}
	fields := f.fields()
	if len(fields) == 0 {
		return fail(msgNothingToSave)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	if err := h.API.UpdatePatientProfile(ctx, creds(c), fields); err != nil {
		return fail(updateMessage(err))
	}
	return flashRedirect(c, msgProfileSaved, "/patient/profile")
}

func updateMessage(err error) string {
	m := clinicapi.Message(err)
	switch {
	case m != "":
		return m
	case errors.Is(err, clinicapi.ErrRejected):
		return msgProfileRefused
	}
	return msgProfileFailed
}
