package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/middleware"
	"github.com/iliyamo/clinic-portal/internal/view"
)

const (
	schedulePath = "/doctor/schedule"

	msgSlotFieldsMissing = "กรุณากรอกทุกช่อง"
	msgSlotBadFormat     = "รูปแบบวันที่หรือเวลาไม่ถูกต้อง"
	msgSlotInPast        = "วันที่ต้องไม่เป็นวันในอดีต"
	msgSlotOrder         = "เวลาเริ่มต้องน้อยกว่าเวลาสิ้นสุด"
	msgSlotAdded         = "เพิ่มเวลาว่างสำเร็จ"
	msgSlotFailed        = "เกิดข้อผิดพลาดในการเพิ่มเวลาว่าง"
)

// DoctorAPI is the part of the clinic API the doctor pages use.
type DoctorAPI interface {
	Profile(ctx context.Context, creds clinicapi.Credentials) (clinicapi.Profile, error)
	UpdateDoctorProfile(ctx context.Context, creds clinicapi.Credentials, fields map[string]string) error
	MyAvailability(ctx context.Context, creds clinicapi.Credentials) clinicapi.Result[[]clinicapi.Slot]
	CreateAvailability(ctx context.Context, creds clinicapi.Credentials, s clinicapi.NewSlot) error
	DoctorSchedule(ctx context.Context, creds clinicapi.Credentials) clinicapi.Result[[]clinicapi.Appointment]
}

// DoctorHandler serves everything under /doctor.
type DoctorHandler struct {
	base
	API DoctorAPI
	now func() time.Time
}

func NewDoctorHandler(api DoctorAPI, log *zap.Logger) *DoctorHandler {
	return &DoctorHandler{base: newBase(log), API: api, now: time.Now}
}

// RequestAttention lists the appointment requests addressed to the doctor.
func (h *DoctorHandler) RequestAttention(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	res := h.API.DoctorSchedule(ctx, creds(c))
	return h.render(c, "request_attention.html", h.page(c, "กำหนดการพบผู้ป่วย", newTable(c, res)))
}

type slotForm struct {
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `form:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `form:"endTime" validate:"required,datetime=15:04"`
}

type schedulePage struct {
	table[clinicapi.Slot]
	Form slotForm
}

// Schedule lists the doctor's availability with the form to add a slot.
func (h *DoctorHandler) Schedule(c echo.Context) error {
	return h.renderSchedule(c, slotForm{}, "")
}

func (h *DoctorHandler) renderSchedule(c echo.Context, f slotForm, modal string) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	res := h.API.MyAvailability(ctx, creds(c))
	p := h.page(c, "จัดการตารางเวลา", schedulePage{table: newTable(c, res), Form: f})
	if modal != "" {
		p.Modal = view.Alert(modal)
	}
	return h.render(c, "schedule.html", p)
}

// CreateSlot validates and publishes a new availability slot.  All fields
// are required, the date may not be in the past and the start must come
// before the end.  On success the list is fetched again.
func (h *DoctorHandler) CreateSlot(c echo.Context) error {
	var f slotForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.Date = strings.TrimSpace(f.Date)
	f.StartTime = strings.TrimSpace(f.StartTime)
	f.EndTime = strings.TrimSpace(f.EndTime)

	if msg := h.checkSlot(c, f); msg != "" {
		return h.renderSchedule(c, f, msg)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	err := h.API.CreateAvailability(ctx, creds(c), clinicapi.NewSlot{Date: f.Date, StartTime: f.StartTime, EndTime: f.EndTime})
	if err != nil {
		h.Log.Warn("create availability failed", zap.String("date", f.Date), zap.Error(err))
		msg := msgSlotFailed
		if m := clinicapi.Message(err); m != "" && errors.Is(err, clinicapi.ErrRejected) {
			msg = m
		}
		return h.renderSchedule(c, f, msg)
	}
	return flashRedirect(c, msgSlotAdded, schedulePath)
}

func (h *DoctorHandler) checkSlot(c echo.Context, f slotForm) string {
	if err := c.Validate(&f); err != nil {
		if _, tag := invalidField(err); tag == "required" {
			return msgSlotFieldsMissing
		}
		return msgSlotBadFormat
	}
	// Compare calendar days in Bangkok, where the doctor works.
	day, _ := time.ParseInLocation("2006-01-02", f.Date, view.Bangkok)
	now := h.now().In(view.Bangkok)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, view.Bangkok)
	if day.Before(today) {
		return msgSlotInPast
	}
	// HH:MM strings order the same way as the times they name.
	if f.StartTime >= f.EndTime {
		return msgSlotOrder
	}
	return ""
}

type doctorProfileForm struct {
	FirstName string `form:"Doctor_FirstName" validate:"omitempty,max=100"`
	LastName  string `form:"Doctor_LastName" validate:"omitempty,max=100"`
	Phone     string `form:"Doctor_Phone" validate:"omitempty,number,min=8,max=20"`
}

var doctorProfileMessages = map[string]string{
	"FirstName": "ชื่อ ต้องไม่เกิน 100 ตัวอักษร",
	"LastName":  "นามสกุล ต้องไม่เกิน 100 ตัวอักษร",
	"Phone":     "เบอร์โทร ต้องเป็นตัวเลข 8-20 หลัก",
}

func (f doctorProfileForm) fields() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"Doctor_FirstName": f.FirstName,
		"Doctor_LastName":  f.LastName,
		"Doctor_Phone":     f.Phone,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Profile shows the doctor profile; ?edit=1 shows the edit form.
func (h *DoctorHandler) Profile(c echo.Context) error {
	ctx, cancel := apiContext(c)
	defer cancel()
	prof, err := h.API.Profile(ctx, creds(c))
	if errors.Is(err, clinicapi.ErrUnauthorized) {
		return c.Redirect(http.StatusFound, middleware.LoginPath)
	}
	if err != nil {
		h.Log.Warn("profile fetch failed", zap.Error(err))
	}
	data := profilePage[doctorProfileForm]{
		Profile: prof,
		Found:   err == nil,
		Editing: c.QueryParam("edit") != "",
		Form: doctorProfileForm{
			FirstName: prof.DoctorFirstName,
			LastName:  prof.DoctorLastName,
			Phone:     prof.DoctorPhone,
		},
	}
	return h.render(c, "doctor_profile.html", h.page(c, "โปรไฟล์ของคุณ", data))
}

// UpdateProfile validates the edit form and sends only the filled fields.
func (h *DoctorHandler) UpdateProfile(c echo.Context) error {
	var f doctorProfileForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Phone = strings.TrimSpace(f.Phone)

	fail := func(msg string) error {
		p := h.page(c, "โปรไฟล์ของคุณ", profilePage[doctorProfileForm]{Found: true, Editing: true, Form: f})
		p.Modal = view.Alert(msg)
		return h.render(c, "doctor_profile.html", p)
	}
	if err := c.Validate(&f); err != nil {
		field, _ := invalidField(err)
		return fail(doctorProfileMessages[field])
	}
	fields := f.fields()
	if len(fields) == 0 {
		return fail(msgNothingToSave)
	}

	ctx, cancel := apiContext(c)
	defer cancel()
	if err := h.API.UpdateDoctorProfile(ctx, creds(c), fields); err != nil {
		return fail(updateMessage(err))
	}
	return flashRedirect(c, msgProfileSaved, "/doctor/profile")
}
