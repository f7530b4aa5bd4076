package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PageHandler serves the static pages: the dashboard and the two role menus.
type PageHandler struct {
	base
}

func NewPageHandler(log *zap.Logger) *PageHandler {
	return &PageHandler{base: newBase(log)}
}

// Main is the dashboard, served at "/" and "/main".
func (h *PageHandler) Main(c echo.Context) error {
	return h.render(c, "main.html", h.page(c, "หน้าหลัก", nil))
}

func (h *PageHandler) PatientMenu(c echo.Context) error {
	return h.render(c, "patient_menu.html", h.page(c, "เฉพาะผู้ป่วย", nil))
}

func (h *PageHandler) DoctorMenu(c echo.Context) error {
	return h.render(c, "doctor_menu.html", h.page(c, "เฉพาะแพทย์", nil))
}
