// Package queue carries appointment events over RabbitMQ.  The portal
// publishes one event per successful booking; the consumer appends each
// event to an audit log.
package queue

// AppointmentBookedEvent is published after the API accepts a booking.  It
// holds what the portal knew at booking time, so consumers never need to
// call the clinic API back.
type AppointmentBookedEvent struct {
	SessionID      string `json:"session_id"`
	DoctorID       string `json:"doctor_id"`
	DoctorName     string `json:"doctor_name"`
	AvailabilityID string `json:"availability_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	BookedAt       string `json:"booked_at"`
}
