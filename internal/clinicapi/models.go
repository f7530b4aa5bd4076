package clinicapi

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Text decodes a JSON string or number into a string.  The clinic API is
// not consistent about whether identifiers and status codes are numeric.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Flag decodes a JSON boolean that the API may also send as 0/1 or "0"/"1"
// (the database column is a TINYINT).
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		var v bool
		if err2 := json.Unmarshal(b, &v); err2 != nil {
			return err
		}
		*f = Flag(v)
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "", "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		return &json.UnmarshalTypeError{Value: string(b), Type: reflect.TypeOf(Flag(false))}
	}
	return nil
}

// Doctor is one row of a doctor search.
type Doctor struct {
	ID        Text   `json:"Doctor_ID"`
	FirstName string `json:"Doctor_FirstName"`
	LastName  string `json:"Doctor_LastName"`
	Phone     string `json:"Doctor_Phone"`
	Specialty string `json:"Specialty_Name"`
	Email     string `json:"Users_Email"`
}

// Slot is a bookable availability window published by a doctor.
type Slot struct {
	ID        Text   `json:"Availability_ID"`
	Date      string `json:"Availability_Date"`
	StartTime string `json:"Availability_StartTime"`
	EndTime   string `json:"Availability_EndTime"`
	Booked    Flag   `json:"Availability_IsBooked"`
}

// NewSlot is the body for creating availability.
type NewSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Appointment is read-only from the portal's side.  The patient list carries
// doctor fields and the doctor schedule carries patient fields.
type Appointment struct {
	ID                Text   `json:"Appointment_ID"`
	DoctorFirstName   string `json:"Doctor_FirstName"`
	DoctorLastName    string `json:"Doctor_LastName"`
	PatientFirstName  string `json:"Patient_FirstName"`
	PatientLastName   string `json:"Patient_LastName"`
	Specialty         string `json:"Specialty_Name"`
	Date              string `json:"Availability_Date"`
	StartTime         string `json:"Availability_StartTime"`
	EndTime           string `json:"Availability_EndTime"`
	StatusCode        Text   `json:"status"`
	StatusName        string `json:"AppointmentStatus_Name"`
	StatusDescription string `json:"AppointmentStatus_Description"`
}

// DoctorName joins the doctor's names.
func (a Appointment) DoctorName() string {
	return strings.TrimSpace(a.DoctorFirstName + " " + a.DoctorLastName)
}

// PatientName joins the patient's names.
func (a Appointment) PatientName() string {
	return strings.TrimSpace(a.PatientFirstName + " " + a.PatientLastName)
}

// Profile is the flat profile document returned for the logged-in user.
// Which half is filled depends on TypeTable.
type Profile struct {
	TypeTable string `json:"Users_Type_Table"`
	Email     string `json:"Users_Email"`

	DoctorFirstName string `json:"Doctor_FirstName"`
	DoctorLastName  string `json:"Doctor_LastName"`
	DoctorPhone     string `json:"Doctor_Phone"`
	Specialty       string `json:"Specialty_Name"`

	PatientFirstName      string `json:"Patient_FirstName"`
	PatientLastName       string `json:"Patient_LastName"`
	PatientPhone          string `json:"Patient_Phone"`
	PatientGender         string `json:"Patient_Gender"`
	PatientMedicalHistory string `json:"Patient_MedicalHistory"`
}

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Email     string `json:"Users_Email"`
	Password  string `json:"Users_Password"`
	UserType  string `json:"Users_Type"`
	FirstName string `json:"First_Name"`
	LastName  string `json:"Last_Name"`
}

type loginRequest struct {
	Email    string `json:"Users_Email"`
	Password string `json:"Users_Password"`
}

type bookingRequest struct {
	DoctorID       string `json:"doctorId"`
	AvailabilityID string `json:"availabilityId"`
}

type verifyResponse struct {
	UserType string `json:"Users_Type"`
}
