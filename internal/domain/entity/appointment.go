package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

// State transitions:
//
//	pending → confirmed → completed
//	pending → confirmed → canceled
//	pending → canceled
//	pending → completed
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCanceled, AppointmentStatusCompleted},
	AppointmentStatusConfirmed: {AppointmentStatusCanceled, AppointmentStatusCompleted},
}

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCanceled
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesOf lists every status from which next can be reached.
func SourcesOf(next AppointmentStatus) []AppointmentStatus {
	var sources []AppointmentStatus
	for _, from := range []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed} {
		if from.CanTransitionTo(next) {
			sources = append(sources, from)
		}
	}
	return sources
}

// BlockingStatuses are the statuses that occupy slots on the calendar.
// Completed and canceled appointments free their slots.
var BlockingStatuses = []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}

// Appointment is a booked block of slots between a doctor and a patient.
// Title and Notes are stored encrypted in enc_title and enc_notes.
type Appointment struct {
	ID        string            `gorm:"column:app_id;type:varchar(12);primaryKey" json:"app_id"`
	Date      time.Time         `gorm:"column:date;type:date;not null;index:idx_doc_date" json:"date"`
	StartTime string            `gorm:"column:t_start;type:varchar(5);not null" json:"start_time"`
	EndTime   string            `gorm:"column:t_stop;type:varchar(5);not null" json:"end_time"`
	Category  string            `gorm:"column:category;type:varchar(100);not null" json:"category"`
	DoctorID  uuid.UUID         `gorm:"column:doc_id;type:uuid;not null;index:idx_doc_date" json:"doctor_id"`
	PatientID uuid.UUID         `gorm:"column:reg_id;type:uuid;not null;index" json:"patient_id"`
	EncTitle  string            `gorm:"column:enc_title;type:text" json:"-"`
	EncNotes  string            `gorm:"column:enc_notes;type:text" json:"-"`
	Status    AppointmentStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Title      string `gorm:"-" json:"title"`
	Notes      string `gorm:"-" json:"notes"`
	DoctorName string `gorm:"->;column:doc_name;-:migration" json:"doctor_name,omitempty"`
}

func (Appointment) TableName() string {
	return "doc_appointments"
}

func (a *Appointment) IsConfirmed() bool {
	return a.Status == AppointmentStatusConfirmed
}

func (a *Appointment) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// IsBlocking reports whether the appointment still occupies its slots.
func (a *Appointment) IsBlocking() bool {
	return !a.Status.IsTerminal()
}

// DateString returns the appointment date as YYYY-MM-DD.
func (a *Appointment) DateString() string {
	return a.Date.Format("2006-01-02")
}

// ConfirmationLabel is the call to action shown to the patient in chat.
func (a *Appointment) ConfirmationLabel() string {
	return "Confirm Appointment: " + a.DateString() + " at " + a.StartTime
}

// AppointmentRange is a domain-level filter for calendar queries.
type AppointmentRange struct {
	From time.Time
	To   time.Time
	// BlockingOnly drops completed and canceled rows.
	BlockingOnly bool
}
