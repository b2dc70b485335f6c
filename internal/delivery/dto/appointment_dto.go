package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest keeps the field names the calendar client sends.
type CreateAppointmentRequest struct {
	Date           string `json:"date" validate:"required,isodate"`
	StartTime      string `json:"t_start" validate:"required,clock"`
	EndTime        string `json:"t_stop" validate:"required,clock"`
	PatientID      string `json:"patientId" validate:"required,uuid"`
	Title          string `json:"name" validate:"required,max=255"`
	Notes          string `json:"notes" validate:"omitempty,max=5000"`
	ConversationID string `json:"conversationId" validate:"omitempty,max=128"`
}

type AppointmentIDRequest struct {
	AppID string `json:"appId" validate:"required,len=12"`
}

// CancelAppointmentRequest: patients must send Confirm=true.
type CancelAppointmentRequest struct {
	AppID   string `json:"appId" validate:"required,len=12"`
	Confirm bool   `json:"confirm"`
}

type CompleteAppointmentRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,len=12"`
	Description   string `json:"description" validate:"max=5000"`
}

type UpdateAppointmentRequest struct {
	AppID string `json:"appId" validate:"required,len=12"`
	Notes string `json:"notes" validate:"max=5000"`
}

// Response DTOs

type CreateAppointmentResponse struct {
	AppID            string `json:"appId"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Minutes          int    `json:"minutes"`
	RequestedMinutes int    `json:"requested_minutes"`
	Clamped          bool   `json:"clamped"`
	MessageID        string `json:"message_id,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

type AppointmentResponse struct {
	AppID      string    `json:"app_id"`
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	DoctorName string    `json:"doctor_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

// HistoryItemResponse is one completed visit in a patient's history.
type HistoryItemResponse struct {
	AppID       string `json:"app_id"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Category    string `json:"category"`
	DoctorName  string `json:"doctor_name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type LifecycleResponse struct {
	AppID            string `json:"appId"`
	Status           string `json:"status"`
	AlreadyConfirmed bool   `json:"already_confirmed,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

type StatusResponse struct {
	AppID  string `json:"appId"`
	Status string `json:"status"`
}

type CountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PatientNameResponse struct {
	PatientID uuid.UUID `json:"patient_id"`
	FullName  string    `json:"fullName"`
}
