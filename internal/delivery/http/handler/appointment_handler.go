package handler

import (
	"net/http"

	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/usecase"
	"github.com/minervamed/clinic-scheduler/pkg/response"
	"github.com/minervamed/clinic-scheduler/pkg/validator"
)

// AppointmentHandler serves the calendar endpoints. Paths and JSON field
// names follow what the existing web client sends.
type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

// CreateAppointment books a block in the calling doctor's calendar
// @Summary Create appointment
// @Tags Appointments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAppointmentRequest true "Create Appointment Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAppointmentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to create appointment")
		return
	}

	message := "Appointment created successfully"
	if appointment.Clamped {
		message = "Appointment created, shortened to end at closing time"
	}
	response.Success(w, http.StatusCreated, message, appointment)
}

func (h *AppointmentHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.GetDoctorAppointments(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetPatientAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointmentUsecase.GetPatientAppointments(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

func (h *AppointmentHandler) GetPatientHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.appointmentUsecase.GetPatientHistory(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get appointment history")
		return
	}

	response.Success(w, http.StatusOK, "Appointment history retrieved successfully", history)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.AppointmentIDRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	result, err := h.appointmentUsecase.ConfirmAppointment(r.Context(), req.AppID)
	if err != nil {
		writeError(w, err, "Failed to confirm appointment")
		return
	}

	message := "Appointment confirmed successfully"
	if result.AlreadyConfirmed {
		message = "Appointment already confirmed"
	}
	response.Success(w, http.StatusOK, message, result)
}

func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelAppointmentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	result, err := h.appointmentUsecase.CancelAppointment(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment canceled successfully", result)
}

func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteAppointmentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	result, err := h.appointmentUsecase.CompleteAppointment(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", result)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateAppointmentRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.UpdateAppointmentNotes(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	var req dto.AppointmentIDRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	if err := h.appointmentUsecase.DeleteAppointment(r.Context(), req.AppID); err != nil {
		writeError(w, err, "Failed to delete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment deleted successfully", nil)
}

func (h *AppointmentHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appId")
	if appID == "" {
		response.BadRequest(w, "appId is required")
		return
	}

	status, err := h.appointmentUsecase.CheckStatus(r.Context(), appID)
	if err != nil {
		writeError(w, err, "Failed to check appointment status")
		return
	}

	response.Success(w, http.StatusOK, "Appointment status retrieved successfully", status)
}

func (h *AppointmentHandler) CountToday(w http.ResponseWriter, r *http.Request) {
	count, err := h.appointmentUsecase.CountToday(r.Context())
	if err != nil {
		writeError(w, err, "Failed to count appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments counted successfully", count)
}

func (h *AppointmentHandler) GetPatientName(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get("patientId")
	if patientID == "" {
		response.BadRequest(w, "patientId is required")
		return
	}

	name, err := h.appointmentUsecase.GetPatientName(r.Context(), patientID)
	if err != nil {
		writeError(w, err, "Failed to get patient name")
		return
	}

	response.Success(w, http.StatusOK, "Patient retrieved successfully", name)
}
