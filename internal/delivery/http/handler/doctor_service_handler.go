package handler

import (
	"net/http"

	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/usecase"
	"github.com/minervamed/clinic-scheduler/pkg/response"
	"github.com/minervamed/clinic-scheduler/pkg/validator"

	"github.com/gorilla/mux"
)

type DoctorServiceHandler struct {
	doctorServiceUsecase usecase.DoctorServiceUsecase
	validator            *validator.CustomValidator
}

func NewDoctorServiceHandler(doctorServiceUsecase usecase.DoctorServiceUsecase, validator *validator.CustomValidator) *DoctorServiceHandler {
	return &DoctorServiceHandler{
		doctorServiceUsecase: doctorServiceUsecase,
		validator:            validator,
	}
}

func (h *DoctorServiceHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.doctorServiceUsecase.GetServices(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get services")
		return
	}

	response.Success(w, http.StatusOK, "Services retrieved successfully", services)
}

func (h *DoctorServiceHandler) GetMyServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.doctorServiceUsecase.GetMyServices(r.Context())
	if err != nil {
		writeError(w, err, "Failed to get services")
		return
	}

	response.Success(w, http.StatusOK, "Services retrieved successfully", services)
}

func (h *DoctorServiceHandler) SaveServices(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveServicesRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	services, err := h.doctorServiceUsecase.SaveServices(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to save services")
		return
	}

	response.Success(w, http.StatusOK, "Services saved successfully", services)
}
