package handler

import (
	"net/http"
	"strconv"

	"github.com/minervamed/clinic-scheduler/internal/usecase"
	"github.com/minervamed/clinic-scheduler/pkg/response"
)

type ScheduleHandler struct {
	scheduleUsecase usecase.ScheduleUsecase
}

func NewScheduleHandler(scheduleUsecase usecase.ScheduleUsecase) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleUsecase: scheduleUsecase,
	}
}

func (h *ScheduleHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Slots retrieved successfully", h.scheduleUsecase.GetSlots())
}

func (h *ScheduleHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date, clicked := query.Get("date"), query.Get("time")
	if date == "" || clicked == "" {
		response.BadRequest(w, "date and time are required")
		return
	}

	availability, err := h.scheduleUsecase.CheckAvailability(r.Context(), date, clicked)
	if err != nil {
		writeError(w, err, "Failed to check availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availability)
}

func (h *ScheduleHandler) GetWeek(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "offset must be an integer")
			return
		}
		offset = n
	}

	week, err := h.scheduleUsecase.GetWeek(r.Context(), r.URL.Query().Get("month"), offset)
	if err != nil {
		writeError(w, err, "Failed to get week")
		return
	}

	response.Success(w, http.StatusOK, "Week retrieved successfully", week)
}
