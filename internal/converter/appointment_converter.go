package converter

import (
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
)

const noNotesPlaceholder = "(No notes available)"

func AppointmentToResponse(a *entity.Appointment) dto.AppointmentResponse {
	return dto.AppointmentResponse{
		AppID:      a.ID,
		Date:       a.DateString(),
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Title:      a.Title,
		Notes:      a.Notes,
		Category:   a.Category,
		Status:     string(a.Status),
		DoctorID:   a.DoctorID,
		PatientID:  a.PatientID,
		DoctorName: a.DoctorName,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func AppointmentsToResponses(rows []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(rows))
	for i := range rows {
		responses[i] = AppointmentToResponse(&rows[i])
	}
	return responses
}

func AppointmentsToHistory(rows []entity.Appointment) []dto.HistoryItemResponse {
	items := make([]dto.HistoryItemResponse, len(rows))
	for i, a := range rows {
		description := a.Notes
		if description == "" {
			description = noNotesPlaceholder
		}
		items[i] = dto.HistoryItemResponse{
			AppID:       a.ID,
			Date:        a.DateString(),
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
			Category:    a.Category,
			DoctorName:  a.DoctorName,
			Description: description,
			Status:      string(a.Status),
		}
	}
	return items
}
