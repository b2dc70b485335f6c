package converter

import (
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func DoctorProfileToResponse(p *entity.DoctorProfile) *dto.DoctorProfileResponse {
	if p == nil {
		return nil
	}

	response := &dto.DoctorProfileResponse{
		Specialization: p.Specialization,
		Biography:      p.Biography,
	}
	if p.Office.Code != "" {
		response.Office = OfficeToResponse(&p.Office)
	}
	return response
}

func OfficeToResponse(o *entity.Office) *dto.OfficeResponse {
	return &dto.OfficeResponse{
		OfficeID: o.Code,
		Name:     o.Name,
		County:   o.County,
		City:     o.City,
		Address:  o.Address,
	}
}

// ServicesToResponse also sums the list so the client can show a total.
func ServicesToResponse(doctorID uuid.UUID, services []entity.DoctorService) *dto.ServiceListResponse {
	items := make([]dto.ServiceResponse, len(services))
	total := decimal.Zero
	for i, s := range services {
		items[i] = dto.ServiceResponse{
			ID:       s.ID,
			Name:     s.Name,
			Price:    s.Price,
			Position: s.Position,
		}
		total = total.Add(s.Price)
	}

	return &dto.ServiceListResponse{
		DoctorID: doctorID,
		Services: items,
		Total:    total,
	}
}
