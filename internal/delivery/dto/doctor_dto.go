package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

// ServiceItemRequest carries the price as text so that "150.50" is parsed
// without float rounding.
type ServiceItemRequest struct {
	Name  string `json:"name" validate:"max=255"`
	Price string `json:"price" validate:"max=20"`
}

type SaveServicesRequest struct {
	Services []ServiceItemRequest `json:"services" validate:"max=100,dive"`
}

// Response DTOs

type OfficeResponse struct {
	OfficeID string `json:"office_id"`
	Name     string `json:"name"`
	County   string `json:"county"`
	City     string `json:"city"`
	Address  string `json:"address"`
}

type DoctorProfileResponse struct {
	Specialization string          `json:"specialization"`
	Biography      string          `json:"biography,omitempty"`
	Office         *OfficeResponse `json:"office,omitempty"`
}

type ServiceResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Position int             `json:"slot_number"`
}

type ServiceListResponse struct {
	DoctorID uuid.UUID         `json:"doctor_id"`
	Services []ServiceResponse `json:"services"`
	Total    decimal.Decimal   `json:"total"`
}
