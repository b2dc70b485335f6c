package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"omitempty"`
}

type RegisterPatientRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required,min=2"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=10,max=20"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=M F"`
}

// OfficeRequest: leave Name empty to join an office that already exists.
type OfficeRequest struct {
	OfficeID string `json:"office_id" validate:"required,max=50"`
	Name     string `json:"name" validate:"omitempty,max=255"`
	County   string `json:"county" validate:"omitempty,max=100"`
	City     string `json:"city" validate:"omitempty,max=100"`
	Address  string `json:"address" validate:"omitempty"`
}

type RegisterDoctorRequest struct {
	Email          string        `json:"email" validate:"required,email"`
	Password       string        `json:"password" validate:"required,min=6"`
	FullName       string        `json:"full_name" validate:"required,min=2"`
	Specialization string        `json:"specialization" validate:"required,max=100"`
	Biography      string        `json:"biography" validate:"omitempty"`
	Office         OfficeRequest `json:"office" validate:"required"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
	ChatWarning  string        `json:"chat_warning,omitempty"`
}

type UserResponse struct {
	ID            uuid.UUID              `json:"id"`
	Email         string                 `json:"email"`
	FullName      string                 `json:"full_name"`
	Role          string                 `json:"role"`
	DoctorProfile *DoctorProfileResponse `json:"doctor_profile,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
