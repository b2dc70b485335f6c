package repository

import (
	"context"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorProfileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, profile *entity.DoctorProfile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error)
}

type OfficeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, office *entity.Office) error
	// FindByCode returns nil, nil when no office has the code.
	FindByCode(ctx context.Context, tx *gorm.DB, code string) (*entity.Office, error)
}

type DoctorServiceRepository interface {
	FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.DoctorService, error)
	// ReplaceAll drops the doctor's current price list and inserts services.
	ReplaceAll(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, services []entity.DoctorService) error
}
