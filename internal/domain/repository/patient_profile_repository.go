package repository

import (
	"context"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"

	"gorm.io/gorm"
)

type PatientProfileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, profile *entity.PatientProfile) error
}
