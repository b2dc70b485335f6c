package repository

import (
	"context"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	domainRepo "github.com/minervamed/clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorServiceRepository struct {
	db *gorm.DB
}

func NewDoctorServiceRepository(db *gorm.DB) domainRepo.DoctorServiceRepository {
	return &doctorServiceRepository{db: db}
}

func (r *doctorServiceRepository) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.DoctorService, error) {
	var services []entity.DoctorService
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("slot_number ASC").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *doctorServiceRepository) ReplaceAll(ctx context.Context, tx *gorm.DB, doctorID uuid.UUID, services []entity.DoctorService) error {
	if err := tx.WithContext(ctx).Where("doctor_id = ?", doctorID).Delete(&entity.DoctorService{}).Error; err != nil {
		return err
	}
	if len(services) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&services).Error
}
