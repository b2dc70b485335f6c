package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	domainRepo "github.com/minervamed/clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Doctor Profile Repository

type doctorProfileRepository struct {
	db *gorm.DB
}

func NewDoctorProfileRepository(db *gorm.DB) domainRepo.DoctorProfileRepository {
	return &doctorProfileRepository{db: db}
}

func (r *doctorProfileRepository) Create(ctx context.Context, tx *gorm.DB, profile *entity.DoctorProfile) error {
	return tx.WithContext(ctx).Omit("User", "Office", "Services").Create(profile).Error
}

func (r *doctorProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.DoctorProfile, error) {
	var profile entity.DoctorProfile
	err := r.db.WithContext(ctx).Preload("Office").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Patient Profile Repository

type patientProfileRepository struct{}

func NewPatientProfileRepository() domainRepo.PatientProfileRepository {
	return &patientProfileRepository{}
}

func (r *patientProfileRepository) Create(ctx context.Context, tx *gorm.DB, profile *entity.PatientProfile) error {
	return tx.WithContext(ctx).Omit("User").Create(profile).Error
}

// Office Repository

type officeRepository struct{}

func NewOfficeRepository() domainRepo.OfficeRepository {
	return &officeRepository{}
}

func (r *officeRepository) Create(ctx context.Context, tx *gorm.DB, office *entity.Office) error {
	return officeCreateError(tx.WithContext(ctx).Create(office).Error)
}

// officeCreateError turns a duplicate office code into a conflict. Two
// registrations naming the same new office can both miss it on lookup.
func officeCreateError(err error) error {
	if isUniqueViolation(err, "doc_offices_pkey") {
		return fmt.Errorf("%w: office code already exists", apperror.ErrConflict)
	}
	return err
}

// FindByCode locks the row so that two registrations cannot disagree on the
// office details inside their transactions.
func (r *officeRepository) FindByCode(ctx context.Context, tx *gorm.DB, code string) (*entity.Office, error) {
	var office entity.Office
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("office_id = ?", code).
		First(&office).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &office, nil
}
