package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	domainRepo "github.com/minervamed/clinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldCipher seals the free text columns of an appointment.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type appointmentRepository struct {
	db        *gorm.DB
	cipher    FieldCipher
	idRetries int
	newID     func() (string, error)
}

func NewAppointmentRepository(db *gorm.DB, cipher FieldCipher, idRetries int) domainRepo.AppointmentRepository {
	if idRetries < 1 {
		idRetries = 1
	}
	return &appointmentRepository{
		db:        db,
		cipher:    cipher,
		idRetries: idRetries,
		newID:     NewAppointmentID,
	}
}

// appointmentIDConstraint is the primary key that rejects a reused id.
const appointmentIDConstraint = "doc_appointments_pkey"

// Create retries with a fresh id when the generated one is already taken.
func (r *appointmentRepository) Create(ctx context.Context, a *entity.Appointment) error {
	if err := r.seal(a); err != nil {
		return err
	}

	return r.insertWithFreshID(a, func() error {
		return r.db.WithContext(ctx).Create(a).Error
	})
}

// insertWithFreshID assigns a new id to a before every insert attempt. Only
// a collision on the appointment primary key is retried. When every attempt
// collides the id is cleared and a conflict is returned.
func (r *appointmentRepository) insertWithFreshID(a *entity.Appointment, insert func() error) error {
	for attempt := 1; attempt <= r.idRetries; attempt++ {
		id, err := r.newID()
		if err != nil {
			a.ID = ""
			return err
		}
		a.ID = id

		err = insert()
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, appointmentIDConstraint) {
			a.ID = ""
			return err
		}
	}

	a.ID = ""
	return fmt.Errorf("%w: no free appointment id after %d attempts", apperror.ErrConflict, r.idRetries)
}

func (r *appointmentRepository) FindByID(ctx context.Context, id string) (*entity.Appointment, error) {
	var a entity.Appointment
	err := r.db.WithContext(ctx).Where("app_id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.open(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Appointment, error) {
	var rows []entity.Appointment
	err := r.db.WithContext(ctx).
		Where("doc_id = ?", doctorID).
		Order("date ASC, t_start ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, r.openAll(rows)
}

func (r *appointmentRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	var rows []entity.Appointment
	err := r.withDoctorName(ctx).
		Where("doc_appointments.reg_id = ?", patientID).
		Order("doc_appointments.date ASC, doc_appointments.t_start ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, r.openAll(rows)
}

func (r *appointmentRepository) FindCompletedByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error) {
	var rows []entity.Appointment
	err := r.withDoctorName(ctx).
		Where("doc_appointments.reg_id = ? AND doc_appointments.status = ?", patientID, entity.AppointmentStatusCompleted).
		Order("doc_appointments.date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, r.openAll(rows)
}

func (r *appointmentRepository) FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, rng entity.AppointmentRange) ([]entity.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where("doc_id = ? AND date BETWEEN ? AND ?", doctorID, rng.From.Format("2006-01-02"), rng.To.Format("2006-01-02"))
	if rng.BlockingOnly {
		query = query.Where("status IN ?", entity.BlockingStatuses)
	}

	var rows []entity.Appointment
	if err := query.Order("date ASC, t_start ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, r.openAll(rows)
}

func (r *appointmentRepository) CountByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Where("doc_id = ? AND date = ?", doctorID, date.Format("2006-01-02")).
		Count(&count).Error
	return count, err
}

// UpdateStatus is a single conditional UPDATE; 0 rows affected means the row
// is missing or was no longer in one of the from statuses.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id string, from []entity.AppointmentStatus, to entity.AppointmentStatus, notes *string) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if notes != nil {
		enc, err := r.cipher.Encrypt(*notes)
		if err != nil {
			return 0, err
		}
		updates["enc_notes"] = enc
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Where("app_id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) UpdateNotes(ctx context.Context, id string, from []entity.AppointmentStatus, notes string) (int64, error) {
	enc, err := r.cipher.Encrypt(notes)
	if err != nil {
		return 0, err
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Where("app_id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"enc_notes":  enc,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("app_id = ?", id).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) withDoctorName(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Select("doc_appointments.*, users.full_name AS doc_name").
		Joins("JOIN users ON users.id = doc_appointments.doc_id")
}

func (r *appointmentRepository) seal(a *entity.Appointment) error {
	var err error
	if a.EncTitle, err = r.cipher.Encrypt(a.Title); err != nil {
		return fmt.Errorf("encrypt title: %w", err)
	}
	if a.EncNotes, err = r.cipher.Encrypt(a.Notes); err != nil {
		return fmt.Errorf("encrypt notes: %w", err)
	}
	return nil
}

func (r *appointmentRepository) open(a *entity.Appointment) error {
	var err error
	if a.Title, err = r.cipher.Decrypt(a.EncTitle); err != nil {
		return fmt.Errorf("decrypt title of %s: %w", a.ID, err)
	}
	if a.Notes, err = r.cipher.Decrypt(a.EncNotes); err != nil {
		return fmt.Errorf("decrypt notes of %s: %w", a.ID, err)
	}
	return nil
}

func (r *appointmentRepository) openAll(rows []entity.Appointment) error {
	for i := range rows {
		if err := r.open(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}
