package repository

import (
	"context"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentRepository is the scheduling store. Title and notes cross this
// boundary in plaintext; implementations encrypt them at rest.
type AppointmentRepository interface {
	// Create assigns a fresh id to a and inserts it.
	Create(ctx context.Context, a *entity.Appointment) error
	// FindByID returns nil, nil when no row has the id.
	FindByID(ctx context.Context, id string) (*entity.Appointment, error)
	FindByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Appointment, error)
	// FindByPatient joins the doctor's display name into DoctorName.
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error)
	FindCompletedByPatient(ctx context.Context, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, r entity.AppointmentRange) ([]entity.Appointment, error)
	CountByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (int64, error)

	// UpdateStatus moves id to status to when its current status is one of
	// from. A nil notes leaves the notes untouched. It returns rows affected.
	UpdateStatus(ctx context.Context, id string, from []entity.AppointmentStatus, to entity.AppointmentStatus, notes *string) (int64, error)
	UpdateNotes(ctx context.Context, id string, from []entity.AppointmentStatus, notes string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}
