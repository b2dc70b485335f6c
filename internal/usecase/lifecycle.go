package usecase

import (
	"context"
	"fmt"

	"github.com/minervamed/clinic-scheduler/internal/delivery/http/middleware"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/service"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrAppointmentNotFound = fmt.Errorf("%w: appointment not found", apperror.ErrNotFound)
	ErrNotAppointmentParty = fmt.Errorf("%w: appointment belongs to someone else", apperror.ErrForbidden)
)

const auditEntityAppointment = "appointment"

func currentActor(ctx context.Context) (entity.Actor, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return entity.Actor{}, apperror.ErrUnauthenticated
	}
	return actor, nil
}

// lifecycle applies status transitions. It is shared by the appointment and
// chat confirmation flows so both go through the same checks.
type lifecycle struct {
	log     *logrus.Logger
	repo    repository.AppointmentRepository
	audit   service.AuditService
	metrics *metrics.Collector
}

func (l *lifecycle) load(ctx context.Context, id string) (*entity.Appointment, error) {
	a, err := l.repo.FindByID(ctx, id)
	if err != nil {
		l.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if a == nil {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

// transition moves a to status to. notes, when set, replaces the stored
// notes in the same statement.
func (l *lifecycle) transition(ctx context.Context, actor entity.Actor, a *entity.Appointment, to entity.AppointmentStatus, action string, notes *string) error {
	from := a.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: appointment %s is %s and cannot become %s", apperror.ErrForbidden, a.ID, from, to)
	}

	rows, err := l.repo.UpdateStatus(ctx, a.ID, entity.SourcesOf(to), to, notes)
	if err != nil {
		l.log.Warnf("Failed to update appointment %s to %s: %+v", a.ID, to, err)
		return err
	}
	if rows == 0 {
		return l.lostUpdate(ctx, a.ID, to)
	}

	a.Status = to
	if notes != nil {
		a.Notes = *notes
	}
	l.metrics.AppointmentTransitions.WithLabelValues(string(from), string(to)).Inc()
	l.log.WithFields(logrus.Fields{
		"app_id": a.ID,
		"from":   from,
		"to":     to,
		"actor":  actor.ID.String(),
	}).Info("Appointment status changed")

	_ = l.audit.LogUpdate(ctx, &actor.ID, action, auditEntityAppointment, a.ID, string(from), string(to))
	return nil
}

// lostUpdate explains a conditional update that matched no row.
func (l *lifecycle) lostUpdate(ctx context.Context, id string, to entity.AppointmentStatus) error {
	current, err := l.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrAppointmentNotFound
	}
	return fmt.Errorf("%w: appointment %s is now %s and cannot become %s", apperror.ErrForbidden, id, current.Status, to)
}

// confirm moves a pending appointment owned by the patient to confirmed.
// Confirming twice is not an error; the second call reports alreadyConfirmed.
func (l *lifecycle) confirm(ctx context.Context, actor entity.Actor, id string) (a *entity.Appointment, alreadyConfirmed bool, err error) {
	if !actor.IsPatient() {
		return nil, false, fmt.Errorf("%w: only the patient can confirm an appointment", apperror.ErrForbidden)
	}

	a, err = l.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if a.PatientID != actor.ID {
		return nil, false, ErrNotAppointmentParty
	}
	if a.IsConfirmed() {
		return a, true, nil
	}

	err = l.transition(ctx, actor, a, entity.AppointmentStatusConfirmed, entity.AuditActionAppointmentConfirm, nil)
	if err != nil {
		// A concurrent confirm won the race.
		if current, findErr := l.repo.FindByID(ctx, id); findErr == nil && current != nil && current.IsConfirmed() {
			return current, true, nil
		}
		return nil, false, err
	}
	return a, false, nil
}
