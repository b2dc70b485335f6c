package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/converter"
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"
	"github.com/minervamed/clinic-scheduler/internal/service"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSlotTaken              = fmt.Errorf("%w: the selected time overlaps another appointment", apperror.ErrConflict)
	ErrPatientNotFound        = fmt.Errorf("%w: patient not found", apperror.ErrNotFound)
	ErrAppointmentUnavailable = fmt.Errorf("%w: Appointment unavailable", apperror.ErrNotFound)
	ErrClosingNotesRequired   = fmt.Errorf("%w: closing notes are required to complete an appointment", apperror.ErrValidation)
	ErrNotesRequired          = fmt.Errorf("%w: notes must not be empty", apperror.ErrValidation)
	ErrCancelNotConfirmed     = fmt.Errorf("%w: cancellation must be confirmed", apperror.ErrValidation)
)

const chatWarning = "Appointment saved, but the confirmation message could not be sent"

// ConfirmationRequester posts the confirmation request for a new appointment.
type ConfirmationRequester interface {
	RequestConfirmation(ctx context.Context, a *entity.Appointment, conversationID string) (string, error)
}

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.CreateAppointmentResponse, error)
	GetDoctorAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetPatientAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	GetPatientHistory(ctx context.Context) ([]dto.HistoryItemResponse, error)
	ConfirmAppointment(ctx context.Context, appID string) (*dto.LifecycleResponse, error)
	CancelAppointment(ctx context.Context, req *dto.CancelAppointmentRequest) (*dto.LifecycleResponse, error)
	CompleteAppointment(ctx context.Context, req *dto.CompleteAppointmentRequest) (*dto.LifecycleResponse, error)
	UpdateAppointmentNotes(ctx context.Context, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	DeleteAppointment(ctx context.Context, appID string) error
	CheckStatus(ctx context.Context, appID string) (*dto.StatusResponse, error)
	CountToday(ctx context.Context) (*dto.CountResponse, error)
	GetPatientName(ctx context.Context, patientID string) (*dto.PatientNameResponse, error)
}

type AppointmentOptions struct {
	StrictDuration bool
	Location       *time.Location
}

type appointmentUsecase struct {
	log           *logrus.Logger
	repo          repository.AppointmentRepository
	userRepo      repository.UserRepository
	calc          *slot.Calculator
	locker        service.BookingLocker
	confirmations ConfirmationRequester
	audit         service.AuditService
	metrics       *metrics.Collector
	lifecycle     *lifecycle
	strict        bool
	loc           *time.Location
	now           func() time.Time
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	repo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	calc *slot.Calculator,
	locker service.BookingLocker,
	confirmations ConfirmationRequester,
	audit service.AuditService,
	m *metrics.Collector,
	opts AppointmentOptions,
) AppointmentUsecase {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &appointmentUsecase{
		log:           log,
		repo:          repo,
		userRepo:      userRepo,
		calc:          calc,
		locker:        locker,
		confirmations: confirmations,
		audit:         audit,
		metrics:       m,
		lifecycle:     &lifecycle{log: log, repo: repo, audit: audit, metrics: m},
		strict:        opts.StrictDuration,
		loc:           loc,
		now:           time.Now,
	}
}

// CreateAppointment books a block for the calling doctor. The end time is
// clamped to closing time unless strict mode is on. The overlap check runs
// again under a per doctor and day lock right before the insert.
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.CreateAppointmentResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: only doctors can create appointments", apperror.ErrForbidden)
	}
	if actor.Specialty == "" {
		return nil, fmt.Errorf("%w: doctor has no specialty on record", apperror.ErrValidation)
	}

	date, err := time.ParseInLocation(slot.DateLayout, req.Date, u.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", apperror.ErrValidation, req.Date)
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid patient id", apperror.ErrValidation)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: appointment name is required", apperror.ErrValidation)
	}

	startMin, err := slot.ParseClock(req.StartTime)
	if err != nil {
		return nil, err
	}
	endMin, err := slot.ParseClock(req.EndTime)
	if err != nil {
		return nil, err
	}
	if endMin <= startMin {
		return nil, fmt.Errorf("%w: end %s must be after start %s", apperror.ErrValidation, req.EndTime, req.StartTime)
	}

	plan, err := u.calc.PlanBooking(req.StartTime, endMin-startMin, u.strict)
	if err != nil {
		return nil, err
	}

	patient, err := u.userRepo.FindByID(ctx, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return nil, err
	}
	if patient == nil || !patient.Actor().IsPatient() {
		return nil, ErrPatientNotFound
	}

	appt := &entity.Appointment{
		Date:      date,
		StartTime: plan.Start,
		EndTime:   plan.End,
		Category:  actor.Specialty,
		DoctorID:  actor.ID,
		PatientID: patientID,
		Title:     title,
		Notes:     strings.TrimSpace(req.Notes),
		Status:    entity.AppointmentStatusPending,
	}

	startIdx, _ := u.calc.Grid().Index(plan.Start)
	blocks := plan.Minutes / u.calc.Grid().Step()

	err = u.locker.WithDayLock(ctx, actor.ID, date, func(ctx context.Context) error {
		booked, err := blockingIntervals(ctx, u.log, u.repo, actor.ID, date)
		if err != nil {
			return err
		}
		if !u.calc.Free(startIdx, blocks, booked) {
			return ErrSlotTaken
		}
		return u.repo.Create(ctx, appt)
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLockNotAcquired):
			u.metrics.BookingConflicts.WithLabelValues("locked").Inc()
		case errors.Is(err, ErrSlotTaken):
			u.metrics.BookingConflicts.WithLabelValues("overlap").Inc()
		case errors.Is(err, apperror.ErrConflict):
			u.metrics.BookingConflicts.WithLabelValues("id_exhausted").Inc()
		default:
			u.log.Warnf("Failed to create appointment: %+v", err)
		}
		return nil, err
	}

	u.metrics.AppointmentsCreated.WithLabelValues(strconv.FormatBool(plan.Clamped)).Inc()
	u.log.WithFields(logrus.Fields{
		"app_id":    appt.ID,
		"doctor_id": actor.ID.String(),
		"date":      req.Date,
		"start":     plan.Start,
		"end":       plan.End,
		"clamped":   plan.Clamped,
	}).Info("Appointment created")

	_ = u.audit.LogCreate(ctx, &actor.ID, entity.AuditActionAppointmentCreate, auditEntityAppointment, appt.ID, map[string]interface{}{
		"date":       appt.DateString(),
		"start_time": appt.StartTime,
		"end_time":   appt.EndTime,
		"patient_id": patientID.String(),
		"status":     string(appt.Status),
	})

	resp := &dto.CreateAppointmentResponse{
		AppID:            appt.ID,
		Date:             appt.DateString(),
		StartTime:        appt.StartTime,
		EndTime:          appt.EndTime,
		Minutes:          plan.Minutes,
		RequestedMinutes: plan.RequestedMinutes,
		Clamped:          plan.Clamped,
	}

	if conversationID := strings.TrimSpace(req.ConversationID); conversationID != "" {
		messageID, err := u.confirmations.RequestConfirmation(ctx, appt, conversationID)
		if err != nil {
			u.log.Warnf("Confirmation request for appointment %s not sent: %+v", appt.ID, err)
			resp.Warning = chatWarning
		} else {
			resp.MessageID = messageID
		}
	}

	return resp, nil
}

func (u *appointmentUsecase) GetDoctorAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: doctor calendar", apperror.ErrForbidden)
	}

	rows, err := u.repo.FindByDoctor(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", actor.ID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(rows),
		Total:        len(rows),
	}, nil
}

func (u *appointmentUsecase) GetPatientAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, fmt.Errorf("%w: patient appointments", apperror.ErrForbidden)
	}

	rows, err := u.repo.FindByPatient(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", actor.ID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(rows),
		Total:        len(rows),
	}, nil
}

func (u *appointmentUsecase) GetPatientHistory(ctx context.Context) ([]dto.HistoryItemResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsPatient() {
		return nil, fmt.Errorf("%w: patient history", apperror.ErrForbidden)
	}

	rows, err := u.repo.FindCompletedByPatient(ctx, actor.ID)
	if err != nil {
		u.log.Warnf("Failed to find history for patient %s: %+v", actor.ID, err)
		return nil, err
	}
	return converter.AppointmentsToHistory(rows), nil
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, appID string) (*dto.LifecycleResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	a, already, err := u.lifecycle.confirm(ctx, actor, appID)
	if err != nil {
		return nil, err
	}

	return &dto.LifecycleResponse{
		AppID:            a.ID,
		Status:           string(a.Status),
		AlreadyConfirmed: already,
	}, nil
}

// CancelAppointment frees the slots. Patients must opt in explicitly with
// Confirm; the owning doctor does not need to.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, req *dto.CancelAppointmentRequest) (*dto.LifecycleResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	a, err := u.lifecycle.load(ctx, req.AppID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsPatient() && a.PatientID == actor.ID:
		if !req.Confirm {
			return nil, ErrCancelNotConfirmed
		}
	case actor.IsDoctor() && a.DoctorID == actor.ID:
	default:
		return nil, ErrNotAppointmentParty
	}

	if err := u.lifecycle.transition(ctx, actor, a, entity.AppointmentStatusCanceled, entity.AuditActionAppointmentCancel, nil); err != nil {
		return nil, err
	}

	return &dto.LifecycleResponse{AppID: a.ID, Status: string(a.Status)}, nil
}

// CompleteAppointment closes the visit and overwrites the notes with the
// closing description.
func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, req *dto.CompleteAppointmentRequest) (*dto.LifecycleResponse, error) {
	notes := strings.TrimSpace(req.Description)
	if notes == "" {
		return nil, ErrClosingNotesRequired
	}

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: only the doctor can complete an appointment", apperror.ErrForbidden)
	}

	a, err := u.lifecycle.load(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != actor.ID {
		return nil, ErrNotAppointmentParty
	}

	if err := u.lifecycle.transition(ctx, actor, a, entity.AppointmentStatusCompleted, entity.AuditActionAppointmentComplete, &notes); err != nil {
		return nil, err
	}

	return &dto.LifecycleResponse{AppID: a.ID, Status: string(a.Status)}, nil
}

// notesEditable lists the statuses in which a doctor may still edit notes.
var notesEditable = []entity.AppointmentStatus{
	entity.AppointmentStatusPending,
	entity.AppointmentStatusConfirmed,
	entity.AppointmentStatusCanceled,
}

func (u *appointmentUsecase) UpdateAppointmentNotes(ctx context.Context, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return nil, ErrNotesRequired
	}

	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: only the doctor can edit notes", apperror.ErrForbidden)
	}

	a, err := u.lifecycle.load(ctx, req.AppID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != actor.ID {
		return nil, ErrNotAppointmentParty
	}
	if a.Status == entity.AppointmentStatusCompleted {
		return nil, fmt.Errorf("%w: notes of a completed appointment are final", apperror.ErrForbidden)
	}

	rows, err := u.repo.UpdateNotes(ctx, a.ID, notesEditable, notes)
	if err != nil {
		u.log.Warnf("Failed to update notes of appointment %s: %+v", a.ID, err)
		return nil, err
	}
	if rows == 0 {
		return nil, u.lifecycle.lostUpdate(ctx, a.ID, a.Status)
	}

	a.Notes = notes
	_ = u.audit.LogUpdate(ctx, &actor.ID, entity.AuditActionAppointmentNotes, auditEntityAppointment, a.ID, nil, nil)

	resp := converter.AppointmentToResponse(a)
	return &resp, nil
}

func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, appID string) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only administrators can delete appointments", apperror.ErrForbidden)
	}

	a, err := u.lifecycle.load(ctx, appID)
	if err != nil {
		return err
	}

	rows, err := u.repo.Delete(ctx, appID)
	if err != nil {
		u.log.Warnf("Failed to delete appointment %s: %+v", appID, err)
		return err
	}
	if rows == 0 {
		return ErrAppointmentNotFound
	}

	u.log.WithFields(logrus.Fields{"app_id": appID, "admin": actor.ID.String()}).Info("Appointment deleted")
	_ = u.audit.LogDelete(ctx, &actor.ID, entity.AuditActionAppointmentDelete, auditEntityAppointment, appID, map[string]interface{}{
		"status":    string(a.Status),
		"doctor_id": a.DoctorID.String(),
		"date":      a.DateString(),
	})
	return nil
}

// CheckStatus reads the status from the store, which is authoritative over
// whatever a chat message last recorded.
func (u *appointmentUsecase) CheckStatus(ctx context.Context, appID string) (*dto.StatusResponse, error) {
	if _, err := currentActor(ctx); err != nil {
		return nil, err
	}

	a, err := u.repo.FindByID(ctx, appID)
	if err != nil {
		u.log.Warnf("Failed to check status of appointment %s: %+v", appID, err)
		return nil, err
	}
	if a == nil {
		return nil, ErrAppointmentUnavailable
	}

	return &dto.StatusResponse{AppID: a.ID, Status: string(a.Status)}, nil
}

func (u *appointmentUsecase) CountToday(ctx context.Context) (*dto.CountResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: doctor calendar", apperror.ErrForbidden)
	}

	today := u.now().In(u.loc)
	count, err := u.repo.CountByDoctorOnDate(ctx, actor.ID, today)
	if err != nil {
		u.log.Warnf("Failed to count today's appointments for doctor %s: %+v", actor.ID, err)
		return nil, err
	}

	return &dto.CountResponse{Date: today.Format(slot.DateLayout), Count: count}, nil
}

func (u *appointmentUsecase) GetPatientName(ctx context.Context, patientID string) (*dto.PatientNameResponse, error) {
	if _, err := currentActor(ctx); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid patient id", apperror.ErrValidation)
	}

	user, err := u.userRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find patient %s: %+v", id, err)
		return nil, err
	}
	if user == nil || !user.Actor().IsPatient() {
		return nil, ErrPatientNotFound
	}

	return &dto.PatientNameResponse{PatientID: user.ID, FullName: strings.TrimSpace(user.FullName)}, nil
}
