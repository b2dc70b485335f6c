package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
	"github.com/minervamed/clinic-scheduler/internal/service"

	"github.com/google/uuid"
)

type appointmentFixture struct {
	repo    *fakeAppointmentRepo
	users   *fakeUserRepo
	locker  *fakeLocker
	chat    *fakeChat
	audit   *fakeAudit
	confirm ConfirmationUsecase
	uc      AppointmentUsecase

	doctor  entity.Actor
	patient entity.Actor
	other   entity.Actor
	admin   entity.Actor
}

func newAppointmentFixture(t *testing.T, strict bool) *appointmentFixture {
	t.Helper()

	f := &appointmentFixture{
		repo:    newFakeAppointmentRepo(),
		locker:  newFakeLocker(),
		chat:    newFakeChat(),
		audit:   &fakeAudit{},
		doctor:  entity.NewDoctorActor(uuid.New(), "Cardiology"),
		patient: entity.NewPatientActor(uuid.New()),
		other:   entity.NewPatientActor(uuid.New()),
		admin:   entity.NewAdminActor(uuid.New()),
	}
	f.users = newFakeUserRepo(
		&entity.User{ID: f.doctor.ID, RoleID: entity.RoleIDDoctor, FullName: "Dr. Ionescu", DoctorProfile: &entity.DoctorProfile{Specialization: "Cardiology"}},
		&entity.User{ID: f.patient.ID, RoleID: entity.RoleIDPatient, FullName: "  Ana Pop "},
		&entity.User{ID: f.other.ID, RoleID: entity.RoleIDPatient, FullName: "Mihai Radu"},
	)

	log := newTestLogger()
	m := newTestMetrics()
	f.confirm = NewConfirmationUsecase(log, f.repo, f.chat, f.audit, m)
	f.uc = NewAppointmentUsecase(log, f.repo, f.users, newTestCalculator(t), f.locker, f.confirm, f.audit, m,
		AppointmentOptions{StrictDuration: strict})
	return f
}

func (f *appointmentFixture) seed(doctorID, patientID uuid.UUID, date, start, end string, status entity.AppointmentStatus) string {
	day, _ := time.Parse("2006-01-02", date)
	a := entity.Appointment{
		Date:      day,
		StartTime: start,
		EndTime:   end,
		Category:  "Cardiology",
		DoctorID:  doctorID,
		PatientID: patientID,
		Title:     "Checkup",
		Status:    status,
	}
	_ = f.repo.Create(context.Background(), &a)
	return a.ID
}

func (f *appointmentFixture) status(t *testing.T, id string) entity.AppointmentStatus {
	t.Helper()
	a, ok := f.repo.get(id)
	if !ok {
		t.Fatalf("appointment %s not stored", id)
	}
	return a.Status
}

func createRequest(patientID uuid.UUID, date, start, stop string) *dto.CreateAppointmentRequest {
	return &dto.CreateAppointmentRequest{
		Date:      date,
		StartTime: start,
		EndTime:   stop,
		PatientID: patientID.String(),
		Title:     "Consultation",
		Notes:     "first visit",
	}
}

func TestAppointment_BookConfirmCompleteRoundTrip(t *testing.T) {
	f := newAppointmentFixture(t, false)
	doctorCtx := actorContext(f.doctor)
	patientCtx := actorContext(f.patient)

	created, err := f.uc.CreateAppointment(doctorCtx, createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00"))
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if created.EndTime != "11:00" || created.Minutes != 60 || created.Clamped {
		t.Errorf("unexpected create response %+v", created)
	}

	list, err := f.uc.GetPatientAppointments(patientCtx)
	if err != nil {
		t.Fatalf("GetPatientAppointments() error = %v", err)
	}
	if list.Total != 1 || list.Appointments[0].Status != string(entity.AppointmentStatusPending) {
		t.Fatalf("expected one pending appointment, got %+v", list)
	}
	if list.Appointments[0].Category != "Cardiology" || list.Appointments[0].Notes != "first visit" {
		t.Errorf("unexpected appointment %+v", list.Appointments[0])
	}

	confirmed, err := f.uc.ConfirmAppointment(patientCtx, created.AppID)
	if err != nil {
		t.Fatalf("ConfirmAppointment() error = %v", err)
	}
	if confirmed.Status != string(entity.AppointmentStatusConfirmed) || confirmed.AlreadyConfirmed {
		t.Errorf("unexpected confirm response %+v", confirmed)
	}

	again, err := f.uc.ConfirmAppointment(patientCtx, created.AppID)
	if err != nil {
		t.Fatalf("second ConfirmAppointment() error = %v", err)
	}
	if !again.AlreadyConfirmed {
		t.Error("second confirm should report already_confirmed")
	}

	if _, err := f.uc.CompleteAppointment(doctorCtx, &dto.CompleteAppointmentRequest{
		AppointmentID: created.AppID,
		Description:   "  Blood pressure normal  ",
	}); err != nil {
		t.Fatalf("CompleteAppointment() error = %v", err)
	}

	history, err := f.uc.GetPatientHistory(patientCtx)
	if err != nil {
		t.Fatalf("GetPatientHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].Description != "Blood pressure normal" {
		t.Errorf("unexpected history %+v", history)
	}

	want := []string{
		entity.AuditActionAppointmentCreate,
		entity.AuditActionAppointmentConfirm,
		entity.AuditActionAppointmentComplete,
	}
	got := f.audit.actions()
	if len(got) != len(want) {
		t.Fatalf("audit actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit action %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCreateAppointment_ClampsAtClosingTime(t *testing.T) {
	f := newAppointmentFixture(t, false)

	resp, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.patient.ID, "2026-03-10", "16:00", "17:30"))
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if !resp.Clamped || resp.EndTime != "17:00" || resp.Minutes != 60 || resp.RequestedMinutes != 90 {
		t.Errorf("unexpected clamped response %+v", resp)
	}
}

func TestCreateAppointment_StrictRejectsOverrun(t *testing.T) {
	f := newAppointmentFixture(t, true)

	_, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.patient.ID, "2026-03-10", "16:00", "17:30"))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	f := newAppointmentFixture(t, false)
	ctx := actorContext(f.doctor)

	tests := []struct {
		name string
		req  *dto.CreateAppointmentRequest
	}{
		{"stop before start", createRequest(f.patient.ID, "2026-03-10", "11:00", "10:00")},
		{"off grid start", createRequest(f.patient.ID, "2026-03-10", "10:15", "11:15")},
		{"not a multiple of step", createRequest(f.patient.ID, "2026-03-10", "10:00", "10:45")},
		{"bad date", createRequest(f.patient.ID, "10/03/2026", "10:00", "11:00")},
		{"blank name", func() *dto.CreateAppointmentRequest {
			r := createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")
			r.Title = "   "
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.uc.CreateAppointment(ctx, tt.req); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateAppointment_RejectsOverlap(t *testing.T) {
	f := newAppointmentFixture(t, false)
	f.seed(f.doctor.ID, f.other.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)

	_, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.patient.ID, "2026-03-10", "10:30", "11:30"))
	if !errors.Is(err, ErrSlotTaken) || !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected slot taken conflict, got %v", err)
	}
}

func TestCreateAppointment_CanceledDoesNotBlock(t *testing.T) {
	f := newAppointmentFixture(t, false)
	f.seed(f.doctor.ID, f.other.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusCanceled)

	if _, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")); err != nil {
		t.Fatalf("canceled appointment should free its slots, got %v", err)
	}
}

func TestCreateAppointment_ConcurrentRequestsBookOnce(t *testing.T) {
	f := newAppointmentFixture(t, false)
	ctx := actorContext(f.doctor)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.CreateAppointment(ctx, createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("successes = %d, conflicts = %d", successes, conflicts)
	}
}

func TestCreateAppointment_LockBusy(t *testing.T) {
	f := newAppointmentFixture(t, false)
	f.locker.err = service.ErrLockNotAcquired

	_, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00"))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateAppointment_Authorization(t *testing.T) {
	f := newAppointmentFixture(t, false)

	if _, err := f.uc.CreateAppointment(actorContext(f.patient), createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("patient create: expected forbidden, got %v", err)
	}
	if _, err := f.uc.CreateAppointment(context.Background(), createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("anonymous create: expected unauthenticated, got %v", err)
	}
	if _, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(uuid.New(), "2026-03-10", "10:00", "11:00")); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown patient: expected not found, got %v", err)
	}
	if _, err := f.uc.CreateAppointment(actorContext(f.doctor), createRequest(f.doctor.ID, "2026-03-10", "10:00", "11:00")); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("doctor as patient: expected not found, got %v", err)
	}
}

func TestCreateAppointment_ChatFailureIsWarning(t *testing.T) {
	f := newAppointmentFixture(t, false)
	req := createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")
	req.ConversationID = "conv-1"

	resp, err := f.uc.CreateAppointment(actorContext(f.doctor), req)
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if resp.Warning == "" || resp.MessageID != "" {
		t.Errorf("expected a warning without message id, got %+v", resp)
	}
	if _, ok := f.repo.get(resp.AppID); !ok {
		t.Error("appointment should be saved despite the chat failure")
	}
}

func TestCreateAppointment_SendsConfirmationRequest(t *testing.T) {
	f := newAppointmentFixture(t, false)
	if _, err := f.chat.Connect(context.Background(), f.doctor.ID); err != nil {
		t.Fatal(err)
	}
	req := createRequest(f.patient.ID, "2026-03-10", "10:00", "11:00")
	req.ConversationID = "conv-1"

	resp, err := f.uc.CreateAppointment(actorContext(f.doctor), req)
	if err != nil {
		t.Fatalf("CreateAppointment() error = %v", err)
	}
	if resp.MessageID == "" || resp.Warning != "" {
		t.Fatalf("expected a message id, got %+v", resp)
	}

	msg := f.chat.messages[resp.MessageID]
	if msg.CustomType != chat.CustomTypeAppointmentRequest || msg.CustomData.AppID != resp.AppID {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.CustomData.Label != "Confirm Appointment: 2026-03-10 at 10:00" || msg.CustomData.Status != chat.StatusPending {
		t.Errorf("unexpected payload %+v", msg.CustomData)
	}
}

func TestCancelAppointment(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)

	_, err := f.uc.CancelAppointment(actorContext(f.patient), &dto.CancelAppointmentRequest{AppID: id})
	if !errors.Is(err, ErrCancelNotConfirmed) {
		t.Fatalf("expected confirmation requirement, got %v", err)
	}

	_, err = f.uc.CancelAppointment(actorContext(f.other), &dto.CancelAppointmentRequest{AppID: id, Confirm: true})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("other patient: expected forbidden, got %v", err)
	}

	resp, err := f.uc.CancelAppointment(actorContext(f.patient), &dto.CancelAppointmentRequest{AppID: id, Confirm: true})
	if err != nil {
		t.Fatalf("CancelAppointment() error = %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusCanceled) || f.status(t, id) != entity.AppointmentStatusCanceled {
		t.Errorf("expected canceled, got %+v", resp)
	}

	_, err = f.uc.CancelAppointment(actorContext(f.doctor), &dto.CancelAppointmentRequest{AppID: id})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("cancel twice: expected forbidden, got %v", err)
	}
}

func TestCancelAppointment_DoctorNeedsNoConfirmFlag(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)

	if _, err := f.uc.CancelAppointment(actorContext(f.doctor), &dto.CancelAppointmentRequest{AppID: id}); err != nil {
		t.Fatalf("CancelAppointment() error = %v", err)
	}
}

func TestCompleteAppointment_RequiresNotes(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)

	_, err := f.uc.CompleteAppointment(actorContext(f.doctor), &dto.CompleteAppointmentRequest{AppointmentID: id, Description: "  \n "})
	if !errors.Is(err, ErrClosingNotesRequired) {
		t.Fatalf("expected closing notes error, got %v", err)
	}
	if f.status(t, id) != entity.AppointmentStatusConfirmed {
		t.Error("status must not change when validation fails")
	}
	if len(f.audit.actions()) != 0 {
		t.Error("no audit entry expected for a rejected completion")
	}
}

func TestCompleteAppointment_OnlyOwningDoctor(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)
	otherDoctor := entity.NewDoctorActor(uuid.New(), "Dermatology")

	req := &dto.CompleteAppointmentRequest{AppointmentID: id, Description: "done"}
	if _, err := f.uc.CompleteAppointment(actorContext(otherDoctor), req); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("other doctor: expected forbidden, got %v", err)
	}
	if _, err := f.uc.CompleteAppointment(actorContext(f.patient), req); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("patient: expected forbidden, got %v", err)
	}
}

func TestConfirmAppointment_Rules(t *testing.T) {
	f := newAppointmentFixture(t, false)
	canceled := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusCanceled)
	pending := f.seed(f.doctor.ID, f.patient.ID, "2026-03-11", "10:00", "11:00", entity.AppointmentStatusPending)

	if _, err := f.uc.ConfirmAppointment(actorContext(f.patient), canceled); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("canceled: expected forbidden, got %v", err)
	}
	if _, err := f.uc.ConfirmAppointment(actorContext(f.doctor), pending); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("doctor: expected forbidden, got %v", err)
	}
	if _, err := f.uc.ConfirmAppointment(actorContext(f.other), pending); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("other patient: expected forbidden, got %v", err)
	}
	if _, err := f.uc.ConfirmAppointment(actorContext(f.patient), "APP000000000"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing: expected not found, got %v", err)
	}
}

func TestUpdateAppointmentNotes(t *testing.T) {
	f := newAppointmentFixture(t, false)
	pending := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	completed := f.seed(f.doctor.ID, f.patient.ID, "2026-03-09", "10:00", "11:00", entity.AppointmentStatusCompleted)
	ctx := actorContext(f.doctor)

	if _, err := f.uc.UpdateAppointmentNotes(ctx, &dto.UpdateAppointmentRequest{AppID: pending, Notes: " "}); !errors.Is(err, ErrNotesRequired) {
		t.Errorf("blank notes: expected validation, got %v", err)
	}
	if _, err := f.uc.UpdateAppointmentNotes(ctx, &dto.UpdateAppointmentRequest{AppID: completed, Notes: "late edit"}); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("completed: expected forbidden, got %v", err)
	}

	resp, err := f.uc.UpdateAppointmentNotes(ctx, &dto.UpdateAppointmentRequest{AppID: pending, Notes: "bring x-ray"})
	if err != nil {
		t.Fatalf("UpdateAppointmentNotes() error = %v", err)
	}
	stored, _ := f.repo.get(pending)
	if resp.Notes != "bring x-ray" || stored.Notes != "bring x-ray" {
		t.Errorf("notes not updated: resp %q stored %q", resp.Notes, stored.Notes)
	}
}

func TestDeleteAppointment_AdminOnly(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)

	if err := f.uc.DeleteAppointment(actorContext(f.doctor), id); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("doctor delete: expected forbidden, got %v", err)
	}
	if err := f.uc.DeleteAppointment(actorContext(f.admin), id); err != nil {
		t.Fatalf("DeleteAppointment() error = %v", err)
	}

	_, err := f.uc.CheckStatus(actorContext(f.patient), id)
	if !errors.Is(err, ErrAppointmentUnavailable) {
		t.Errorf("expected appointment unavailable, got %v", err)
	}
	if err := f.uc.DeleteAppointment(actorContext(f.admin), id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	f := newAppointmentFixture(t, false)
	id := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)

	resp, err := f.uc.CheckStatus(actorContext(f.patient), id)
	if err != nil {
		t.Fatalf("CheckStatus() error = %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestCountToday_CountsEveryStatus(t *testing.T) {
	f := newAppointmentFixture(t, false)
	f.uc.(*appointmentUsecase).now = func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) }

	f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "09:00", "09:30", entity.AppointmentStatusPending)
	f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "10:30", entity.AppointmentStatusCanceled)
	f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "11:00", "11:30", entity.AppointmentStatusCompleted)
	f.seed(f.doctor.ID, f.patient.ID, "2026-03-11", "09:00", "09:30", entity.AppointmentStatusPending)

	resp, err := f.uc.CountToday(actorContext(f.doctor))
	if err != nil {
		t.Fatalf("CountToday() error = %v", err)
	}
	if resp.Count != 3 || resp.Date != "2026-03-10" {
		t.Errorf("unexpected count %+v", resp)
	}
}

func TestGetPatientHistory_PlaceholderAndOrder(t *testing.T) {
	f := newAppointmentFixture(t, false)
	f.seed(f.doctor.ID, f.patient.ID, "2026-01-05", "09:00", "09:30", entity.AppointmentStatusCompleted)
	f.seed(f.doctor.ID, f.patient.ID, "2026-02-05", "09:00", "09:30", entity.AppointmentStatusCompleted)
	f.seed(f.doctor.ID, f.patient.ID, "2026-03-05", "09:00", "09:30", entity.AppointmentStatusConfirmed)

	history, err := f.uc.GetPatientHistory(actorContext(f.patient))
	if err != nil {
		t.Fatalf("GetPatientHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 completed visits, got %d", len(history))
	}
	if history[0].Date != "2026-02-05" || history[0].Description != "(No notes available)" {
		t.Errorf("unexpected first item %+v", history[0])
	}
}

func TestGetPatientName(t *testing.T) {
	f := newAppointmentFixture(t, false)
	ctx := actorContext(f.doctor)

	resp, err := f.uc.GetPatientName(ctx, f.patient.ID.String())
	if err != nil {
		t.Fatalf("GetPatientName() error = %v", err)
	}
	if resp.FullName != "Ana Pop" {
		t.Errorf("FullName = %q", resp.FullName)
	}

	if _, err := f.uc.GetPatientName(ctx, uuid.NewString()); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected patient not found, got %v", err)
	}
	if _, err := f.uc.GetPatientName(ctx, "not-a-uuid"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
