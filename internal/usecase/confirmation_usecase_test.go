package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"

	"github.com/google/uuid"
)

// sendRequest posts a pending appointment request from the doctor.
func (f *appointmentFixture) sendRequest(t *testing.T, appID string) string {
	t.Helper()
	if _, err := f.chat.Connect(context.Background(), f.doctor.ID); err != nil {
		t.Fatal(err)
	}
	a, _ := f.repo.get(appID)
	id, err := f.confirm.RequestConfirmation(context.Background(), &a, "conv-1")
	if err != nil {
		t.Fatalf("RequestConfirmation() error = %v", err)
	}
	return id
}

func TestConfirmFromChat_ConfirmsAndRewritesMessage(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)
	if _, err := f.chat.Connect(context.Background(), f.patient.ID); err != nil {
		t.Fatal(err)
	}

	resp, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: msgID, AppID: appID})
	if err != nil {
		t.Fatalf("ConfirmFromChat() error = %v", err)
	}
	if resp.Status != string(entity.AppointmentStatusConfirmed) || resp.Warning != "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if f.status(t, appID) != entity.AppointmentStatusConfirmed {
		t.Error("store was not confirmed")
	}
	if got := f.chat.status(msgID); got != chat.StatusConfirmed {
		t.Errorf("message status = %q", got)
	}

	again, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: msgID, AppID: appID})
	if err != nil {
		t.Fatalf("second ConfirmFromChat() error = %v", err)
	}
	if !again.AlreadyConfirmed {
		t.Error("second confirm should report already_confirmed")
	}
}

func TestConfirmFromChat_ChatDownIsWarning(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)

	// the patient never opened a chat session
	resp, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: msgID, AppID: appID})
	if err != nil {
		t.Fatalf("ConfirmFromChat() error = %v", err)
	}
	if resp.Warning == "" {
		t.Error("expected a warning")
	}
	if f.status(t, appID) != entity.AppointmentStatusConfirmed {
		t.Error("store confirmation must survive a chat failure")
	}
	if got := f.chat.status(msgID); got != chat.StatusPending {
		t.Errorf("message status = %q, want pending", got)
	}
}

func TestConfirmFromChat_TerminalIsForbidden(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusCanceled)

	_, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: "msg-1", AppID: appID})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSyncChatMessage(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)
	ctx := actorContext(f.doctor)
	req := &dto.ConfirmAppointmentChatRequest{MessageID: msgID, UserID: f.doctor.ID.String(), AppID: appID}

	if _, err := f.confirm.SyncChatMessage(ctx, req); !errors.Is(err, ErrNotConfirmedYet) {
		t.Fatalf("pending: expected not confirmed, got %v", err)
	}

	f.repo.UpdateStatus(context.Background(), appID, entity.SourcesOf(entity.AppointmentStatusConfirmed), entity.AppointmentStatusConfirmed, nil)

	forged := *req
	forged.UserID = f.patient.ID.String()
	if _, err := f.confirm.SyncChatMessage(ctx, &forged); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("forged user: expected forbidden, got %v", err)
	}

	resp, err := f.confirm.SyncChatMessage(ctx, req)
	if err != nil {
		t.Fatalf("SyncChatMessage() error = %v", err)
	}
	if resp.Status != chat.StatusConfirmed || f.chat.status(msgID) != chat.StatusConfirmed {
		t.Errorf("message not synced: %+v", resp)
	}
}

func TestSyncChatMessage_WrongAppointment(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusConfirmed)
	otherID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-11", "10:00", "11:00", entity.AppointmentStatusConfirmed)
	msgID := f.sendRequest(t, otherID)

	_, err := f.confirm.SyncChatMessage(actorContext(f.doctor), &dto.ConfirmAppointmentChatRequest{
		MessageID: msgID, UserID: f.doctor.ID.String(), AppID: appID,
	})
	if !errors.Is(err, ErrMessageMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestGetMessage_RepairsStaleStatus(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)

	// the store moved on while the message still says pending
	f.repo.UpdateStatus(context.Background(), appID, entity.SourcesOf(entity.AppointmentStatusCanceled), entity.AppointmentStatusCanceled, nil)

	resp, err := f.confirm.GetMessage(actorContext(f.doctor), msgID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if resp.CustomData.Status != string(entity.AppointmentStatusCanceled) {
		t.Errorf("response status = %q", resp.CustomData.Status)
	}
	if got := f.chat.status(msgID); got != string(entity.AppointmentStatusCanceled) {
		t.Errorf("stored message status = %q", got)
	}
}

func TestGetMessage_DeletedAppointmentBecomesUnavailable(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)
	f.repo.Delete(context.Background(), appID)

	resp, err := f.confirm.GetMessage(actorContext(f.doctor), msgID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if resp.CustomData.Status != chat.StatusUnavailable {
		t.Errorf("status = %q, want unavailable", resp.CustomData.Status)
	}
}

func TestGetMessage_RepairFailureStillShowsStoreStatus(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)
	f.repo.UpdateStatus(context.Background(), appID, entity.SourcesOf(entity.AppointmentStatusConfirmed), entity.AppointmentStatusConfirmed, nil)
	f.chat.setErr = errors.New("channel unavailable")

	resp, err := f.confirm.GetMessage(actorContext(f.doctor), msgID)
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if resp.CustomData.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("status = %q, want confirmed", resp.CustomData.Status)
	}
}

func TestGetConversation(t *testing.T) {
	f := newAppointmentFixture(t, false)
	first := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	second := f.seed(f.doctor.ID, f.patient.ID, "2026-03-11", "10:00", "11:00", entity.AppointmentStatusPending)
	f.sendRequest(t, first)
	f.sendRequest(t, second)
	f.repo.UpdateStatus(context.Background(), second, entity.SourcesOf(entity.AppointmentStatusConfirmed), entity.AppointmentStatusConfirmed, nil)

	messages, err := f.confirm.GetConversation(actorContext(f.doctor), "conv-1", 0)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].CustomData.Status != string(entity.AppointmentStatusConfirmed) {
		t.Errorf("second message status = %q", messages[1].CustomData.Status)
	}

	if _, err := f.confirm.GetConversation(actorContext(f.patient), "conv-1", 10); !errors.Is(err, apperror.ErrExternalChannel) {
		t.Errorf("no session: expected external channel error, got %v", err)
	}
}

func TestConfirmFromChat_UnknownMessageLeavesStoreUntouched(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	f.sendRequest(t, appID)
	if _, err := f.chat.Connect(context.Background(), f.patient.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: "no-such-message", AppID: appID})
	if !errors.Is(err, ErrMessageMismatch) || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if f.status(t, appID) != entity.AppointmentStatusPending {
		t.Error("store must not change when the message is unknown")
	}
}

func TestConfirmFromChat_MessageForAnotherAppointment(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	otherID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-11", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, otherID)
	if _, err := f.chat.Connect(context.Background(), f.patient.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: msgID, AppID: appID})
	if !errors.Is(err, ErrMessageMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if f.status(t, appID) != entity.AppointmentStatusPending || f.status(t, otherID) != entity.AppointmentStatusPending {
		t.Error("no appointment may be confirmed through a mismatched message")
	}
	if got := f.chat.status(msgID); got != chat.StatusPending {
		t.Errorf("message status = %q, want pending", got)
	}
}

func TestConfirmFromChat_MessageFromForeignConversation(t *testing.T) {
	f := newAppointmentFixture(t, false)
	ownID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	foreignID := f.seed(f.doctor.ID, f.other.ID, "2026-03-11", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, foreignID)
	if _, err := f.chat.Connect(context.Background(), f.patient.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.confirm.ConfirmFromChat(actorContext(f.patient), &dto.ChatConfirmRequest{MessageID: msgID, AppID: ownID})
	if !errors.Is(err, ErrNotInConversation) || !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected not in conversation, got %v", err)
	}
	if f.status(t, ownID) != entity.AppointmentStatusPending {
		t.Error("store must not change for a message outside the caller's conversations")
	}
}

func TestChatReads_OnlyConversationMembers(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	msgID := f.sendRequest(t, appID)
	for _, u := range []uuid.UUID{f.patient.ID, f.other.ID} {
		if _, err := f.chat.Connect(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	// the addressed patient joined the conversation with the request
	messages, err := f.confirm.GetConversation(actorContext(f.patient), "conv-1", 10)
	if err != nil || len(messages) != 1 {
		t.Fatalf("patient GetConversation() = %d messages, %v", len(messages), err)
	}
	if _, err := f.confirm.GetMessage(actorContext(f.patient), msgID); err != nil {
		t.Errorf("patient GetMessage() error = %v", err)
	}

	if _, err := f.confirm.GetConversation(actorContext(f.other), "conv-1", 10); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("stranger conversation: expected forbidden, got %v", err)
	}
	if _, err := f.confirm.GetMessage(actorContext(f.other), msgID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("stranger message: expected forbidden, got %v", err)
	}
	if _, err := f.confirm.GetConversation(actorContext(f.other), "conv-unknown", 10); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("unknown conversation: expected forbidden, got %v", err)
	}
}

func TestRequestConfirmation_ForeignConversation(t *testing.T) {
	f := newAppointmentFixture(t, false)
	appID := f.seed(f.doctor.ID, f.patient.ID, "2026-03-10", "10:00", "11:00", entity.AppointmentStatusPending)
	f.sendRequest(t, appID)

	outsider := uuid.New()
	if _, err := f.chat.Connect(context.Background(), outsider); err != nil {
		t.Fatal(err)
	}
	a := entity.Appointment{ID: "APP999999999", DoctorID: outsider, PatientID: f.patient.ID, StartTime: "12:00", EndTime: "13:00"}

	if _, err := f.confirm.RequestConfirmation(context.Background(), &a, "conv-1"); !errors.Is(err, ErrNotInConversation) {
		t.Fatalf("expected not in conversation, got %v", err)
	}
}
