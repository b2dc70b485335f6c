package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/minervamed/clinic-scheduler/internal/converter"
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
	"github.com/minervamed/clinic-scheduler/internal/service"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrMessageMismatch   = fmt.Errorf("%w: message does not refer to this appointment", apperror.ErrValidation)
	ErrNotConfirmedYet   = fmt.Errorf("%w: appointment is not confirmed", apperror.ErrForbidden)
	ErrNotInConversation = fmt.Errorf("%w: not a member of this conversation", apperror.ErrForbidden)
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ConfirmationUsecase keeps chat confirmation messages in step with the
// appointment store. The store always wins when the two disagree.
type ConfirmationUsecase interface {
	ConfirmationRequester
	ConfirmFromChat(ctx context.Context, req *dto.ChatConfirmRequest) (*dto.LifecycleResponse, error)
	SyncChatMessage(ctx context.Context, req *dto.ConfirmAppointmentChatRequest) (*dto.ChatSyncResponse, error)
	GetMessage(ctx context.Context, messageID string) (*dto.ChatMessageResponse, error)
	GetConversation(ctx context.Context, conversationID string, limit int) ([]dto.ChatMessageResponse, error)
}

type confirmationUsecase struct {
	log       *logrus.Logger
	repo      repository.AppointmentRepository
	connector chat.Connector
	metrics   *metrics.Collector
	lifecycle *lifecycle
}

func NewConfirmationUsecase(
	log *logrus.Logger,
	repo repository.AppointmentRepository,
	connector chat.Connector,
	audit service.AuditService,
	m *metrics.Collector,
) ConfirmationUsecase {
	return &confirmationUsecase{
		log:       log,
		repo:      repo,
		connector: connector,
		metrics:   m,
		lifecycle: &lifecycle{log: log, repo: repo, audit: audit, metrics: m},
	}
}

// RequestConfirmation posts an appointment request into the conversation
// from the doctor's session and returns the message id.
func (u *confirmationUsecase) RequestConfirmation(ctx context.Context, a *entity.Appointment, conversationID string) (string, error) {
	handle, err := u.connector.Session(ctx, a.DoctorID)
	if err != nil {
		u.metrics.ChatFailures.WithLabelValues("send").Inc()
		return "", err
	}

	if err := u.checkMember(ctx, handle, conversationID, true); err != nil {
		if !errors.Is(err, ErrNotInConversation) {
			u.metrics.ChatFailures.WithLabelValues("send").Inc()
		}
		return "", err
	}

	label := a.ConfirmationLabel()
	msg, err := handle.Send(ctx, &chat.Message{
		ConversationID: conversationID,
		Recipients:     []uuid.UUID{a.PatientID},
		Text:           label,
		CustomType:     chat.CustomTypeAppointmentRequest,
		CustomData: &chat.AppointmentRequest{
			AppID:  a.ID,
			Label:  label,
			Status: chat.StatusPending,
		},
	})
	if err != nil {
		u.metrics.ChatFailures.WithLabelValues("send").Inc()
		return "", err
	}

	u.log.WithFields(logrus.Fields{
		"app_id":          a.ID,
		"message_id":      msg.ID,
		"conversation_id": conversationID,
	}).Info("Confirmation request sent")
	return msg.ID, nil
}

// ConfirmFromChat checks that the message is a request for this appointment
// before anything is written. Only an unreachable channel lets the store
// confirmation go ahead without the message; the message is then left as it
// was and the response carries a warning.
func (u *confirmationUsecase) ConfirmFromChat(ctx context.Context, req *dto.ChatConfirmRequest) (*dto.LifecycleResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	handle, msg, chatErr := u.appointmentMessage(ctx, actor.ID, req.MessageID, req.AppID)
	if chatErr != nil && !errors.Is(chatErr, apperror.ErrExternalChannel) {
		return nil, chatErr
	}

	a, already, err := u.lifecycle.confirm(ctx, actor, req.AppID)
	if err != nil {
		return nil, err
	}

	resp := &dto.LifecycleResponse{
		AppID:            a.ID,
		Status:           string(a.Status),
		AlreadyConfirmed: already,
	}

	if chatErr == nil && msg.CustomData.Status != chat.StatusConfirmed {
		_, chatErr = handle.SetAppointmentStatus(ctx, msg.ID, chat.StatusConfirmed)
	}
	if chatErr != nil {
		u.metrics.ChatFailures.WithLabelValues("confirm").Inc()
		u.log.Warnf("Appointment %s confirmed but message %s not updated: %+v", a.ID, req.MessageID, chatErr)
		resp.Warning = "Appointment confirmed, but the chat message could not be updated"
	}
	return resp, nil
}

// SyncChatMessage marks a message confirmed once the store agrees.
func (u *confirmationUsecase) SyncChatMessage(ctx context.Context, req *dto.ConfirmAppointmentChatRequest) (*dto.ChatSyncResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserID != actor.ID.String() {
		return nil, fmt.Errorf("%w: user id does not match the session", apperror.ErrForbidden)
	}

	a, err := u.lifecycle.load(ctx, req.AppID)
	if err != nil {
		return nil, err
	}
	if a.Status != entity.AppointmentStatusConfirmed && a.Status != entity.AppointmentStatusCompleted {
		return nil, ErrNotConfirmedYet
	}

	handle, msg, err := u.appointmentMessage(ctx, actor.ID, req.MessageID, a.ID)
	if err == nil && msg.CustomData.Status != chat.StatusConfirmed {
		_, err = handle.SetAppointmentStatus(ctx, msg.ID, chat.StatusConfirmed)
	}
	if err != nil {
		if !errors.Is(err, ErrMessageMismatch) && !errors.Is(err, apperror.ErrForbidden) {
			u.metrics.ChatFailures.WithLabelValues("sync").Inc()
			u.log.Warnf("Failed to sync message %s for appointment %s: %+v", req.MessageID, a.ID, err)
		}
		return nil, err
	}

	return &dto.ChatSyncResponse{
		AppID:     a.ID,
		MessageID: req.MessageID,
		Status:    chat.StatusConfirmed,
	}, nil
}

// appointmentMessage loads messageID through userID's session and checks
// that it is a request for appID in a conversation the user belongs to. A
// message that does not exist is reported as a mismatch.
func (u *confirmationUsecase) appointmentMessage(ctx context.Context, userID uuid.UUID, messageID, appID string) (chat.Handle, *chat.Message, error) {
	handle, err := u.connector.Session(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	msg, err := handle.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, ErrMessageMismatch
		}
		return nil, nil, err
	}
	if err := u.checkMember(ctx, handle, msg.ConversationID, false); err != nil {
		return nil, nil, err
	}

	payload, err := msg.Appointment()
	if err != nil || payload.AppID != appID {
		return nil, nil, ErrMessageMismatch
	}
	return handle, msg, nil
}

// checkMember fails with ErrNotInConversation unless the handle's user
// belongs to the conversation. With allowNew a conversation nobody has
// joined yet is open to the caller.
func (u *confirmationUsecase) checkMember(ctx context.Context, handle chat.Handle, conversationID string, allowNew bool) error {
	members, err := handle.Members(ctx, conversationID)
	if err != nil {
		return err
	}
	if allowNew && len(members) == 0 {
		return nil
	}
	if !slices.Contains(members, handle.UserID()) {
		return ErrNotInConversation
	}
	return nil
}

// GetMessage returns a message with its appointment status repaired from
// the store.
func (u *confirmationUsecase) GetMessage(ctx context.Context, messageID string) (*dto.ChatMessageResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := u.connector.Session(ctx, actor.ID)
	if err != nil {
		u.readFailed(messageID, err)
		return nil, err
	}

	msg, err := handle.Get(ctx, messageID)
	if err == nil {
		err = u.checkMember(ctx, handle, msg.ConversationID, false)
	}
	if err != nil {
		u.readFailed(messageID, err)
		return nil, err
	}

	return converter.ChatMessageToResponse(u.repair(ctx, handle, msg)), nil
}

func (u *confirmationUsecase) GetConversation(ctx context.Context, conversationID string, limit int) ([]dto.ChatMessageResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	handle, err := u.connector.Session(ctx, actor.ID)
	if err != nil {
		u.readFailed(conversationID, err)
		return nil, err
	}

	if err := u.checkMember(ctx, handle, conversationID, false); err != nil {
		u.readFailed(conversationID, err)
		return nil, err
	}

	messages, err := handle.History(ctx, conversationID, limit)
	if err != nil {
		u.readFailed(conversationID, err)
		return nil, err
	}

	responses := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *converter.ChatMessageToResponse(u.repair(ctx, handle, &messages[i])))
	}
	return responses, nil
}

// readFailed records a channel failure on a read. Caller mistakes such as
// unknown ids or foreign conversations are not counted.
func (u *confirmationUsecase) readFailed(id string, err error) {
	if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrForbidden) {
		return
	}
	u.metrics.ChatFailures.WithLabelValues("read").Inc()
	u.log.Warnf("Failed to read chat %s: %+v", id, err)
}

// repair compares an appointment message with the store. A stale status is
// rewritten in the channel; a deleted appointment becomes unavailable. When
// the rewrite fails the caller still sees the store's status.
func (u *confirmationUsecase) repair(ctx context.Context, handle chat.Handle, msg *chat.Message) *chat.Message {
	payload, err := msg.Appointment()
	if err != nil {
		return msg
	}

	a, err := u.repo.FindByID(ctx, payload.AppID)
	if err != nil {
		u.log.Warnf("Skipping repair of message %s: %+v", msg.ID, err)
		return msg
	}

	want := chat.StatusUnavailable
	if a != nil {
		want = string(a.Status)
	}
	if payload.Status == want {
		return msg
	}

	updated, err := handle.SetAppointmentStatus(ctx, msg.ID, want)
	if err != nil {
		u.metrics.ChatFailures.WithLabelValues("repair").Inc()
		u.log.Warnf("Failed to repair message %s to %s: %+v", msg.ID, want, err)
		payload.Status = want
		return msg
	}

	u.log.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"app_id":     payload.AppID,
		"from":       payload.Status,
		"to":         want,
	}).Info("Chat message repaired")
	return updated
}
