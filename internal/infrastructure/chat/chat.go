// Package chat is the messaging channel used to ask patients to confirm
// appointments. Every user talks to it through a per-session Handle.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"

	"github.com/google/uuid"
)

const CustomTypeAppointmentRequest = "appointmentRequest"

// Message status values carried in AppointmentRequest.Status besides the
// appointment statuses themselves.
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusUnavailable = "unavailable"
)

var (
	ErrNotConnected    = fmt.Errorf("%w: user has no chat session", apperror.ErrExternalChannel)
	ErrMessageNotFound = fmt.Errorf("%w: chat message", apperror.ErrNotFound)
	ErrNotAppointment  = errors.New("chat message is not an appointment request")
)

// AppointmentRequest is the custom payload of an appointment confirmation
// message.
type AppointmentRequest struct {
	AppID  string `json:"appId"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

type Message struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	SenderID       uuid.UUID           `json:"sender_id"`
	Text           string              `json:"text,omitempty"`
	CustomType     string              `json:"custom_type,omitempty"`
	CustomData     *AppointmentRequest `json:"custom_data,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`

	// Recipients join the conversation together with the sender on Send.
	Recipients []uuid.UUID `json:"-"`
}

// Appointment returns the embedded request, or ErrNotAppointment.
func (m *Message) Appointment() (*AppointmentRequest, error) {
	if m.CustomType != CustomTypeAppointmentRequest || m.CustomData == nil {
		return nil, ErrNotAppointment
	}
	return m.CustomData, nil
}

// Handle is one user's connection to the channel.
type Handle interface {
	UserID() uuid.UUID
	Send(ctx context.Context, msg *Message) (*Message, error)
	Get(ctx context.Context, messageID string) (*Message, error)
	// SetAppointmentStatus rewrites only CustomData.Status.
	SetAppointmentStatus(ctx context.Context, messageID, status string) (*Message, error)
	History(ctx context.Context, conversationID string, limit int) ([]Message, error)
	// Members lists everyone who sent to or was addressed in the
	// conversation. It is empty for a conversation that does not exist.
	Members(ctx context.Context, conversationID string) ([]uuid.UUID, error)
}

// Connector opens and closes sessions. Connect is called on login and
// Disconnect on logout; Session returns ErrNotConnected in between.
type Connector interface {
	Connect(ctx context.Context, userID uuid.UUID) (Handle, error)
	Session(ctx context.Context, userID uuid.UUID) (Handle, error)
	Disconnect(ctx context.Context, userID uuid.UUID) error
}
