package dto

import (
	"time"

	"github.com/google/uuid"
)

// ConfirmAppointmentChatRequest syncs a chat message with a status already
// confirmed in the store.
type ConfirmAppointmentChatRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	UserID    string `json:"userId" validate:"required,uuid"`
	AppID     string `json:"appId" validate:"required,len=12"`
}

type ChatConfirmRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	AppID     string `json:"appId" validate:"required,len=12"`
}

type ChatAppointmentPayload struct {
	AppID  string `json:"appId"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

type ChatMessageResponse struct {
	ID             string                  `json:"id"`
	ConversationID string                  `json:"conversation_id"`
	SenderID       uuid.UUID               `json:"sender_id"`
	Text           string                  `json:"text,omitempty"`
	CustomType     string                  `json:"customType,omitempty"`
	CustomData     *ChatAppointmentPayload `json:"customData,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type ChatSyncResponse struct {
	AppID     string `json:"appId"`
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}
