package converter

import (
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
)

func ChatMessageToResponse(m *chat.Message) *dto.ChatMessageResponse {
	if m == nil {
		return nil
	}

	response := &dto.ChatMessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CustomType:     m.CustomType,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.CustomData != nil {
		response.CustomData = &dto.ChatAppointmentPayload{
			AppID:  m.CustomData.AppID,
			Label:  m.CustomData.Label,
			Status: m.CustomData.Status,
		}
	}
	return response
}
