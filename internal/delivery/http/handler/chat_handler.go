package handler

import (
	"net/http"

	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/usecase"
	"github.com/minervamed/clinic-scheduler/pkg/response"
	"github.com/minervamed/clinic-scheduler/pkg/validator"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	confirmationUsecase usecase.ConfirmationUsecase
	validator           *validator.CustomValidator
}

func NewChatHandler(confirmationUsecase usecase.ConfirmationUsecase, validator *validator.CustomValidator) *ChatHandler {
	return &ChatHandler{
		confirmationUsecase: confirmationUsecase,
		validator:           validator,
	}
}

// SyncConfirmation marks an appointment message confirmed after the store
// has been confirmed.
func (h *ChatHandler) SyncConfirmation(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmAppointmentChatRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	result, err := h.confirmationUsecase.SyncChatMessage(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to update chat message")
		return
	}

	response.Success(w, http.StatusOK, "Chat message updated successfully", result)
}

func (h *ChatHandler) ConfirmFromChat(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatConfirmRequest
	if !decode(w, r, h.validator, &req) {
		return
	}

	result, err := h.confirmationUsecase.ConfirmFromChat(r.Context(), &req)
	if err != nil {
		writeError(w, err, "Failed to confirm appointment")
		return
	}

	message := "Appointment confirmed successfully"
	if result.AlreadyConfirmed {
		message = "Appointment already confirmed"
	}
	response.Success(w, http.StatusOK, message, result)
}

func (h *ChatHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.confirmationUsecase.GetMessage(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "Failed to get chat message")
		return
	}

	response.Success(w, http.StatusOK, "Chat message retrieved successfully", msg)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	messages, err := h.confirmationUsecase.GetConversation(r.Context(), mux.Vars(r)["id"], queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, err, "Failed to get conversation")
		return
	}

	response.Success(w, http.StatusOK, "Conversation retrieved successfully", messages)
}
