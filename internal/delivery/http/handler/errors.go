package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/pkg/response"
	"github.com/minervamed/clinic-scheduler/pkg/validator"
)

// chatUnavailableMessage replaces the chat client's own error text, which
// can carry transport details such as addresses.
const chatUnavailableMessage = "Chat service unavailable"

var errorStatuses = []struct {
	target  error
	status  int
	message string
}{
	{apperror.ErrValidation, http.StatusBadRequest, ""},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, ""},
	{apperror.ErrForbidden, http.StatusForbidden, ""},
	{apperror.ErrNotFound, http.StatusNotFound, ""},
	{apperror.ErrConflict, http.StatusConflict, ""},
	{apperror.ErrExternalChannel, http.StatusBadGateway, chatUnavailableMessage},
}

// writeError maps domain errors to a status code. The client sees the text
// following the error kind, so "not found: Appointment unavailable" becomes
// "Appointment unavailable". Kinds with a fixed message hide the detail.
// Anything unmapped is a 500 with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.target) {
			msg := e.message
			if msg == "" {
				msg = describe(err, e.target)
			}
			response.Error(w, e.status, msg, nil)
			return
		}
	}
	response.InternalServerError(w, fallback)
}

func describe(err, kind error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, kind.Error()+": "); i >= 0 {
		msg = msg[i+len(kind.Error())+2:]
	}
	if msg == "" {
		return kind.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// decode reads a JSON body into req and validates it. On failure the
// response has been written and false is returned.
func decode(w http.ResponseWriter, r *http.Request, v *validator.CustomValidator, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := v.Validate(req); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}
