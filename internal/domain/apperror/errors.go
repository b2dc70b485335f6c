// Package apperror holds the error kinds shared by the scheduling core.
// Callers wrap them with fmt.Errorf("%w: ...") and the delivery layer maps
// them to HTTP status codes with errors.Is.
package apperror

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrExternalChannel = errors.New("external channel unavailable")
	ErrUnauthenticated = errors.New("authentication required")
)
