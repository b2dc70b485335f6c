package repository

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	appointmentIDPrefix = "APP"
	appointmentIDMin    = 100000000
	appointmentIDSpan   = 900000000
)

// NewAppointmentID returns "APP" followed by nine random digits, the first
// of which is never zero.
func NewAppointmentID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(appointmentIDSpan))
	if err != nil {
		return "", fmt.Errorf("generate appointment id: %w", err)
	}
	return fmt.Sprintf("%s%d", appointmentIDPrefix, n.Int64()+appointmentIDMin), nil
}
