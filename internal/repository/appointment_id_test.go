package repository

import (
	"strconv"
	"strings"
	"testing"
)

func TestNewAppointmentID_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := NewAppointmentID()
		if err != nil {
			t.Fatalf("NewAppointmentID() error = %v", err)
		}
		if len(id) != 12 || !strings.HasPrefix(id, "APP") {
			t.Fatalf("id %q should be APP plus nine digits", id)
		}
		n, err := strconv.Atoi(id[3:])
		if err != nil {
			t.Fatalf("id %q has a non numeric suffix", id)
		}
		if n < 100000000 || n > 999999999 {
			t.Fatalf("id %q out of range", id)
		}
		seen[id] = true
	}
	if len(seen) < 490 {
		t.Errorf("only %d distinct ids out of 500", len(seen))
	}
}
