package dto

type SlotsResponse struct {
	Open      string   `json:"open"`
	Close     string   `json:"close"`
	Step      int      `json:"step_minutes"`
	Slots     []string `json:"slots"`
	Durations []int    `json:"durations"`
}

// AvailabilityResponse either points at the appointment covering the clicked
// slot or lists the durations that can be booked from it.
type AvailabilityResponse struct {
	Date                  string `json:"date"`
	Time                  string `json:"time"`
	ExistingAppointmentID string `json:"existing_appointment_id,omitempty"`
	Durations             []int  `json:"durations"`
	DefaultDuration       int    `json:"default_duration,omitempty"`
	Message               string `json:"message,omitempty"`
}

type WeekDayResponse struct {
	Date         string                `json:"date"`
	Weekday      string                `json:"weekday"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type WeekResponse struct {
	Month  string            `json:"month"`
	Offset int               `json:"offset"`
	From   string            `json:"from"`
	To     string            `json:"to"`
	Slots  []string          `json:"slots"`
	Days   []WeekDayResponse `json:"days"`
}
