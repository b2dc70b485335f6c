package slot

import "time"

const (
	DateLayout   = "2006-01-02"
	MonthLayout  = "2006-01"
	WorkWeekDays = 5
)

// WeekDates returns the five weekdays of the calendar page identified by a
// reference month and a week offset. Page 0 starts on the Monday of the week
// containing the first day of the month.
func WeekDates(month time.Time, offset int) []time.Time {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	sinceMonday := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -sinceMonday+7*offset)

	days := make([]time.Time, WorkWeekDays)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// WeekRange returns the first and last date of a calendar page.
func WeekRange(month time.Time, offset int) (time.Time, time.Time) {
	days := WeekDates(month, offset)
	return days[0], days[len(days)-1]
}
