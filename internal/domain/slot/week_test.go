package slot

import (
	"testing"
	"time"
)

func TestWeekDates_MonthStartingMidweek(t *testing.T) {
	// 1 May 2025 is a Thursday, so the first page starts on Monday 28 April.
	month := time.Date(2025, time.May, 17, 0, 0, 0, 0, time.UTC)

	days := WeekDates(month, 0)
	if len(days) != WorkWeekDays {
		t.Fatalf("expected %d days, got %d", WorkWeekDays, len(days))
	}
	if got := days[0].Format(DateLayout); got != "2025-04-28" {
		t.Errorf("expected 2025-04-28, got %s", got)
	}
	if got := days[4].Format(DateLayout); got != "2025-05-02" {
		t.Errorf("expected 2025-05-02, got %s", got)
	}
}

func TestWeekDates_OffsetAndConsecutive(t *testing.T) {
	month := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC) // Monday

	days := WeekDates(month, 2)
	if got := days[0].Format(DateLayout); got != "2025-09-15" {
		t.Errorf("expected 2025-09-15, got %s", got)
	}
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) != 24*time.Hour {
			t.Errorf("day %d is not consecutive", i)
		}
		if days[i].Weekday() == time.Saturday || days[i].Weekday() == time.Sunday {
			t.Errorf("day %d falls on a weekend", i)
		}
	}
}

func TestWeekRange(t *testing.T) {
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) // Sunday

	from, to := WeekRange(month, 0)
	if from.After(to) {
		t.Fatal("range start after end")
	}
	if got := from.Format(DateLayout); got != "2025-05-26" {
		t.Errorf("expected 2025-05-26, got %s", got)
	}
	if got := to.Format(DateLayout); got != "2025-05-30" {
		t.Errorf("expected 2025-05-30, got %s", got)
	}
}
