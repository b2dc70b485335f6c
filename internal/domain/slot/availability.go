package slot

import (
	"fmt"
	"sort"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
)

// DefaultDurations are the durations offered when a free slot is clicked.
var DefaultDurations = []int{30, 60, 90, 120}

// Interval is a booked [Start, End) range on one date, in minutes of day.
type Interval struct {
	Ref   string
	Start int
	End   int
}

// NewInterval builds an Interval from HH:MM labels.
func NewInterval(ref, start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, fmt.Errorf("%w: end %s must be after start %s", apperror.ErrValidation, end, start)
	}
	return Interval{Ref: ref, Start: s, End: e}, nil
}

func (iv Interval) Contains(minute int) bool {
	return minute >= iv.Start && minute < iv.End
}

// Outcome is the result of clicking a calendar cell.
type Outcome struct {
	// Existing is the id of the booking covering the clicked slot.
	Existing  string
	Durations []int
	Default   int
}

// SelectsExisting reports whether the click should open an existing booking.
func (o Outcome) SelectsExisting() bool {
	return o.Existing != ""
}

// Plan is a concrete booking derived from a start slot and a requested duration.
type Plan struct {
	Start            string
	End              string
	Minutes          int
	RequestedMinutes int
	Clamped          bool
}

type Calculator struct {
	grid       *Grid
	candidates []int
}

func NewCalculator(grid *Grid, candidates []int) (*Calculator, error) {
	if len(candidates) == 0 {
		candidates = DefaultDurations
	}
	sorted := make([]int, len(candidates))
	copy(sorted, candidates)
	sort.Ints(sorted)
	for _, d := range sorted {
		if _, err := BlocksNeeded(d, grid.Step()); err != nil {
			return nil, err
		}
	}
	return &Calculator{grid: grid, candidates: sorted}, nil
}

func (c *Calculator) Grid() *Grid { return c.grid }

// Evaluate dispatches a click on clicked against the bookings of that date.
func (c *Calculator) Evaluate(clicked string, booked []Interval) (Outcome, error) {
	idx, err := c.grid.Index(clicked)
	if err != nil {
		return Outcome{}, err
	}

	minute := c.grid.StartMinute(idx)
	for _, iv := range booked {
		if iv.Contains(minute) {
			return Outcome{Existing: iv.Ref}, nil
		}
	}

	durations := c.Offerable(idx, booked)
	out := Outcome{Durations: durations}
	if len(durations) > 0 {
		out.Default = durations[0]
	}
	return out, nil
}

// Offerable returns, in ascending order, the candidate durations that fit in
// the day and do not run into a booking when starting at startIndex.
func (c *Calculator) Offerable(startIndex int, booked []Interval) []int {
	durations := make([]int, 0, len(c.candidates))
	for _, d := range c.candidates {
		blocks := d / c.grid.Step()
		if !FitsInDay(startIndex, blocks, c.grid.Len()) {
			continue
		}
		if !c.Free(startIndex, blocks, booked) {
			continue
		}
		durations = append(durations, d)
	}
	return durations
}

// Free reports whether none of the blocks slot starts from startIndex falls
// inside a booked interval.
func (c *Calculator) Free(startIndex, blocks int, booked []Interval) bool {
	for i := 0; i < blocks; i++ {
		if startIndex+i >= c.grid.Len() {
			return false
		}
		minute := c.grid.StartMinute(startIndex + i)
		for _, iv := range booked {
			if iv.Contains(minute) {
				return false
			}
		}
	}
	return true
}

// PlanBooking computes the end of a booking. A duration running past closing
// time is shrunk to the slots left in the day unless strict is set, in which
// case it is rejected.
func (c *Calculator) PlanBooking(start string, durationMinutes int, strict bool) (Plan, error) {
	idx, err := c.grid.Index(start)
	if err != nil {
		return Plan{}, err
	}
	requested, err := BlocksNeeded(durationMinutes, c.grid.Step())
	if err != nil {
		return Plan{}, err
	}

	remaining := c.grid.Len() - idx
	actual := min(requested, remaining)
	if actual < requested && strict {
		return Plan{}, fmt.Errorf("%w: %d minutes from %s runs past closing time %s",
			apperror.ErrValidation, durationMinutes, start, c.grid.Close())
	}

	return Plan{
		Start:            start,
		End:              c.grid.EndLabel(idx, actual),
		Minutes:          actual * c.grid.Step(),
		RequestedMinutes: durationMinutes,
		Clamped:          actual < requested,
	}, nil
}
