// Package slot implements the fixed daily slot grid, the availability
// calculator used when a calendar cell is clicked, and the weekly window
// the doctor calendar is rendered in.
package slot

import (
	"fmt"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
)

// ClockLayout is the wall-clock format used for every slot label.
const ClockLayout = "15:04"

var (
	ErrInvalidSlot     = fmt.Errorf("%w: time is not a slot on the grid", apperror.ErrValidation)
	ErrInvalidDuration = fmt.Errorf("%w: duration must be a positive multiple of the slot step", apperror.ErrValidation)
	ErrInvalidClock    = fmt.Errorf("%w: invalid time format, use HH:MM", apperror.ErrValidation)
)

// Grid is the ordered set of bookable start times in a business day.
type Grid struct {
	open   int
	close  int
	step   int
	labels []string
	index  map[string]int
}

// NewGrid builds the grid for [open, close) in steps of stepMinutes.
func NewGrid(open, close string, stepMinutes int) (*Grid, error) {
	openMin, err := ParseClock(open)
	if err != nil {
		return nil, err
	}
	closeMin, err := ParseClock(close)
	if err != nil {
		return nil, err
	}
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("%w: step must be positive", apperror.ErrValidation)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("%w: closing time %s must be after opening time %s", apperror.ErrValidation, close, open)
	}
	if (closeMin-openMin)%stepMinutes != 0 {
		return nil, fmt.Errorf("%w: business hours are not a multiple of %d minutes", apperror.ErrValidation, stepMinutes)
	}

	count := (closeMin - openMin) / stepMinutes
	g := &Grid{
		open:   openMin,
		close:  closeMin,
		step:   stepMinutes,
		labels: make([]string, 0, count),
		index:  make(map[string]int, count),
	}
	for i := 0; i < count; i++ {
		label := FormatClock(openMin + i*stepMinutes)
		g.labels = append(g.labels, label)
		g.index[label] = i
	}
	return g, nil
}

// GenerateSlots returns the slot labels for the given business hours.
func GenerateSlots(open, close string, stepMinutes int) ([]string, error) {
	g, err := NewGrid(open, close, stepMinutes)
	if err != nil {
		return nil, err
	}
	return g.Slots(), nil
}

// Slots returns a copy of the ordered slot labels.
func (g *Grid) Slots() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

func (g *Grid) Len() int  { return len(g.labels) }
func (g *Grid) Step() int { return g.step }

func (g *Grid) Open() string  { return FormatClock(g.open) }
func (g *Grid) Close() string { return FormatClock(g.close) }

// Index returns the position of label in the grid.
func (g *Grid) Index(label string) (int, error) {
	i, ok := g.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	return i, nil
}

// Label returns the slot label at position i.
func (g *Grid) Label(i int) string {
	return g.labels[i]
}

// StartMinute returns the minute of day at which slot i begins.
func (g *Grid) StartMinute(i int) int {
	return g.open + i*g.step
}

// EndLabel returns the wall-clock time reached after blocks slots starting at
// position start. The result may equal the closing time.
func (g *Grid) EndLabel(start, blocks int) string {
	return FormatClock(g.open + (start+blocks)*g.step)
}

// BlocksNeeded converts a duration into a number of contiguous slots.
func BlocksNeeded(durationMinutes, stepMinutes int) (int, error) {
	if stepMinutes <= 0 || durationMinutes <= 0 || durationMinutes%stepMinutes != 0 {
		return 0, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}
	return durationMinutes / stepMinutes, nil
}

// FitsInDay reports whether blockCount slots starting at startIndex stay inside the day.
func FitsInDay(startIndex, blockCount, totalSlots int) bool {
	return startIndex+blockCount <= totalSlots
}

// ParseClock parses an HH:MM label into minutes since midnight.
func ParseClock(label string) (int, error) {
	t, err := time.Parse(ClockLayout, label)
	if err != nil || len(label) != len(ClockLayout) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, label)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
