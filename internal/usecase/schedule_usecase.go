package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/converter"
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"

	"github.com/sirupsen/logrus"
)

const noDurationMessage = "No duration available"

type ScheduleUsecase interface {
	GetSlots() *dto.SlotsResponse
	CheckAvailability(ctx context.Context, date, clicked string) (*dto.AvailabilityResponse, error)
	GetWeek(ctx context.Context, month string, offset int) (*dto.WeekResponse, error)
}

type scheduleUsecase struct {
	log        *logrus.Logger
	repo       repository.AppointmentRepository
	calc       *slot.Calculator
	candidates []int
	loc        *time.Location
	now        func() time.Time
}

func NewScheduleUsecase(log *logrus.Logger, repo repository.AppointmentRepository, calc *slot.Calculator, candidates []int, loc *time.Location) ScheduleUsecase {
	if loc == nil {
		loc = time.UTC
	}
	return &scheduleUsecase{
		log:        log,
		repo:       repo,
		calc:       calc,
		candidates: candidates,
		loc:        loc,
		now:        time.Now,
	}
}

func (u *scheduleUsecase) GetSlots() *dto.SlotsResponse {
	grid := u.calc.Grid()
	return &dto.SlotsResponse{
		Open:      grid.Open(),
		Close:     grid.Close(),
		Step:      grid.Step(),
		Slots:     grid.Slots(),
		Durations: u.candidates,
	}
}

// CheckAvailability answers a click on a calendar cell. If the store cannot
// be read the answer degrades to no durations instead of failing.
func (u *scheduleUsecase) CheckAvailability(ctx context.Context, date, clicked string) (*dto.AvailabilityResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: doctor calendar", apperror.ErrForbidden)
	}

	day, err := time.ParseInLocation(slot.DateLayout, date, u.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", apperror.ErrValidation, date)
	}
	if _, err := u.calc.Grid().Index(clicked); err != nil {
		return nil, err
	}

	resp := &dto.AvailabilityResponse{
		Date:      date,
		Time:      clicked,
		Durations: []int{},
	}

	booked, err := blockingIntervals(ctx, u.log, u.repo, actor.ID, day)
	if err != nil {
		u.log.Warnf("Availability for doctor %s on %s degraded: %+v", actor.ID, date, err)
		resp.Message = noDurationMessage
		return resp, nil
	}

	outcome, err := u.calc.Evaluate(clicked, booked)
	if err != nil {
		return nil, err
	}

	if outcome.SelectsExisting() {
		resp.ExistingAppointmentID = outcome.Existing
		return resp, nil
	}
	if len(outcome.Durations) == 0 {
		resp.Message = noDurationMessage
		return resp, nil
	}

	resp.Durations = outcome.Durations
	resp.DefaultDuration = outcome.Default
	return resp, nil
}

// GetWeek returns one page of the doctor's calendar. Only pending and
// confirmed appointments are listed. An empty month means the current one.
func (u *scheduleUsecase) GetWeek(ctx context.Context, month string, offset int) (*dto.WeekResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: doctor calendar", apperror.ErrForbidden)
	}

	var ref time.Time
	if month == "" {
		ref = u.now().In(u.loc)
	} else {
		ref, err = time.ParseInLocation(slot.MonthLayout, month, u.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid month %q, use YYYY-MM", apperror.ErrValidation, month)
		}
	}

	days := slot.WeekDates(ref, offset)
	from, to := days[0], days[len(days)-1]

	rows, err := u.repo.FindByDoctorAndRange(ctx, actor.ID, entity.AppointmentRange{
		From:         from,
		To:           to,
		BlockingOnly: true,
	})
	if err != nil {
		u.log.Warnf("Failed to load week for doctor %s: %+v", actor.ID, err)
		return nil, err
	}

	byDate := make(map[string][]entity.Appointment, len(days))
	for _, a := range rows {
		byDate[a.DateString()] = append(byDate[a.DateString()], a)
	}

	week := make([]dto.WeekDayResponse, len(days))
	for i, d := range days {
		key := d.Format(slot.DateLayout)
		week[i] = dto.WeekDayResponse{
			Date:         key,
			Weekday:      d.Weekday().String(),
			Appointments: converter.AppointmentsToResponses(byDate[key]),
		}
	}

	return &dto.WeekResponse{
		Month:  ref.Format(slot.MonthLayout),
		Offset: offset,
		From:   from.Format(slot.DateLayout),
		To:     to.Format(slot.DateLayout),
		Slots:  u.calc.Grid().Slots(),
		Days:   week,
	}, nil
}
