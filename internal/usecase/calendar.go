package usecase

import (
	"context"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// blockingIntervals loads the doctor's pending and confirmed appointments on
// date as grid intervals. Rows whose times do not parse are skipped.
func blockingIntervals(ctx context.Context, log *logrus.Logger, repo repository.AppointmentRepository, doctorID uuid.UUID, date time.Time) ([]slot.Interval, error) {
	rows, err := repo.FindByDoctorAndRange(ctx, doctorID, entity.AppointmentRange{
		From:         date,
		To:           date,
		BlockingOnly: true,
	})
	if err != nil {
		return nil, err
	}

	intervals := make([]slot.Interval, 0, len(rows))
	for _, a := range rows {
		if !a.IsBlocking() {
			continue
		}
		iv, err := slot.NewInterval(a.ID, a.StartTime, a.EndTime)
		if err != nil {
			log.Warnf("Skipping appointment %s with malformed times %s-%s: %+v", a.ID, a.StartTime, a.EndTime, err)
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}
