package scheduler

import (
	"context"
	"task_tracker/internal/services"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RecurrenceRoutine materialises recurring task occurrences due today.
type RecurrenceRoutine struct {
	recurrence services.RecurrenceService
	logger     *zap.Logger
	now        func() time.Time
}

func NewRecurrenceRoutine(recurrence services.RecurrenceService, logger *zap.Logger) ScheduleRoutine {
	return &RecurrenceRoutine{
		recurrence: recurrence,
		logger:     logger.Named("recurrence_routine"),
		now:        time.Now,
	}
}

func (r *RecurrenceRoutine) Run(ctx context.Context) error {
	created, err := r.recurrence.Generate(ctx, r.now())
	if len(created) > 0 {
		r.logger.Info("recurring occurrences created", zap.Int("count", len(created)))
	}
	return err
}

func (r *RecurrenceRoutine) Name() string {
	return "RecurrenceRoutine"
}

var Module = fx.Options(
	fx.Provide(fx.Annotated{
		Group:  "routines",
		Target: NewRecurrenceRoutine,
	}),
	fx.Provide(NewScheduler),
)
