package scheduler

import (
	"context"
	"sync"
	"task_tracker/internal/config"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ScheduleRoutine is a job run on every scheduler tick.
type ScheduleRoutine interface {
	Run(ctx context.Context) error
	Name() string
}

type SchedulerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger
	Routines  []ScheduleRoutine `group:"routines"`
}

type Scheduler struct {
	logger   *zap.Logger
	every    time.Duration
	routines []ScheduleRoutine

	processing sync.Mutex
	wg         sync.WaitGroup
}

func NewScheduler(p SchedulerParams) *Scheduler {
	s := New(p.Config.RecurrenceEvery, p.Logger, p.Routines...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Start(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return s
}

func New(every time.Duration, logger *zap.Logger, routines ...ScheduleRoutine) *Scheduler {
	if every <= 0 {
		every = time.Hour
	}
	return &Scheduler{
		logger:   logger.Named("scheduler"),
		every:    every,
		routines: routines,
	}
}

// Start runs the routines immediately and then on every tick until ctx is
// done. A tick that arrives while the previous run is still busy is skipped.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("every", s.every), zap.Int("routines", len(s.routines)))
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts one run in the background. It reports false when a run is
// already in progress.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.processing.TryLock() {
		s.logger.Warn("previous run still in progress, skipping this tick")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.processing.Unlock()
		s.runAll(ctx)
	}()
	return true
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, routine := range s.routines {
		s.logger.Debug("running routine", zap.String("name", routine.Name()))
		if err := routine.Run(ctx); err != nil {
			s.logger.Error("routine failed", zap.String("name", routine.Name()), zap.Error(err))
			continue
		}
		s.logger.Debug("routine completed", zap.String("name", routine.Name()))
	}
}

// Wait blocks until the current run, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
