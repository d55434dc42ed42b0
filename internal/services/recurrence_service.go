package services

import (
	"context"
	"errors"
	"fmt"
	"task_tracker/internal/models"
	"task_tracker/internal/repository"
	"time"

	"go.uber.org/zap"
)

type RecurrenceService interface {
	// Generate materialises the occurrences due on the calendar day of now.
	Generate(ctx context.Context, now time.Time) ([]models.Task, error)
}

type recurrenceService struct {
	taskRepo repository.TaskRepository
	loc      *time.Location
	logger   *zap.Logger
}

func NewRecurrenceService(taskRepo repository.TaskRepository, loc *time.Location, logger *zap.Logger) RecurrenceService {
	if loc == nil {
		loc = time.UTC
	}
	return &recurrenceService{
		taskRepo: taskRepo,
		loc:      loc,
		logger:   logger.Named("recurrence"),
	}
}

func (s *recurrenceService) Generate(ctx context.Context, now time.Time) ([]models.Task, error) {
	tasks, err := s.taskRepo.GetRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recurring tasks: %w", err)
	}

	today := now.In(s.loc)
	var created []models.Task
	var errs []error
	for _, src := range latestPerSeries(tasks) {
		next, ok := NextOccurrence(src, s.loc)
		if !ok || !sameDay(next, today) {
			continue
		}

		occ := newOccurrence(src, next)
		inserted, err := s.taskRepo.CreateOccurrence(ctx, occ)
		if err != nil {
			s.logger.Error("failed to create occurrence", zap.Uint("task_id", src.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("task %d: %w", src.ID, err))
			continue
		}
		if !inserted {
			s.logger.Debug("occurrence already exists", zap.Uint("series_id", seriesRoot(src)), zap.Time("date", next))
			continue
		}

		s.logger.Info("occurrence created",
			zap.Uint("series_id", seriesRoot(src)),
			zap.Uint("from_task_id", src.ID),
			zap.Uint("task_id", occ.ID),
			zap.Time("due_date", next))
		created = append(created, *occ)
	}

	return created, errors.Join(errs...)
}

// NextOccurrence advances the task's reference date (last completion, else
// due date) by its rule. Months use time.AddDate normalisation, so Jan 31
// plus one month is Mar 3 (Mar 2 in a leap year). It reports false when there
// is no reference date, no usable rule, or the result is past the end date.
func NextOccurrence(task *models.Task, loc *time.Location) (time.Time, bool) {
	rule := task.Recurrence()
	if rule == nil {
		return time.Time{}, false
	}

	ref, ok := task.LastCompleted()
	if !ok {
		if task.DueDate == nil {
			return time.Time{}, false
		}
		ref = *task.DueDate
	}
	ref = ref.In(loc)

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch models.Frequency(rule.Frequency) {
	case models.Daily:
		next = ref.AddDate(0, 0, interval)
	case models.Weekly:
		next = ref.AddDate(0, 0, 7*interval)
	case models.Monthly:
		next = ref.AddDate(0, interval, 0)
	default:
		return time.Time{}, false
	}

	if rule.EndDate != nil && dayOf(next).After(dayOf(rule.EndDate.In(loc))) {
		return time.Time{}, false
	}
	return next, true
}

// seriesRoot is the id of the first task of the series t belongs to.
func seriesRoot(t *models.Task) uint {
	if t.SourceTaskID != nil {
		return *t.SourceTaskID
	}
	return t.ID
}

// latestPerSeries keeps the newest member of every series. Only that member
// advances the series, so completing an older one cannot fork it.
func latestPerSeries(tasks []models.Task) []*models.Task {
	latest := make(map[uint]*models.Task)
	var order []uint
	for i := range tasks {
		t := &tasks[i]
		root := seriesRoot(t)
		cur, ok := latest[root]
		if !ok {
			order = append(order, root)
		}
		if !ok || t.ID > cur.ID {
			latest[root] = t
		}
	}
	out := make([]*models.Task, 0, len(order))
	for _, root := range order {
		out = append(out, latest[root])
	}
	return out
}

// newOccurrence builds the next instance of src field by field. Identity,
// status, completion history and comments start fresh.
func newOccurrence(src *models.Task, due time.Time) *models.Task {
	sourceID := seriesRoot(src)
	day := dayOf(due)
	assignees := make([]models.User, 0, len(src.Assignees))
	for _, u := range src.Assignees {
		assignees = append(assignees, models.User{ID: u.ID})
	}

	occ := &models.Task{
		Title:          src.Title,
		Description:    src.Description,
		Category:       src.Category,
		Status:         string(models.StatusToDo),
		DueDate:        &due,
		ProjectID:      src.ProjectID,
		Assignees:      assignees,
		SourceTaskID:   &sourceID,
		OccurrenceDate: &day,
	}
	occ.SetRecurrence(src.Recurrence())
	return occ
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dayOf truncates t to its calendar date in t's own location, expressed as
// UTC midnight so it can be stored in a date column.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
