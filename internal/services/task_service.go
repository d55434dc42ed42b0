package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"task_tracker/internal/models"
	"task_tracker/internal/repository"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecurrenceInput is the recurrence part of a task form. An interval below 1
// is stored as 1.
type RecurrenceInput struct {
	IsRecurring bool
	Frequency   string
	Interval    int
	EndDate     *time.Time
}

type CreateTaskInput struct {
	Title       string
	Description string
	Category    string
	Status      string
	DueDate     *time.Time
	AssigneeIDs []uint
	Recurrence  RecurrenceInput
}

// UpdateTaskInput replaces every editable field of a task.
type UpdateTaskInput = CreateTaskInput

// TaskView is a task as returned to clients: recurrence folded into one
// object and comment authors resolved.
type TaskView struct {
	models.Task
	Recurrence *models.Recurrence `json:"recurrence"`
	Comments   []CommentView      `json:"comments"`
}

type TaskService interface {
	Create(ctx context.Context, projectID uint, in CreateTaskInput) (*TaskView, error)
	Update(ctx context.Context, p *Principal, id uint, in UpdateTaskInput) (*TaskView, error)
	TransitionStatus(ctx context.Context, p *Principal, id uint, status string) (*TaskView, error)
	Delete(ctx context.Context, id uint) error
	ListByProject(ctx context.Context, p *Principal, projectID uint) ([]TaskView, error)
	ListByAssignee(ctx context.Context, userID uint) ([]TaskView, error)
	ListAll(ctx context.Context) ([]TaskView, error)
}

type taskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	logger *zap.Logger,
) TaskService {
	return &taskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger.Named("tasks"),
		now:         time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, projectID uint, in CreateTaskInput) (*TaskView, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	dup, err := s.taskRepo.ExistsDuplicate(ctx, projectID, in.Title, in.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate task: %w", err)
	}
	if dup {
		return nil, ErrDuplicateTask
	}

	task := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      in.Status,
		DueDate:     in.DueDate,
		ProjectID:   projectID,
		Assignees:   userRefs(in.AssigneeIDs),
	}
	task.SetRecurrence(recurrenceFrom(in.Recurrence))
	if task.IsCompleted() {
		task.CompletedDates = append(task.CompletedDates, s.now())
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTask
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created",
		zap.Uint("task_id", task.ID),
		zap.Uint("project_id", projectID),
		zap.Bool("recurring", task.IsRecurring))

	return s.view(ctx, task.ID)
}

// Update is a full replace. Completed tasks are frozen.
func (s *taskService) Update(ctx context.Context, p *Principal, id uint, in UpdateTaskInput) (*TaskView, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return nil, ErrTaskAlreadyCompleted
	}
	if err := canModify(p, task); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	if in.Title != task.Title || in.Description != task.Description {
		dup, err := s.taskRepo.ExistsDuplicate(ctx, task.ProjectID, in.Title, in.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to check duplicate task: %w", err)
		}
		if dup {
			return nil, ErrDuplicateTask
		}
	}

	task.Title = in.Title
	task.Description = in.Description
	task.Category = in.Category
	task.Status = in.Status
	task.DueDate = in.DueDate
	task.Assignees = userRefs(in.AssigneeIDs)
	task.SetRecurrence(recurrenceFrom(in.Recurrence))
	if task.IsCompleted() {
		task.CompletedDates = append(task.CompletedDates, s.now())
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, s.translateWriteErr(err)
	}
	return s.view(ctx, id)
}

func (s *taskService) TransitionStatus(ctx context.Context, p *Principal, id uint, status string) (*TaskView, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.ValidStatus(status) {
		return nil, NewValidationError("Invalid status %q", status)
	}
	if task.IsCompleted() {
		return nil, ErrTaskAlreadyCompleted
	}
	if err := canModify(p, task); err != nil {
		return nil, err
	}

	task.Status = status
	if task.IsCompleted() {
		task.CompletedDates = append(task.CompletedDates, s.now())
	}
	if err := s.taskRepo.UpdateStatus(ctx, task); err != nil {
		return nil, s.translateWriteErr(err)
	}

	s.logger.Info("task status changed", zap.Uint("task_id", id), zap.String("status", status))
	return s.view(ctx, id)
}

func (s *taskService) Delete(ctx context.Context, id uint) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("task deleted", zap.Uint("task_id", id))
	return nil
}

func (s *taskService) ListByProject(ctx context.Context, p *Principal, projectID uint) ([]TaskView, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if !p.IsAdmin() && !project.HasMember(p.ID) {
		return nil, ErrProjectNotFound
	}

	tasks, err := s.taskRepo.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks), nil
}

func (s *taskService) ListByAssignee(ctx context.Context, userID uint) ([]TaskView, error) {
	tasks, err := s.taskRepo.GetByAssignee(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks), nil
}

func (s *taskService) ListAll(ctx context.Context) ([]TaskView, error) {
	tasks, err := s.taskRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, tasks), nil
}

// validate normalises in place and checks everything that does not need the
// stored task.
func (s *taskService) validate(ctx context.Context, in *CreateTaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = string(models.StatusToDo)
	}

	if in.Title == "" {
		return NewValidationError("Title is required")
	}
	if !models.ValidCategory(in.Category) {
		return NewValidationError("Invalid task type %q", in.Category)
	}
	if !models.ValidStatus(in.Status) {
		return NewValidationError("Invalid status %q", in.Status)
	}
	if len(in.AssigneeIDs) == 0 {
		return ErrNoAssignees
	}
	if in.Recurrence.IsRecurring && !models.ValidFrequency(in.Recurrence.Frequency) {
		return NewValidationError("Invalid recurrence frequency %q", in.Recurrence.Frequency)
	}
	return ensureUsersExist(ctx, s.userRepo, in.AssigneeIDs)
}

func (s *taskService) load(ctx context.Context, id uint) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *taskService) view(ctx context.Context, id uint) (*TaskView, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	views := s.views(ctx, []models.Task{*task})
	return &views[0], nil
}

func (s *taskService) views(ctx context.Context, tasks []models.Task) []TaskView {
	var all []models.Comment
	for _, t := range tasks {
		all = append(all, t.Comments...)
	}
	names := authorNames(ctx, s.userRepo, s.logger, all)

	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, TaskView{
			Task:       t,
			Recurrence: t.Recurrence(),
			Comments:   commentViews(t.Comments, names),
		})
	}
	return views
}

func (s *taskService) translateWriteErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleWrite):
		return ErrTaskAlreadyCompleted
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateTask
	}
	return fmt.Errorf("failed to update task: %w", err)
}

// canModify lets admins and assignees change a task.
func canModify(p *Principal, task *models.Task) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() || task.IsAssignedTo(p.ID) {
		return nil
	}
	return ErrForbidden
}

func recurrenceFrom(in RecurrenceInput) *models.Recurrence {
	if !in.IsRecurring {
		return nil
	}
	return &models.Recurrence{
		Frequency: in.Frequency,
		Interval:  in.Interval,
		EndDate:   in.EndDate,
	}
}

func userRefs(ids []uint) []models.User {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, models.User{ID: id})
	}
	return users
}
