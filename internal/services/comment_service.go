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

const unknownAuthor = "Unknown"

type CommentAuthor struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

// CommentView is a comment with its author resolved to a display name.
type CommentView struct {
	ID        uint          `json:"_id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
	User      CommentAuthor `json:"user"`
}

type CommentService interface {
	Add(ctx context.Context, p *Principal, taskID uint, text string) ([]CommentView, error)
	List(ctx context.Context, p *Principal, taskID uint) ([]CommentView, error)
}

type commentService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewCommentService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	logger *zap.Logger,
) CommentService {
	return &commentService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger.Named("comments"),
		now:         time.Now,
	}
}

// Add appends one comment authored by p.
func (s *commentService) Add(ctx context.Context, p *Principal, taskID uint, text string) ([]CommentView, error) {
	if err := s.ensureVisible(ctx, p, taskID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	comment := &models.Comment{
		TaskID:    taskID,
		AuthorID:  p.ID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.taskRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	return s.list(ctx, taskID)
}

func (s *commentService) List(ctx context.Context, p *Principal, taskID uint) ([]CommentView, error) {
	if err := s.ensureVisible(ctx, p, taskID); err != nil {
		return nil, err
	}
	return s.list(ctx, taskID)
}

func (s *commentService) list(ctx context.Context, taskID uint) ([]CommentView, error) {
	comments, err := s.taskRepo.GetComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	names := authorNames(ctx, s.userRepo, s.logger, comments)
	return commentViews(comments, names), nil
}

// ensureVisible hides tasks outside the caller's projects as not found.
// Admins and assignees always see the task.
func (s *commentService) ensureVisible(ctx context.Context, p *Principal, taskID uint) error {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() || task.IsAssignedTo(p.ID) {
		return nil
	}

	project, err := s.projectRepo.GetByID(ctx, task.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if !project.HasMember(p.ID) {
		return ErrTaskNotFound
	}
	return nil
}

// authorNames resolves comment authors in one query. A lookup failure is
// logged and leaves every author unresolved rather than failing the read.
func authorNames(ctx context.Context, userRepo repository.UserRepository, logger *zap.Logger, comments []models.Comment) map[uint]string {
	names := make(map[uint]string)
	if len(comments) == 0 {
		return names
	}

	ids := make([]uint, 0, len(comments))
	seen := make(map[uint]struct{}, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.AuthorID]; ok {
			continue
		}
		seen[c.AuthorID] = struct{}{}
		ids = append(ids, c.AuthorID)
	}

	users, err := userRepo.GetByIDs(ctx, ids)
	if err != nil {
		logger.Warn("failed to resolve comment authors", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names
}

func commentViews(comments []models.Comment, names map[uint]string) []CommentView {
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		name, ok := names[c.AuthorID]
		if !ok || name == "" {
			name = unknownAuthor
		}
		views = append(views, CommentView{
			ID:        c.ID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
			User:      CommentAuthor{ID: c.AuthorID, Name: name},
		})
	}
	return views
}
