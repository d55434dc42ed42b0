package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"task_tracker/internal/models"
	"task_tracker/internal/repository"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProjectInput struct {
	Name      string
	Client    string
	MemberIDs []uint
}

type ProjectService interface {
	Create(ctx context.Context, in ProjectInput) (*models.Project, error)
	List(ctx context.Context, p *Principal) ([]models.Project, error)
	Get(ctx context.Context, p *Principal, id uint) (*models.Project, error)
	Update(ctx context.Context, id uint, in ProjectInput) (*models.Project, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	logger      *zap.Logger
}

func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, logger *zap.Logger) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		logger:      logger.Named("projects"),
	}
}

func (s *projectService) Create(ctx context.Context, in ProjectInput) (*models.Project, error) {
	name, client, err := s.validate(ctx, in, 0)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:   name,
		Client: client,
	}
	displayID := func(seq int64) string { return DisplayID(seq, client) }
	if err := s.projectRepo.Create(ctx, project, in.MemberIDs, displayID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateProject
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("project created",
		zap.Uint("project_id", project.ID),
		zap.String("display_id", project.DisplayID),
		zap.Int("members", len(in.MemberIDs)))

	return s.reload(ctx, project.ID)
}

func (s *projectService) List(ctx context.Context, p *Principal) ([]models.Project, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if p.IsAdmin() {
		return s.projectRepo.GetAll(ctx)
	}
	return s.projectRepo.GetByMember(ctx, p.ID)
}

// Get hides projects the caller cannot see behind a not-found error.
func (s *projectService) Get(ctx context.Context, p *Principal, id uint) (*models.Project, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	project, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !project.HasMember(p.ID) {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

func (s *projectService) Update(ctx context.Context, id uint, in ProjectInput) (*models.Project, error) {
	name, client, err := s.validate(ctx, in, id)
	if err != nil {
		return nil, err
	}

	project := &models.Project{ID: id, Name: name, Client: client}
	if err := s.projectRepo.Update(ctx, project, in.MemberIDs); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrProjectNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrDuplicateProject
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.reload(ctx, id)
}

func (s *projectService) validate(ctx context.Context, in ProjectInput, excludeID uint) (string, string, error) {
	name := strings.TrimSpace(in.Name)
	client := strings.TrimSpace(in.Client)
	if name == "" || client == "" {
		return "", "", NewValidationError("Name and client are required")
	}

	exists, err := s.projectRepo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check project name: %w", err)
	}
	if exists {
		return "", "", ErrDuplicateProject
	}

	if err := ensureUsersExist(ctx, s.userRepo, in.MemberIDs); err != nil {
		return "", "", err
	}
	return name, client, nil
}

func (s *projectService) reload(ctx context.Context, id uint) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// DisplayID renders the public project code, e.g. "0007-AcmeCorp".
func DisplayID(seq int64, client string) string {
	return fmt.Sprintf("%04d-%s", seq, sanitizeClient(client))
}

func sanitizeClient(client string) string {
	var b strings.Builder
	for _, r := range client {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Client"
	}
	return b.String()
}

func ensureUsersExist(ctx context.Context, userRepo repository.UserRepository, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	users, err := userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if len(users) != len(want) {
		return ErrUserNotFound
	}
	return nil
}
