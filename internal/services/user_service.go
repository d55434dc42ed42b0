package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"task_tracker/internal/models"
	"task_tracker/internal/redis"
	"task_tracker/internal/repository"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SetupTokenStore interface {
	StoreSetupToken(ctx context.Context, token string, userID uint, ttl time.Duration) error
	ConsumeSetupToken(ctx context.Context, token string) (uint, error)
}

type CreateUserInput struct {
	Name  string
	Email string
	Role  string
}

type UpdateUserInput struct {
	Name  string
	Email string
	Role  string
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*models.User, error)
	SetPassword(ctx context.Context, setupToken, password string) error
	ResendSetupLink(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uint) (*models.User, error)
	ListProjectMembers(ctx context.Context, projectID uint) ([]models.User, error)
	Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error)
	SetActive(ctx context.Context, id uint, active bool) (*models.User, error)
}

type userService struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	setupTokens SetupTokenStore
	mail        MailService
	setupTTL    time.Duration
	logger      *zap.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	setupTokens SetupTokenStore,
	mail MailService,
	setupTTL time.Duration,
	logger *zap.Logger,
) UserService {
	return &userService{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		setupTokens: setupTokens,
		mail:        mail,
		setupTTL:    setupTTL,
		logger:      logger.Named("users"),
	}
}

// Create stores an account without a password and mails a one-time
// setup link. Mail problems are logged; the account is kept.
func (s *userService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	role := in.Role
	if role == "" {
		role = string(models.RoleUser)
	}
	if name == "" || email == "" {
		return nil, NewValidationError("Name and email are required")
	}
	if !models.ValidRole(role) {
		return nil, NewValidationError("Invalid role %q", role)
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.issueSetupLink(ctx, user); err != nil {
		s.logger.Error("setup link not delivered", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// ResendSetupLink issues a fresh setup link for an account that has no
// password yet. Earlier links stay valid until they expire.
func (s *userService) ResendSetupLink(ctx context.Context, id uint) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.HasPassword() {
		return NewValidationError("Password is already set")
	}
	if err := s.issueSetupLink(ctx, user); err != nil {
		return err
	}
	s.logger.Info("setup link reissued", zap.Uint("user_id", user.ID))
	return nil
}

func (s *userService) issueSetupLink(ctx context.Context, user *models.User) error {
	token := uuid.NewString()
	if err := s.setupTokens.StoreSetupToken(ctx, token, user.ID, s.setupTTL); err != nil {
		return fmt.Errorf("failed to store setup token: %w", err)
	}
	if err := s.mail.SendPasswordSetup(ctx, user, token); err != nil {
		return fmt.Errorf("failed to queue setup mail: %w", err)
	}
	return nil
}

// SetPassword consumes the setup token and stores the hash. When the write
// fails the token is put back so the same link can be retried.
func (s *userService) SetPassword(ctx context.Context, setupToken, password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if strings.TrimSpace(setupToken) == "" {
		return ErrInvalidSetupToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	userID, err := s.setupTokens.ConsumeSetupToken(ctx, setupToken)
	if err != nil {
		if errors.Is(err, redis.ErrSetupTokenNotFound) {
			return ErrInvalidSetupToken
		}
		return err
	}

	if err := s.userRepo.SetPassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidSetupToken
		}
		if rerr := s.setupTokens.StoreSetupToken(ctx, setupToken, userID, s.setupTTL); rerr != nil {
			s.logger.Error("failed to restore setup token", zap.Uint("user_id", userID), zap.Error(rerr))
		}
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	return s.userRepo.GetAll(ctx)
}

func (s *userService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ListProjectMembers(ctx context.Context, projectID uint) ([]models.User, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project.Members, nil
}

func (s *userService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, NewValidationError("Name and email are required")
	}
	if !models.ValidRole(in.Role) {
		return nil, NewValidationError("Invalid role %q", in.Role)
	}

	if other, err := s.userRepo.GetByEmail(ctx, email); err == nil && other.ID != id {
		return nil, ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := s.userRepo.UpdateGuarded(ctx, id, func(u *models.User, activeAdmins int64) error {
		if err := guardLastAdmin(u, activeAdmins, in.Role, u.IsActive); err != nil {
			return err
		}
		u.Name = name
		u.Email = email
		u.Role = in.Role
		return nil
	})
	return user, s.translateUserErr(err)
}

func (s *userService) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	user, err := s.userRepo.UpdateGuarded(ctx, id, func(u *models.User, activeAdmins int64) error {
		if err := guardLastAdmin(u, activeAdmins, u.Role, active); err != nil {
			return err
		}
		u.IsActive = active
		return nil
	})
	if err == nil {
		s.logger.Info("user activation changed", zap.Uint("user_id", id), zap.Bool("active", active))
	}
	return user, s.translateUserErr(err)
}

func (s *userService) translateUserErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateEmail
	case KindOf(err) != KindInternal:
		return err
	default:
		return fmt.Errorf("failed to update user: %w", err)
	}
}

// guardLastAdmin rejects a change that would leave no active admin: the
// target is an active admin, it is the only one, and it would lose the role
// or be deactivated.
func guardLastAdmin(user *models.User, activeAdmins int64, nextRole string, nextActive bool) error {
	if !user.IsAdmin() || !user.IsActive {
		return nil
	}
	losesAdmin := nextRole != string(models.RoleAdmin) || !nextActive
	if losesAdmin && activeAdmins <= 1 {
		return ErrLastAdminProtected
	}
	return nil
}
