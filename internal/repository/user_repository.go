package repository

import (
	"context"
	"task_tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminGuardFunc inspects the locked target user and the number of active
// admins, mutating the user or returning an error to abort.
type AdminGuardFunc func(user *models.User, activeAdmins int64) error

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	SetPassword(ctx context.Context, id uint, hash string) error
	UpdateGuarded(ctx context.Context, id uint, fn AdminGuardFunc) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateGuarded locks every active admin row and the target row for the
// duration of the transaction, so two concurrent demotions serialize.
func (r *userRepository) UpdateGuarded(ctx context.Context, id uint, fn AdminGuardFunc) (*models.User, error) {
	var updated models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admins []models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("role = ? AND is_active = ?", models.RoleAdmin, true).
			Order("id").
			Find(&admins).Error
		if err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&updated, id).Error; err != nil {
			return err
		}

		if err := fn(&updated, int64(len(admins))); err != nil {
			return err
		}

		return tx.Model(&updated).Select("name", "email", "role", "is_active").Updates(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
