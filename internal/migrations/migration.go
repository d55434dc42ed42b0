package migrations

import (
	"errors"
	"fmt"
	"strings"
	"task_tracker/internal/config"
	"task_tracker/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunMigrations brings the schema up to date and creates default data
func RunMigrations(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Comment{},
		&models.Counter{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createDefaultData(db, cfg, log); err != nil {
		log.Warn("failed to create default data", zap.Error(err))
	}

	log.Info("database migrations completed")
	return nil
}

// createDefaultData seeds the sequence counters and the bootstrap admin
func createDefaultData(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	counter := models.Counter{Name: models.ProjectCounter}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
		return fmt.Errorf("failed to seed counters: %w", err)
	}

	var admins int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return err
	}
	if admins > 0 {
		log.Debug("admin user already exists")
		return nil
	}

	if strings.TrimSpace(cfg.AdminEmail) == "" || len(cfg.AdminPassword) < 6 {
		return errors.New("bootstrap admin credentials are not configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         cfg.AdminName,
		Email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		PasswordHash: string(hash),
		Role:         string(models.RoleAdmin),
		IsActive:     true,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Info("bootstrap admin created", zap.String("email", admin.Email))
	return nil
}

// ResetSchema drops every table the application owns, join tables included.
func ResetSchema(db *gorm.DB, log *zap.Logger) error {
	log.Warn("dropping existing tables")
	return db.Migrator().DropTable(
		"task_assignees",
		"project_members",
		&models.Comment{},
		&models.Task{},
		&models.Project{},
		&models.Counter{},
		&models.User{},
	)
}
