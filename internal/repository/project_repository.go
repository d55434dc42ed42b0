package repository

import (
	"context"
	"task_tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project, memberIDs []uint, displayID func(seq int64) string) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	GetAll(ctx context.Context) ([]models.Project, error)
	GetByMember(ctx context.Context, userID uint) ([]models.Project, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	Update(ctx context.Context, project *models.Project, memberIDs []uint) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// Create numbers and inserts the project in one transaction. The counter row
// stays locked until commit and a failed insert rolls the bump back.
func (r *projectRepository) Create(ctx context.Context, project *models.Project, memberIDs []uint, displayID func(seq int64) string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, models.ProjectCounter)
		if err != nil {
			return err
		}
		project.DisplayID = displayID(seq)
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		return replaceJoinRows(tx, "project_members", "project_id", project.ID, memberIDs)
	})
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	err := r.preloaded(ctx).First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) GetAll(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.preloaded(ctx).Order("projects.id").Find(&projects).Error
	return projects, err
}

func (r *projectRepository) GetByMember(ctx context.Context, userID uint) ([]models.Project, error) {
	var projects []models.Project
	err := r.preloaded(ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.id").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Project{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project, memberIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(project).Select("name", "client").Updates(project)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return replaceJoinRows(tx, "project_members", "project_id", project.ID, memberIDs)
	})
}

// nextSequence bumps a named counter with a single upsert and returns the new value.
func nextSequence(tx *gorm.DB, name string) (int64, error) {
	counter := models.Counter{Name: name, Value: 1}
	err := tx.
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("counters.value + 1")}),
			},
			clause.Returning{},
		).
		Create(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (r *projectRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("users.id") }).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("tasks.id") })
}

// replaceJoinRows rewrites the many2many rows owned by ownerID.
func replaceJoinRows(tx *gorm.DB, table, ownerColumn string, ownerID uint, userIDs []uint) error {
	if err := tx.Exec("DELETE FROM "+table+" WHERE "+ownerColumn+" = ?", ownerID).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, 0, len(userIDs))
	seen := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, map[string]interface{}{ownerColumn: ownerID, "user_id": id})
	}
	return tx.Table(table).Create(rows).Error
}
