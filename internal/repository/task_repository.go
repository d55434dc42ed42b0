package repository

import (
	"context"
	"task_tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	CreateOccurrence(ctx context.Context, task *models.Task) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	GetAll(ctx context.Context) ([]models.Task, error)
	GetByProject(ctx context.Context, projectID uint) ([]models.Task, error)
	GetByAssignee(ctx context.Context, userID uint) ([]models.Task, error)
	GetRecurring(ctx context.Context) ([]models.Task, error)
	ExistsDuplicate(ctx context.Context, projectID uint, title, description string) (bool, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateStatus(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uint) error
	AddComment(ctx context.Context, comment *models.Comment) error
	GetComments(ctx context.Context, taskID uint) ([]models.Comment, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create inserts the task and its assignee links in one transaction; the
// project's task list follows from the project_id column.
func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		return replaceJoinRows(tx, "task_assignees", "task_id", task.ID, task.AssigneeIDs())
	})
}

// CreateOccurrence inserts a generated occurrence unless one already exists
// for the same series and day. It reports whether a row was written.
func (r *taskRepository) CreateOccurrence(ctx context.Context, task *models.Task) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source_task_id"}, {Name: "occurrence_date"}},
				DoNothing: true,
			}).
			Create(task)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return replaceJoinRows(tx, "task_assignees", "task_id", task.ID, task.AssigneeIDs())
	})
	return created, err
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := r.preloaded(ctx).First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetAll(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.preloaded(ctx).Order("tasks.id").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) GetByProject(ctx context.Context, projectID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.preloaded(ctx).Where("project_id = ?", projectID).Order("tasks.id").Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) GetByAssignee(ctx context.Context, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.preloaded(ctx).
		Joins("JOIN task_assignees ta ON ta.task_id = tasks.id").
		Where("ta.user_id = ?", userID).
		Order("tasks.id").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) GetRecurring(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("Assignees").
		Where("is_recurring = ? AND recurrence_frequency IN ?", true,
			[]string{string(models.Daily), string(models.Weekly), string(models.Monthly)}).
		Order("id").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) ExistsDuplicate(ctx context.Context, projectID uint, title, description string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("project_id = ? AND title = ? AND description = ?", projectID, title, description).
		Count(&count).Error
	return count > 0, err
}

// Update replaces every editable column and the assignee set of a task that
// is not completed.
func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(task).
			Where("status <> ?", models.StatusCompleted).
			Select("title", "description", "category", "status", "due_date", "is_recurring",
				"recurrence_frequency", "recurrence_interval", "recurrence_end_date", "completed_dates").
			Updates(task)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		return replaceJoinRows(tx, "task_assignees", "task_id", task.ID, task.AssigneeIDs())
	})
}

// UpdateStatus writes the status only while the stored row is not yet
// completed, so two concurrent completions cannot both append a timestamp.
func (r *taskRepository) UpdateStatus(ctx context.Context, task *models.Task) error {
	res := r.db.WithContext(ctx).Model(task).
		Where("status <> ?", models.StatusCompleted).
		Select("status", "completed_dates").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM task_assignees WHERE task_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *taskRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *taskRepository) GetComments(ctx context.Context, taskID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at, id").Find(&comments).Error
	return comments, err
}

func (r *taskRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Assignees", func(db *gorm.DB) *gorm.DB { return db.Order("users.id") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") })
}
