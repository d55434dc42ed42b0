package models

import (
	"time"

	"gorm.io/datatypes"
)

type Task struct {
	ID                  uint                           `json:"_id" gorm:"primaryKey"`
	Title               string                         `json:"title" gorm:"not null"`
	Description         string                         `json:"description" gorm:"not null;default:''"`
	Category            string                         `json:"type" gorm:"not null"`
	Status              string                         `json:"status" gorm:"not null;default:'To Do'"`
	DueDate             *time.Time                     `json:"dueDate"`
	ProjectID           uint                           `json:"project" gorm:"not null;index"`
	Assignees           []User                         `json:"users" gorm:"many2many:task_assignees;"`
	IsRecurring         bool                           `json:"isRecurring" gorm:"not null;default:false"`
	RecurrenceFrequency string                         `json:"-"`
	RecurrenceInterval  int                            `json:"-"`
	RecurrenceEndDate   *time.Time                     `json:"-"`
	CompletedDates      datatypes.JSONSlice[time.Time] `json:"completedDates"`
	Comments            []Comment                      `json:"comments" gorm:"foreignKey:TaskID"`
	// SourceTaskID is the first task of the series; nil on that task itself.
	SourceTaskID        *uint                          `json:"sourceTask,omitempty" gorm:"uniqueIndex:idx_task_occurrence"`
	OccurrenceDate      *time.Time                     `json:"occurrenceDate,omitempty" gorm:"type:date;uniqueIndex:idx_task_occurrence"`
	CreatedAt           time.Time                      `json:"createdAt"`
	UpdatedAt           time.Time                      `json:"updatedAt"`
}

type Comment struct {
	ID        uint      `json:"_id" gorm:"primaryKey"`
	TaskID    uint      `json:"task" gorm:"not null;index"`
	AuthorID  uint      `json:"user" gorm:"not null"`
	Text      string    `json:"text" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusInReview   TaskStatus = "In Review"
	StatusApproved   TaskStatus = "Approved"
	StatusRejected   TaskStatus = "Rejected"
	StatusCompleted  TaskStatus = "Completed"
)

var taskStatuses = []TaskStatus{
	StatusToDo, StatusInProgress, StatusInReview, StatusApproved, StatusRejected, StatusCompleted,
}

func ValidStatus(status string) bool {
	for _, s := range taskStatuses {
		if string(s) == status {
			return true
		}
	}
	return false
}

type TaskCategory string

const (
	StoryImage     TaskCategory = "Story Image"
	AnimatedStory  TaskCategory = "Animated Story"
	Post           TaskCategory = "Post"
	Reel           TaskCategory = "Reel"
	LandscapeVideo TaskCategory = "Landscape Video"
	CoverPhoto     TaskCategory = "Cover Photo"
)

var taskCategories = []TaskCategory{
	StoryImage, AnimatedStory, Post, Reel, LandscapeVideo, CoverPhoto,
}

func ValidCategory(category string) bool {
	for _, c := range taskCategories {
		if string(c) == category {
			return true
		}
	}
	return false
}

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

func ValidFrequency(frequency string) bool {
	switch Frequency(frequency) {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

type Recurrence struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Recurrence returns nil when the task does not repeat.
func (t *Task) Recurrence() *Recurrence {
	if !t.IsRecurring || t.RecurrenceFrequency == "" {
		return nil
	}
	return &Recurrence{
		Frequency: t.RecurrenceFrequency,
		Interval:  t.RecurrenceInterval,
		EndDate:   t.RecurrenceEndDate,
	}
}

func (t *Task) SetRecurrence(r *Recurrence) {
	if r == nil {
		t.IsRecurring = false
		t.RecurrenceFrequency = ""
		t.RecurrenceInterval = 0
		t.RecurrenceEndDate = nil
		return
	}
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	t.IsRecurring = true
	t.RecurrenceFrequency = r.Frequency
	t.RecurrenceInterval = interval
	t.RecurrenceEndDate = r.EndDate
}

func (t *Task) IsCompleted() bool {
	return t.Status == string(StatusCompleted)
}

func (t *Task) IsAssignedTo(userID uint) bool {
	for _, u := range t.Assignees {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// LastCompleted returns the most recent completion timestamp, if any.
func (t *Task) LastCompleted() (time.Time, bool) {
	var last time.Time
	for _, d := range t.CompletedDates {
		if d.After(last) {
			last = d
		}
	}
	return last, !last.IsZero()
}

func (t *Task) AssigneeIDs() []uint {
	ids := make([]uint, 0, len(t.Assignees))
	for _, u := range t.Assignees {
		ids = append(ids, u.ID)
	}
	return ids
}
