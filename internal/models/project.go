package models

import (
	"time"
)

type Project struct {
	ID        uint      `json:"_id" gorm:"primaryKey"`
	DisplayID string    `json:"id" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Client    string    `json:"client" gorm:"not null"`
	Members   []User    `json:"user" gorm:"many2many:project_members;"`
	Tasks     []Task    `json:"tasks" gorm:"foreignKey:ProjectID"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Project) HasMember(userID uint) bool {
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// Counter is a named monotonically increasing sequence, bumped under a row lock.
type Counter struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

const ProjectCounter = "project_display_id"
