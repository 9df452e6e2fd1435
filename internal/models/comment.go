package models

import (
	"time"
)

type Comment struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	DiscussionID uint        `gorm:"not null;index" json:"discussionId"`
	Discussion   *Discussion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID       uint        `gorm:"not null;index" json:"userId"`
	User         *User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Content      string      `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time   `json:"createdAt"`
	// Comments are immutable, no UpdatedAt
}
