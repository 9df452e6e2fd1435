package models

import (
	"time"
)

type DiscussionStatus string

const (
	StatusActive   DiscussionStatus = "active"
	StatusDone     DiscussionStatus = "done"
	StatusRejected DiscussionStatus = "rejected"
)

func (s DiscussionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusDone, StatusRejected:
		return true
	}
	return false
}

type Discussion struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"not null;index" json:"userId"`
	User         *User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title        string           `gorm:"not null" json:"title"`
	Description  string           `gorm:"type:text;not null" json:"description"`
	Tag          string           `gorm:"size:50;not null" json:"tag"`
	ImageURL     string           `json:"imageUrl"`
	Upvotes      int              `gorm:"default:0;not null;index" json:"upvotes"`
	CommentCount int              `gorm:"default:0;not null" json:"commentCount"` // denormalized, see Comment
	Status       DiscussionStatus `gorm:"size:20;default:'active';not null" json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
}
