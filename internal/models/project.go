package models

import (
	"time"
)

type Project struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"userId"`
	User          *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title         string    `gorm:"not null" json:"title"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	TechStack     TechStack `gorm:"type:jsonb;serializer:json" json:"techStack"`
	CoverImageURL string    `json:"coverImageUrl"`
	Upvotes       int       `gorm:"default:0;not null;index" json:"upvotes"`
	CreatedAt     time.Time `json:"createdAt"`
}
