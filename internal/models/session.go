package models

import (
	"time"
)

// Session is the durable row behind session.GormStore. ID is the opaque
// token carried by the cookie.
type Session struct {
	ID          string    `gorm:"primaryKey;size:64"`
	PrincipalID uint      `gorm:"not null;index"`
	ExpiresAt   time.Time `gorm:"not null;index"`
	CreatedAt   time.Time
}
