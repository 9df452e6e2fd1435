package models

import (
	"time"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"not null;uniqueIndex:idx_users_username_lower,expression:lower(username)" json:"username"`
	Email      string    `gorm:"not null" json:"email,omitempty"` // not unique, several accounts may share one
	Password   string    `gorm:"not null" json:"-"`     // hex(key).hex(salt)
	Bio        string    `gorm:"type:text" json:"bio"`
	AvatarURL  string    `json:"avatarUrl"`
	Profession string    `gorm:"size:100" json:"profession"`
	IsAdmin    bool      `gorm:"default:false;not null" json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
	// No UpdatedAt, profile edits are rare and not surfaced
}

// Sanitized returns a copy that is safe to hand to callers outside the store.
// Password never reaches JSON anyway; clearing it keeps it out of logs and
// in-process caches too.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Password = ""
	return &cp
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Email      *string
	Bio        *string
	AvatarURL  *string
	Profession *string
}

// Columns returns the column -> value map gorm needs for Updates.
func (p ProfileUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Bio != nil {
		cols["bio"] = *p.Bio
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = *p.AvatarURL
	}
	if p.Profession != nil {
		cols["profession"] = *p.Profession
	}
	return cols
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Profession != nil {
		u.Profession = *p.Profession
	}
}
