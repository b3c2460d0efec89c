package models

import "time"

// User is the identity row memberships reference. Credential issuance and
// session management live in the auth service; this table only mirrors the
// fields the membership layer needs.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Avatar    string    `gorm:"size:512" json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
