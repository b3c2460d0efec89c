package models

import "time"

// DefaultInvitationTTL is the invitation expiry horizon when the caller
// does not supply one.
const DefaultInvitationTTL = 48 * time.Hour

// NetworkInvitation invites one user into one network at a given role.
// Redeemable exactly once, only by the invited user, only before expiry.
type NetworkInvitation struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	NetworkID       uint        `gorm:"not null;index" json:"network_id"`
	Network         *Network    `gorm:"foreignKey:NetworkID" json:"network,omitempty"`
	InvitedUserID   uint        `gorm:"not null;index" json:"invited_user_id"`
	InvitedUser     *User       `gorm:"foreignKey:InvitedUserID" json:"invited_user,omitempty"`
	InvitedByUserID uint        `gorm:"not null" json:"invited_by_user_id"`
	InvitedByUser   *User       `gorm:"foreignKey:InvitedByUserID" json:"invited_by_user,omitempty"`
	Role            NetworkRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	InviteToken     string      `gorm:"size:64;not null;uniqueIndex" json:"invite_token"`
	ExpiresAt       time.Time   `gorm:"not null;index" json:"expires_at"`
	IsUsed          bool        `gorm:"not null;default:false" json:"is_used"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (NetworkInvitation) TableName() string {
	return "network_invitations"
}

// Redeemable reports whether the invitation can still be used at now.
func (i *NetworkInvitation) Redeemable(now time.Time) bool {
	return !i.IsUsed && i.ExpiresAt.After(now)
}
