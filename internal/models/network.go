package models

import (
	"strings"
	"time"
)

// ApprovalMode defines how join attempts against a network are decided.
type ApprovalMode string

const (
	// ApprovalModeAuto admits any joining user immediately as a member.
	ApprovalModeAuto ApprovalMode = "auto"
	// ApprovalModePasscode admits users presenting the network passcode.
	ApprovalModePasscode ApprovalMode = "passcode"
	// ApprovalModeManual queues join requests for admin/moderator review.
	ApprovalModeManual ApprovalMode = "manual"
)

// SuspensionStatus defines the lifecycle state of a network.
type SuspensionStatus string

const (
	// SuspensionStatusActive indicates a network is live.
	SuspensionStatusActive SuspensionStatus = "active"
	// SuspensionStatusSuspended indicates a network is inside its reclaim window.
	SuspensionStatusSuspended SuspensionStatus = "temporarily_suspended"
)

// SuspendedNameSuffix is appended to a network's display name while suspended.
const SuspendedNameSuffix = " (suspended)"

// SuspensionWindow is how long a suspended network can be reclaimed before
// the sweep permanently deletes it.
const SuspensionWindow = 28 * 24 * time.Hour

// Network represents a bounded community with its own membership and join rules.
type Network struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	Name               string       `gorm:"size:120;not null" json:"name"`
	TagName            string       `gorm:"size:32;not null;uniqueIndex" json:"tag_name"`
	Description        string       `gorm:"type:text" json:"description"`
	Avatar             string       `gorm:"size:512" json:"avatar,omitempty"`
	IsPrivate          bool         `gorm:"not null;default:false" json:"is_private"`
	Passcode           *string      `gorm:"size:120" json:"-"`
	ApprovalMode       ApprovalMode `gorm:"type:varchar(20);not null;default:'auto'" json:"approval_mode"`
	LastPasscodeUpdate *time.Time   `json:"last_passcode_update,omitempty"`

	SuspensionStatus    SuspensionStatus `gorm:"type:varchar(30);not null;default:'active';index" json:"suspension_status"`
	SuspendedAt         *time.Time       `json:"suspended_at,omitempty"`
	SuspendedByUserID   *uint            `json:"suspended_by_user_id,omitempty"`
	SuspensionToken     *string          `gorm:"size:64" json:"-"`
	SuspensionExpiresAt *time.Time       `gorm:"index" json:"suspension_expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Network) TableName() string {
	return "networks"
}

// IsSuspended reports whether the network is inside a suspension window.
func (n *Network) IsSuspended() bool {
	return n.SuspensionStatus == SuspensionStatusSuspended
}

// SuspendedName returns the display name with the suspended marker applied.
func (n *Network) SuspendedName() string {
	if strings.HasSuffix(n.Name, SuspendedNameSuffix) {
		return n.Name
	}
	return n.Name + SuspendedNameSuffix
}

// RestoredName returns the display name with the suspended marker removed.
func (n *Network) RestoredName() string {
	return strings.TrimSuffix(n.Name, SuspendedNameSuffix)
}

// ValidApprovalMode reports whether m is one of the supported join policies.
func ValidApprovalMode(m ApprovalMode) bool {
	switch m {
	case ApprovalModeAuto, ApprovalModePasscode, ApprovalModeManual:
		return true
	}
	return false
}
