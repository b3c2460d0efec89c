package models

import "time"

// JoinRequestStatus defines lifecycle states for pending network joins.
type JoinRequestStatus string

const (
	// JoinRequestStatusPending indicates the request awaits admin review.
	JoinRequestStatusPending JoinRequestStatus = "pending"
	// JoinRequestStatusApproved indicates the request was accepted.
	JoinRequestStatusApproved JoinRequestStatus = "approved"
	// JoinRequestStatusRejected indicates the request was denied, or records
	// a failed passcode attempt for audit.
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

// PendingNetworkJoin is a user's queued or audited attempt to join a network.
// Manual-mode joins create a pending row; wrong passcode attempts each
// create a fresh rejected row carrying the attempted code.
type PendingNetworkJoin struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	NetworkID       uint              `gorm:"not null;index" json:"network_id"`
	Network         *Network          `gorm:"foreignKey:NetworkID" json:"network,omitempty"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	User            *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status          JoinRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PasscodeAttempt *string           `gorm:"size:120" json:"-"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PendingNetworkJoin) TableName() string {
	return "pending_network_joins"
}
