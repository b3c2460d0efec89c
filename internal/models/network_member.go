package models

import "time"

// NetworkRole defines a member's role within a network.
type NetworkRole string

const (
	// NetworkRoleAdmin administers the network; every network keeps at least one.
	NetworkRoleAdmin NetworkRole = "admin"
	// NetworkRoleLeader is a recognized community leader.
	NetworkRoleLeader NetworkRole = "leader"
	// NetworkRoleVIP is a distinguished member.
	NetworkRoleVIP NetworkRole = "vip"
	// NetworkRoleModerator can approve joins and remove ordinary members.
	NetworkRoleModerator NetworkRole = "moderator"
	// NetworkRoleMember is the default role.
	NetworkRoleMember NetworkRole = "member"
)

// roleRank orders roles from least to most privileged.
var roleRank = map[NetworkRole]int{
	NetworkRoleMember:    0,
	NetworkRoleModerator: 1,
	NetworkRoleVIP:       2,
	NetworkRoleLeader:    3,
	NetworkRoleAdmin:     4,
}

// AtLeast reports whether r is at least as privileged as other.
func (r NetworkRole) AtLeast(other NetworkRole) bool {
	return roleRank[r] >= roleRank[other]
}

// Valid reports whether r is a known role.
func (r NetworkRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AssignableRoles are the roles an admin may hand out through role
// assignment. Admin itself is only reachable through explicit promotion.
var AssignableRoles = []NetworkRole{
	NetworkRoleLeader,
	NetworkRoleVIP,
	NetworkRoleModerator,
	NetworkRoleMember,
}

// AssignableRole reports whether r can be set via ordinary role assignment.
func AssignableRole(r NetworkRole) bool {
	for _, a := range AssignableRoles {
		if r == a {
			return true
		}
	}
	return false
}

// NetworkMember maps users to networks and tracks role.
type NetworkMember struct {
	NetworkID uint        `gorm:"primaryKey;autoIncrement:false" json:"network_id"`
	Network   *Network    `gorm:"foreignKey:NetworkID" json:"network,omitempty"`
	UserID    uint        `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      NetworkRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt  time.Time   `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (NetworkMember) TableName() string {
	return "network_members"
}
