package bus

// Scope is the addressing mode of an event. The producer decides who an
// event is for at publish time; the router only translates.
type Scope string

const (
	// ScopeUser fans out to every live connection of one user.
	ScopeUser Scope = "user"
	// ScopeNetwork fans out to every connection in a network's room.
	ScopeNetwork Scope = "network"
	// ScopeNetworkAdmins fans out to a network's admin-only room.
	ScopeNetworkAdmins Scope = "network-admins"
	// ScopeBroadcast fans out to every live connection.
	ScopeBroadcast Scope = "broadcast"
)

// Event is the wire envelope for every bus message.
type Event struct {
	Type      string                 `json:"type"`
	Scope     Scope                  `json:"scope"`
	NetworkID uint                   `json:"network_id,omitempty"`
	UserID    uint                   `json:"user_id,omitempty"`
	Title     string                 `json:"title,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Event type constants prevent typos in event names.
const (
	EventNetworkCreated     = "network_created"
	EventMemberJoined       = "member_joined"
	EventMemberRemoved      = "member_removed"
	EventRoleChanged        = "role_changed"
	EventPasscodeUpdated    = "passcode_updated"
	EventNetworkUpdated     = "network_updated"
	EventNetworkSuspended   = "network_suspended"
	EventNetworkRestored    = "network_restored"
	EventNetworkDeleted     = "network_permanently_deleted"
	EventJoinRequestCreated = "join_request_created"
	EventJoinRequestApprove = "join_request_approve"
	EventJoinRequestReject  = "join_request_reject"
	EventNetworkInvitation  = "network_invitation"
	EventRoleUpdate         = "role_update"
	EventGoalCreated        = "goal_created"
	EventGoalUpdated        = "goal_updated"
	EventGoalDeleted        = "goal_deleted"
	EventGoalsSelected      = "goals_selected"
	EventUserStatus         = "user_status"
	EventNetworkActivity    = "network_activity"
)
