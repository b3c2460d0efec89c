package models

import "time"

// NetworkGoal is a shared objective members of a network can opt into.
type NetworkGoal struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	NetworkID       uint      `gorm:"not null;index" json:"network_id"`
	Network         *Network  `gorm:"foreignKey:NetworkID" json:"network,omitempty"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	CreatedByUserID uint      `gorm:"not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (NetworkGoal) TableName() string {
	return "network_goals"
}

// NetworkMemberGoal records which goals a member has selected.
type NetworkMemberGoal struct {
	NetworkID uint         `gorm:"primaryKey;autoIncrement:false" json:"network_id"`
	UserID    uint         `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	GoalID    uint         `gorm:"primaryKey;autoIncrement:false" json:"goal_id"`
	Goal      *NetworkGoal `gorm:"foreignKey:GoalID" json:"goal,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (NetworkMemberGoal) TableName() string {
	return "network_member_goals"
}
