package models

import "time"

type GroupType string

const (
	GroupSocial       GroupType = "social"
	GroupProfessional GroupType = "professional"
	GroupInterest     GroupType = "interest"
)

func (t GroupType) Valid() bool {
	switch t {
	case GroupSocial, GroupProfessional, GroupInterest:
		return true
	}
	return false
}

type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   uint      `gorm:"not null" json:"created_by"`
	ImageURL    string    `json:"image_url,omitempty"`
	Type        GroupType `gorm:"default:'social'" json:"type"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	MemberCount int       `gorm:"default:1" json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type GroupRole string

const (
	RoleAdmin  GroupRole = "admin"
	RoleMember GroupRole = "member"
)

func (r GroupRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// GroupMember - членство пользователя в группе. Неактивные записи остаются как история.
type GroupMember struct {
	ID       uint       `gorm:"primaryKey" json:"id"`
	GroupID  uint       `gorm:"not null;index:idx_group_user" json:"group_id"`
	UserID   uint       `gorm:"not null;index:idx_group_user" json:"user_id"`
	Role     GroupRole  `gorm:"type:varchar(20);default:'member'" json:"role"`
	IsActive bool       `gorm:"default:true" json:"is_active"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}
