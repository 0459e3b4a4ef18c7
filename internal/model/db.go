package model

import (
	"time"

	"gorm.io/datatypes"
)

// Role 用户角色
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleHR          Role = "hr"
	RoleScorer      Role = "scorer"
	RolePulseLeader Role = "pulse_leader"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleScorer, RolePulseLeader:
		return true
	}
	return false
}

// RequiresInstitution hr / pulse_leader 必须归属某个机构
func (r Role) RequiresInstitution() bool {
	return r == RoleHR || r == RolePulseLeader
}

// Institution 参赛机构
type Institution struct {
	ID   uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Code string `gorm:"column:code;type:varchar(20);uniqueIndex:uq_institution_code;not null" json:"code"`
}

// User 所有角色共用一张表，角色专属字段放在 Profile（JSON）里
type User struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName     string         `gorm:"column:first_name;type:varchar(20);not null" json:"first_name"`
	LastName      string         `gorm:"column:last_name;type:varchar(50);not null" json:"last_name"`
	Username      string         `gorm:"column:username;type:varchar(20);uniqueIndex:uq_user_username;not null" json:"username"`
	Email         string         `gorm:"column:email;type:varchar(120);uniqueIndex:uq_user_email;not null" json:"email"`
	PasswordHash  string         `gorm:"column:password_hash;type:varchar(256);not null" json:"-"`
	Role          Role           `gorm:"column:role;type:varchar(20);not null;index" json:"role"`
	InstitutionID *uint64        `gorm:"column:institution_id;type:bigint;index" json:"institution_id"`
	Profile       datatypes.JSON `gorm:"column:profile" json:"profile"` // 角色专属属性，如 pulse_leader 的 social_media_handle
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// UserProfile Profile 字段的结构
type UserProfile struct {
	SocialMediaHandle string `json:"social_media_handle,omitempty"`
}

func (Institution) TableName() string { return "institutions" }
func (User) TableName() string        { return "users" }

// All AutoMigrate 按依赖顺序列出的全部表
func All() []interface{} {
	return []interface{}{
		&Institution{},
		&User{},
		&Participant{},
		&Season{},
		&Event{},
		&SeasonEvent{},
		&Stage{},
		&Registration{},
		&BibNo{},
		&BibTag{},
		&BibNoAssignment{},
		&BibTagAssignment{},
		&Result{},
	}
}
