package model

import "time"

// Role 用户角色
type Role string

const (
	RoleParent       Role = "parent"
	RolePhotographer Role = "photographer"
	RoleAdmin        Role = "admin"
)

// User 用户模型
type User struct {
	ID             uint64    `db:"id" json:"id"`
	Nickname       string    `db:"nickname" json:"nickname"`
	Role           Role      `db:"role" json:"role"`
	PhotographerID uint64    `db:"photographer_id" json:"photographer_id"`
	Token          string    `db:"token" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
