package user

import (
	"time"
)

// User 用户(账户管理在外部系统, 本服务只需要确认用户存在)
type User struct {
	ID        uint
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建用户
func NewUser(username, email string) *User {
	now := time.Now()
	return &User{
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
