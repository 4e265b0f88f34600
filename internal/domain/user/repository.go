package user

import (
	"context"

	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = apperrors.ErrUserNotFound

// Repository 用户仓储
type Repository interface {
	Create(ctx context.Context, user *User) error

	// FindByID 不存在返回 ErrUserNotFound
	FindByID(ctx context.Context, id uint) (*User, error)
}
