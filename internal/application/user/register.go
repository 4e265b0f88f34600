// Package user 用户开通
// 账户体系在外部系统; 本服务只需要用户记录存在, 并能给运维/联调签发访问令牌
package user

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/domain/user"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/jwt"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// RegisterUseCase 开通用户记录并签发令牌
type RegisterUseCase struct {
	users  user.Repository
	tokens *jwt.Manager
}

// NewRegisterUseCase 创建用例
func NewRegisterUseCase(users user.Repository, tokens *jwt.Manager) *RegisterUseCase {
	return &RegisterUseCase{users: users, tokens: tokens}
}

// RegisterRequest 开通请求
type RegisterRequest struct {
	Username string
	Email    string
	Role     string // user | admin, 空为user
}

// RegisterResponse 开通结果
type RegisterResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
}

// Execute 写入用户并签发令牌
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	role := req.Role
	if role == "" {
		role = jwt.RoleUser
	}
	if role != jwt.RoleUser && role != jwt.RoleAdmin {
		return nil, apperrors.NewWithDetails(apperrors.ErrCodeInvalidParams, "invalid role", map[string]interface{}{"role": req.Role})
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.NewWithDetails(apperrors.ErrCodeInvalidParams, "invalid username", map[string]interface{}{"username": req.Username})
	}

	u := user.NewUser(username, strings.TrimSpace(req.Email))
	if err := uc.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := uc.tokens.Issue(u.ID, role)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": u.ID,
		"role":    role,
	}).Info("user registered")
	return &RegisterResponse{ID: u.ID, Username: u.Username, Role: role, AccessToken: token}, nil
}
