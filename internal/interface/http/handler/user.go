package handler

import (
	"github.com/gin-gonic/gin"

	appuser "github.com/xiebiao/bookstore-core/internal/application/user"
	"github.com/xiebiao/bookstore-core/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// UserHandler 用户开通
type UserHandler struct {
	registerUseCase *appuser.RegisterUseCase
}

// NewUserHandler 创建用户处理器
func NewUserHandler(registerUseCase *appuser.RegisterUseCase) *UserHandler {
	return &UserHandler{registerUseCase: registerUseCase}
}

// Register 开通用户并返回访问令牌
// @Summary      开通用户
// @Tags         管理
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.RegisterRequest true "用户信息"
// @Success      200 {object} response.Response{data=appuser.RegisterResponse}
// @Router       /admin/users [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.registerUseCase.Execute(c.Request.Context(), appuser.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
