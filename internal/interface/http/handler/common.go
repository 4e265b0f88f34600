package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// bindError 参数绑定失败
func bindError(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid parameters: "+err.Error())
}

// pathID 解析路径上的正整数ID, 失败时已写响应
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.NewWithDetails(apperrors.ErrCodeInvalidParams, "invalid "+name,
			map[string]interface{}{name: c.Param(name)}))
		return 0, false
	}
	return uint(id), true
}

// checkOwner 订单属于当前用户, 或当前用户是管理员
func checkOwner(c *gin.Context, o *order.Order) error {
	userID := middleware.MustGetUserID(c)
	if o.IsOwnedBy(userID) || middleware.IsAdmin(c) {
		return nil
	}
	return order.PermissionDenied(o.ID, userID)
}
