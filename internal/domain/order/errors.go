package order

import (
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

var (
	ErrOrderNotFound     = apperrors.New(apperrors.ErrCodeOrderNotFound, "order not found")
	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidTransition, "order status does not allow this operation")
	ErrInvalidOrderItems = apperrors.New(apperrors.ErrCodeInvalidParams, "order must contain at least one item")
	ErrInvalidQuantity   = apperrors.New(apperrors.ErrCodeInvalidParams, "quantity must be positive")
	ErrPermissionDenied  = apperrors.New(apperrors.ErrCodeForbidden, "order belongs to another user")
	ErrDuplicateOrderNo  = apperrors.New(apperrors.ErrCodeDuplicateEntry, "order number already exists")
	ErrOrderNoExhausted  = apperrors.New(apperrors.ErrCodeInternal, "could not allocate a unique order number")
	ErrStatusChanged     = apperrors.New(apperrors.ErrCodeInvalidTransition, "order status changed concurrently")
)

// NotFound 带订单ID的不存在错误
func NotFound(orderID uint) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeOrderNotFound, "order not found", map[string]interface{}{
		"order_id": orderID,
	})
}

// InvalidTransition 非法状态迁移
func InvalidTransition(orderID uint, from, to Status) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeInvalidTransition, "order status does not allow this operation", map[string]interface{}{
		"order_id": orderID,
		"from":     from.String(),
		"to":       to.String(),
	})
}

// PermissionDenied 订单不属于当前用户
func PermissionDenied(orderID, userID uint) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeForbidden, "order belongs to another user", map[string]interface{}{
		"order_id": orderID,
		"user_id":  userID,
	})
}
