package book

import (
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

var (
	ErrBookNotFound    = apperrors.New(apperrors.ErrCodeBookNotFound, "book not found")
	ErrOutOfStock      = apperrors.New(apperrors.ErrCodeOutOfStock, "out of stock")
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "quantity must be positive")
	ErrBookReferenced  = apperrors.New(apperrors.ErrCodeBookReferenced, "book is referenced by orders")

	// ErrStockConflict 条件更新没有命中(库存已被并发修改到不够扣)
	ErrStockConflict = apperrors.New(apperrors.ErrCodeOutOfStock, "stock changed concurrently")
)

// NotFound 带图书ID的不存在错误
func NotFound(bookID uint) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeBookNotFound, "book not found", map[string]interface{}{
		"book_id": bookID,
	})
}

// OutOfStock 库存不足, 带上哪本书、要多少、还剩多少
func OutOfStock(bookID uint, title string, requested, available int) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeOutOfStock, "out of stock", map[string]interface{}{
		"book_id":   bookID,
		"title":     title,
		"requested": requested,
		"available": available,
	})
}

// Referenced 图书被订单明细引用, 不能删除
func Referenced(bookID uint, lines int64) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeBookReferenced, "book is referenced by orders", map[string]interface{}{
		"book_id":     bookID,
		"order_lines": lines,
	})
}
