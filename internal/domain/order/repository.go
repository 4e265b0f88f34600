package order

import (
	"context"
	"time"
)

// Repository 订单仓储
// ctx里带事务时所有方法在该事务内执行
type Repository interface {
	// Create 订单和明细一起写入, 回填ID
	// 订单号冲突返回 ErrDuplicateOrderNo
	Create(ctx context.Context, order *Order) error

	// FindByID 含明细, 不存在返回 ErrOrderNotFound
	FindByID(ctx context.Context, id uint) (*Order, error)

	// LockByID 行锁读取订单(含明细), 必须在事务内调用
	LockByID(ctx context.Context, id uint) (*Order, error)

	// UpdateStatus 比较并交换: 只有当前状态为from时才改为to
	// 状态已被修改返回 ErrStatusChanged
	UpdateStatus(ctx context.Context, id uint, from, to Status, now time.Time) error

	// Delete 删除订单及明细, 不存在返回 ErrOrderNotFound
	Delete(ctx context.Context, id uint) error

	// ListByUserID 用户订单, 按创建时间倒序
	ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*Order, int64, error)

	// List 全部订单, 按创建时间倒序
	List(ctx context.Context, page, pageSize int) ([]*Order, int64, error)

	// ListPendingBefore 创建时间早于cutoff的待支付订单
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*Order, error)

	// CountItemsByBookID 引用该图书的订单明细数
	CountItemsByBookID(ctx context.Context, bookID uint) (int64, error)
}
