package book

import (
	"context"
)

// Repository 图书仓储
// ctx里带事务时所有方法在该事务内执行
type Repository interface {
	Create(ctx context.Context, book *Book) error

	// FindByID 不存在返回 ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// LockByID 行锁读取(SELECT ... FOR UPDATE), 必须在事务内调用
	LockByID(ctx context.Context, id uint) (*Book, error)

	// AdjustStock 原子调整库存, delta为负表示扣减
	// 调整后会小于0时不修改, 返回 ErrStockConflict; 成功返回调整后的库存
	AdjustStock(ctx context.Context, id uint, delta int) (int, error)

	// Delete 硬删除, 不存在返回 ErrBookNotFound
	Delete(ctx context.Context, id uint) error
}
