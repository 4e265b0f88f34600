package mysql

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager 基于gorm的事务管理器, 实现 txn.Transactor
// 事务通过context传给仓储, 仓储用dbFrom(ctx)取连接
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction fn返回nil提交, 返回错误回滚
// ctx里已经有事务时直接复用, 不开savepoint: 内层失败会让整个外层事务回滚
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom 取事务连接, 没有事务时用默认连接
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// offset 页码从1开始
func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
