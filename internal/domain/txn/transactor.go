// Package txn 显式事务边界
package txn

import "context"

// Transactor 工作单元
//
// fn 内对仓储的所有调用都在同一个事务里: fn 返回nil则提交, 返回错误或panic则回滚.
// 嵌套调用复用外层事务, 由最外层决定提交或回滚.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
