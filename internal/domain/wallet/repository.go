package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository 钱包与流水仓储
// ctx里带事务时所有方法在该事务内执行
type Repository interface {
	// FindByUserID 不存在返回 ErrWalletNotFound
	FindByUserID(ctx context.Context, userID uint) (*Wallet, error)

	// LockByUserID 行锁读取, 必须在事务内调用
	LockByUserID(ctx context.Context, userID uint) (*Wallet, error)

	// Create 创建钱包, user_id唯一; 已存在返回 ErrWalletExists
	Create(ctx context.Context, w *Wallet) error

	// UpdateBalance 写入新余额
	UpdateBalance(ctx context.Context, walletID uint, balance decimal.Decimal, now time.Time) error

	// AppendTransaction 追加流水, 回填ID
	AppendTransaction(ctx context.Context, tx *Transaction) error

	// ListTransactions 按创建时间倒序分页
	ListTransactions(ctx context.Context, walletID uint, filter TxFilter) ([]*Transaction, int64, error)

	// SumTransactions Σ流水金额, 用于对账
	SumTransactions(ctx context.Context, walletID uint) (decimal.Decimal, error)
}

// BalanceCache 余额读缓存, 只做加速, 失效或出错时回源
type BalanceCache interface {
	Get(ctx context.Context, userID uint) (*Wallet, bool)
	Set(ctx context.Context, w *Wallet)
	Invalidate(ctx context.Context, userID uint)
}
