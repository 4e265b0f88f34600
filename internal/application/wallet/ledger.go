// Package wallet 钱包台账
//
// 余额变动和流水追加总在同一个事务里, 任何时刻 balance == Σ流水金额.
// 支付和退款把订单状态迁移也放进这个事务.
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/bookstore-core/internal/application/event"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/txn"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/tracing"
)

// Orders 钱包台账需要的订单能力, 由订单生命周期提供
type Orders interface {
	Lock(ctx context.Context, orderID uint) (*order.Order, error)
	MarkCompleted(ctx context.Context, orderID uint) error
	MarkRefunded(ctx context.Context, orderID uint) error
}

// Receipt 一次记账的结果
type Receipt struct {
	WalletID      uint            `json:"wallet_id"`
	Balance       decimal.Decimal `json:"balance"`
	TransactionID uint            `json:"transaction_id"`
	RefNo         string          `json:"ref_no"`
	OrderID       *uint           `json:"order_id,omitempty"`
}

// Ledger 钱包台账
type Ledger struct {
	tx      txn.Transactor
	wallets wallet.Repository
	users   user.Repository
	orders  Orders
	cache   wallet.BalanceCache
	events  event.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLedger 创建钱包台账, cache可以为nil
func NewLedger(
	tx txn.Transactor,
	wallets wallet.Repository,
	users user.Repository,
	orders Orders,
	cache wallet.BalanceCache,
	events event.Publisher,
	m *metrics.Metrics,
) *Ledger {
	return &Ledger{
		tx:      tx,
		wallets: wallets,
		users:   users,
		orders:  orders,
		cache:   cache,
		events:  events,
		metrics: m,
		now:     time.Now,
	}
}

// SetClock 替换时钟
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// GetOrCreateWallet 返回用户钱包, 不存在时创建零余额钱包
// 用户不存在返回 UserNotFound
func (l *Ledger) GetOrCreateWallet(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	w, err := l.wallets.FindByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, wallet.ErrWalletNotFound) {
		return nil, err
	}

	if _, err := l.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	w = wallet.NewWallet(userID, l.now())
	if err := l.wallets.Create(ctx, w); err != nil {
		// 并发首次访问, 另一个请求先建好了
		if errors.Is(err, wallet.ErrWalletExists) {
			return l.wallets.FindByUserID(ctx, userID)
		}
		return nil, err
	}
	logger.WithContext(ctx).WithField("user_id", userID).Info("wallet created")
	return w, nil
}

// GetWallet 查询余额, 优先读缓存
//
// 未命中时在钱包行锁内回源并回填缓存: 写路径提交后才Invalidate,
// 回填要么先于并发写完成, 要么读到的已是新余额, 不会把旧值写回缓存.
func (l *Ledger) GetWallet(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	if l.cache == nil {
		return l.GetOrCreateWallet(ctx, userID)
	}
	if w, ok := l.cache.Get(ctx, userID); ok {
		return w, nil
	}

	var w *wallet.Wallet
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		locked, err := l.lockWallet(ctx, userID)
		if err != nil {
			return err
		}
		l.cache.Set(ctx, locked)
		w = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Deposit 充值
func (l *Ledger) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*Receipt, error) {
	return l.move(ctx, userID, wallet.TxDeposit, amount, description)
}

// Withdraw 提现, 余额不足返回 InsufficientBalance
func (l *Ledger) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, description string) (*Receipt, error) {
	return l.move(ctx, userID, wallet.TxWithdraw, amount, description)
}

func (l *Ledger) move(ctx context.Context, userID uint, txType wallet.TxType, amount decimal.Decimal, description string) (receipt *Receipt, err error) {
	ctx, span := tracing.StartSpan(ctx, "wallet."+string(txType),
		attribute.Int64("user_id", int64(userID)),
		attribute.String("amount", amount.String()))
	defer func() { tracing.End(span, err) }()

	if err := validAmount(amount); err != nil {
		return nil, err
	}

	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		w, err := l.lockWallet(ctx, userID)
		if err != nil {
			return err
		}

		now := l.now()
		if txType == wallet.TxDeposit {
			err = w.Credit(amount, now)
		} else {
			err = w.Debit(amount, now)
		}
		if err != nil {
			return err
		}

		receipt, err = l.record(ctx, w, txType, amount, description, nil)
		return err
	})
	if err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"user_id": userID,
			"type":    txType,
			"amount":  amount.String(),
			"error":   err.Error(),
		}).Warn("wallet operation failed")
		return nil, err
	}

	l.afterCommit(ctx, userID, txType, amount)
	eventType := event.WalletDeposited
	if txType == wallet.TxWithdraw {
		eventType = event.WalletWithdrawn
	}
	event.Emit(ctx, l.events, eventType, walletPayload(userID, receipt, amount))
	return receipt, nil
}

// PayOrder 用钱包余额支付订单
//
// 同一事务内: 锁订单 → 校验归属和状态 → 锁钱包扣款 → 写支付流水 → 订单置为Completed.
// 订单行锁让同一订单的并发支付串行, 第二个请求看到的已是Completed.
func (l *Ledger) PayOrder(ctx context.Context, userID, orderID uint) (receipt *Receipt, err error) {
	ctx, span := tracing.StartSpan(ctx, "wallet.PayOrder",
		attribute.Int64("user_id", int64(userID)),
		attribute.Int64("order_id", int64(orderID)))
	defer func() { tracing.End(span, err) }()

	var paid *order.Order
	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := l.orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsOwnedBy(userID) {
			return order.PermissionDenied(o.ID, userID)
		}
		if o.Status != order.StatusPending {
			return order.InvalidTransition(o.ID, o.Status, order.StatusCompleted)
		}

		w, err := l.lockWallet(ctx, userID)
		if err != nil {
			return err
		}
		if o.Total.IsPositive() {
			if err := w.Debit(o.Total, l.now()); err != nil {
				return err
			}
		}

		receipt, err = l.record(ctx, w, wallet.TxPayment, o.Total, "pay order "+o.OrderNo, &o.ID)
		if err != nil {
			return err
		}
		if err := l.orders.MarkCompleted(ctx, o.ID); err != nil {
			return err
		}
		o.Status = order.StatusCompleted
		paid = o
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"user_id":  userID,
			"order_id": orderID,
			"error":    err.Error(),
		}).Warn("pay order failed")
		return nil, err
	}

	l.afterCommit(ctx, userID, wallet.TxPayment, paid.Total)
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  userID,
		"order_id": paid.ID,
		"amount":   paid.Total.StringFixed(2),
		"balance":  receipt.Balance.StringFixed(2),
	}).Info("order paid")
	event.Emit(ctx, l.events, event.OrderPaid, orderPayload(paid))
	return receipt, nil
}

// Refund 退款到下单用户的钱包, 订单必须是Completed
func (l *Ledger) Refund(ctx context.Context, orderID uint) (receipt *Receipt, err error) {
	ctx, span := tracing.StartSpan(ctx, "wallet.Refund", attribute.Int64("order_id", int64(orderID)))
	defer func() { tracing.End(span, err) }()

	var refunded *order.Order
	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := l.orders.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != order.StatusCompleted {
			return order.InvalidTransition(o.ID, o.Status, order.StatusRefunded)
		}

		w, err := l.lockWallet(ctx, o.UserID)
		if err != nil {
			return err
		}
		if o.Total.IsPositive() {
			if err := w.Credit(o.Total, l.now()); err != nil {
				return err
			}
		}

		receipt, err = l.record(ctx, w, wallet.TxRefund, o.Total, "refund order "+o.OrderNo, &o.ID)
		if err != nil {
			return err
		}
		if err := l.orders.MarkRefunded(ctx, o.ID); err != nil {
			return err
		}
		o.Status = order.StatusRefunded
		refunded = o
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		}).Warn("refund order failed")
		return nil, err
	}

	l.afterCommit(ctx, refunded.UserID, wallet.TxRefund, refunded.Total)
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id":  refunded.UserID,
		"order_id": refunded.ID,
		"amount":   refunded.Total.StringFixed(2),
	}).Info("order refunded")
	event.Emit(ctx, l.events, event.OrderRefunded, orderPayload(refunded))
	return receipt, nil
}

// lockWallet 行锁读取钱包, 不存在时先创建, 用户不存在返回 UserNotFound
func (l *Ledger) lockWallet(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	w, err := l.wallets.LockByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, wallet.ErrWalletNotFound) {
		return nil, err
	}

	if _, err := l.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := l.wallets.Create(ctx, wallet.NewWallet(userID, l.now())); err != nil && !errors.Is(err, wallet.ErrWalletExists) {
		return nil, err
	}
	return l.wallets.LockByUserID(ctx, userID)
}

// record 写余额并追加流水, 必须在事务内调用
func (l *Ledger) record(ctx context.Context, w *wallet.Wallet, txType wallet.TxType, amount decimal.Decimal, description string, orderID *uint) (*Receipt, error) {
	if err := l.wallets.UpdateBalance(ctx, w.ID, w.Balance, w.UpdatedAt); err != nil {
		return nil, err
	}

	t := wallet.NewTransaction(w.ID, txType, amount, description, orderID, l.now())
	if err := l.wallets.AppendTransaction(ctx, t); err != nil {
		return nil, err
	}

	return &Receipt{
		WalletID:      w.ID,
		Balance:       w.Balance,
		TransactionID: t.ID,
		RefNo:         t.RefNo,
		OrderID:       orderID,
	}, nil
}

func (l *Ledger) afterCommit(ctx context.Context, userID uint, txType wallet.TxType, amount decimal.Decimal) {
	if l.cache != nil {
		l.cache.Invalidate(ctx, userID)
	}
	l.metrics.WalletTransactionsTotal.WithLabelValues(string(txType)).Inc()
	l.metrics.WalletAmountTotal.WithLabelValues(string(txType)).Add(amount.InexactFloat64())
}

// validAmount 金额必须为正且最多两位小数
func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return wallet.InvalidAmount(amount)
	}
	return nil
}

func walletPayload(userID uint, r *Receipt, amount decimal.Decimal) event.WalletPayload {
	return event.WalletPayload{
		UserID:        userID,
		WalletID:      r.WalletID,
		TransactionID: r.TransactionID,
		RefNo:         r.RefNo,
		Amount:        amount.StringFixed(2),
		Balance:       r.Balance.StringFixed(2),
		OrderID:       r.OrderID,
	}
}

func orderPayload(o *order.Order) event.OrderPayload {
	return event.OrderPayload{
		OrderID: o.ID,
		OrderNo: o.OrderNo,
		UserID:  o.UserID,
		Total:   o.Total.StringFixed(2),
		Status:  o.Status.String(),
	}
}
