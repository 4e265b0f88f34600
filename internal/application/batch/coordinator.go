// Package batch 批量支付、取消和删除
//
// 批量操作逐项执行, 单项错误被收集到结果里而不是中断整批;
// 只有"整批都不能开始"的情况(参数错误、合计余额不足)才返回error.
package batch

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	appwallet "github.com/xiebiao/bookstore-core/internal/application/wallet"
	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/txn"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/tracing"
)

// ErrEmptyBatch 没有给任何ID
var ErrEmptyBatch = apperrors.New(apperrors.ErrCodeInvalidParams, "ids must not be empty")

// Orders 批量操作需要的订单能力
type Orders interface {
	Get(ctx context.Context, orderID uint) (*order.Order, error)
	Cancel(ctx context.Context, orderID uint, reason apporder.CancelReason) error
	Delete(ctx context.Context, orderID uint) error
}

// Wallets 批量支付需要的钱包能力
type Wallets interface {
	GetOrCreateWallet(ctx context.Context, userID uint) (*wallet.Wallet, error)
	PayOrder(ctx context.Context, userID, orderID uint) (*appwallet.Receipt, error)
}

// ItemFailure 单项失败
type ItemFailure struct {
	ID      uint                   `json:"id"`
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PayOutcome 批量支付中单个订单的结果
type PayOutcome struct {
	OrderID       uint         `json:"order_id"`
	Paid          bool         `json:"paid"`
	TransactionID uint         `json:"transaction_id,omitempty"`
	Failure       *ItemFailure `json:"failure,omitempty"`
}

// PayResult 批量支付结果
type PayResult struct {
	Outcomes []PayOutcome    `json:"outcomes"`
	Paid     int             `json:"paid"`
	Failed   int             `json:"failed"`
	Balance  decimal.Decimal `json:"balance"`
}

// Result 批量取消/删除结果
type Result struct {
	Succeeded int           `json:"succeeded"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Coordinator 批量操作协调器
type Coordinator struct {
	tx      txn.Transactor
	orders  Orders
	wallets Wallets
	books   book.Repository
	items   order.Repository
	metrics *metrics.Metrics
}

// NewCoordinator 创建协调器
// itemRepo只用于删除图书前统计订单明细引用
func NewCoordinator(
	tx txn.Transactor,
	orders Orders,
	wallets Wallets,
	books book.Repository,
	itemRepo order.Repository,
	m *metrics.Metrics,
) *Coordinator {
	return &Coordinator{tx: tx, orders: orders, wallets: wallets, books: books, items: itemRepo, metrics: m}
}

// BatchPay 批量支付
//
//  1. 预检: 订单存在、属于该用户、待支付; 不满足的记为失败并排除
//  2. 可支付订单的合计金额超过余额时整批拒绝, 一笔都不付;
//     此时同时返回PayResult(保留预检失败项)和InsufficientBalance
//  3. 逐笔调用PayOrder; 预检之后的并发变化导致的单笔失败只记录, 已成功的不回滚
//
// 合计余额只在开始前检查一次.
func (c *Coordinator) BatchPay(ctx context.Context, userID uint, orderIDs []uint) (res *PayResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "batch.Pay",
		attribute.Int64("user_id", int64(userID)),
		attribute.Int("orders", len(orderIDs)))
	defer func() { tracing.End(span, err) }()

	ids := dedupe(orderIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	res = &PayResult{Outcomes: make([]PayOutcome, len(ids))}
	var eligible []int
	combined := decimal.Zero
	for i, id := range ids {
		res.Outcomes[i].OrderID = id
		o, err := c.orders.Get(ctx, id)
		if err == nil && !o.IsOwnedBy(userID) {
			err = order.PermissionDenied(id, userID)
		}
		if err == nil && o.Status != order.StatusPending {
			err = order.InvalidTransition(id, o.Status, order.StatusCompleted)
		}
		if err != nil {
			res.Outcomes[i].Failure = failureOf(ctx, id, err)
			continue
		}
		eligible = append(eligible, i)
		combined = combined.Add(o.Total)
	}

	w, err := c.wallets.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.Balance.LessThan(combined) {
		c.metrics.BatchPayResultsTotal.WithLabelValues("rejected").Add(float64(len(eligible)))
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"user_id":  userID,
			"required": combined.StringFixed(2),
			"balance":  w.Balance.StringFixed(2),
		}).Warn("batch pay rejected, combined total exceeds balance")
		res.Failed = len(ids)
		res.Balance = w.Balance
		return res, rejected(res, combined, w.Balance)
	}

	for _, i := range eligible {
		out := &res.Outcomes[i]
		receipt, err := c.wallets.PayOrder(ctx, userID, out.OrderID)
		if err != nil {
			out.Failure = failureOf(ctx, out.OrderID, err)
			continue
		}
		out.Paid = true
		out.TransactionID = receipt.TransactionID
	}

	for _, out := range res.Outcomes {
		if out.Paid {
			res.Paid++
		} else {
			res.Failed++
		}
	}
	c.metrics.BatchPayResultsTotal.WithLabelValues("paid").Add(float64(res.Paid))
	c.metrics.BatchPayResultsTotal.WithLabelValues("failed").Add(float64(res.Failed))

	w, err = c.wallets.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	res.Balance = w.Balance

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": userID,
		"paid":    res.Paid,
		"failed":  res.Failed,
		"balance": res.Balance.StringFixed(2),
	}).Info("batch pay finished")
	return res, nil
}

// rejected 整批拒绝的错误, 预检阶段已判定不合格的订单放进details.failures
func rejected(res *PayResult, required, available decimal.Decimal) error {
	appErr := wallet.InsufficientBalance(required, available)
	var failures []ItemFailure
	for _, out := range res.Outcomes {
		if out.Failure != nil {
			failures = append(failures, *out.Failure)
		}
	}
	if len(failures) > 0 {
		appErr.Details["failures"] = failures
	}
	return appErr
}

// BatchCancel 批量取消, 每个订单独立取消并归还库存
func (c *Coordinator) BatchCancel(ctx context.Context, orderIDs []uint) (*Result, error) {
	return c.each(ctx, "batch cancel", orderIDs, func(ctx context.Context, id uint) error {
		return c.orders.Cancel(ctx, id, apporder.ReasonBatch)
	})
}

// BatchCancelOwned 只取消属于userID的订单, 其他的记为无权限
func (c *Coordinator) BatchCancelOwned(ctx context.Context, userID uint, orderIDs []uint) (*Result, error) {
	return c.each(ctx, "batch cancel", orderIDs, func(ctx context.Context, id uint) error {
		o, err := c.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		if !o.IsOwnedBy(userID) {
			return order.PermissionDenied(id, userID)
		}
		return c.orders.Cancel(ctx, id, apporder.ReasonBatch)
	})
}

// BatchDelete 管理员批量硬删除订单, 不归还库存
func (c *Coordinator) BatchDelete(ctx context.Context, orderIDs []uint) (*Result, error) {
	return c.each(ctx, "batch delete orders", orderIDs, c.orders.Delete)
}

// BatchDeleteBooks 批量删除图书
// 被订单明细引用的图书拒绝删除, 失败项里带引用数
func (c *Coordinator) BatchDeleteBooks(ctx context.Context, bookIDs []uint) (*Result, error) {
	return c.each(ctx, "batch delete books", bookIDs, func(ctx context.Context, id uint) error {
		return c.tx.Transaction(ctx, func(ctx context.Context) error {
			// 先锁图书行, 下单也会锁这一行, 统计和删除之间不会插进新明细
			if _, err := c.books.LockByID(ctx, id); err != nil {
				return err
			}
			refs, err := c.items.CountItemsByBookID(ctx, id)
			if err != nil {
				return err
			}
			if refs > 0 {
				return book.Referenced(id, refs)
			}
			return c.books.Delete(ctx, id)
		})
	})
}

func (c *Coordinator) each(ctx context.Context, op string, ids []uint, fn func(ctx context.Context, id uint) error) (*Result, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	res := &Result{}
	for _, id := range ids {
		if err := fn(ctx, id); err != nil {
			res.Failures = append(res.Failures, *failureOf(ctx, id, err))
			continue
		}
		res.Succeeded++
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"op":        op,
		"requested": len(ids),
		"succeeded": res.Succeeded,
		"failed":    len(res.Failures),
	}).Info("batch finished")
	return res, nil
}

// failureOf 业务错误原样带出, 系统错误只给通用信息
func failureOf(ctx context.Context, id uint, err error) *ItemFailure {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && apperrors.IsBusiness(err) {
		return &ItemFailure{ID: id, Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	}
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"id":    id,
		"error": err.Error(),
	}).Error("batch item failed")
	return &ItemFailure{ID: id, Code: apperrors.ErrCodeInternal, Message: "internal error"}
}

// dedupe 去掉重复和0, 保持顺序
func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
