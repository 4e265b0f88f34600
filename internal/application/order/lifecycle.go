// Package order 订单生命周期
//
// 下单、状态迁移、取消和删除都在显式事务里完成; 领域事件在提交后发布.
package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/bookstore-core/internal/application/event"
	"github.com/xiebiao/bookstore-core/internal/application/inventory"
	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/txn"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/tracing"
)

// Line 下单明细
type Line struct {
	BookID   uint
	Quantity int
}

// CancelReason 取消原因, 写进日志和order.cancelled事件
type CancelReason string

const (
	ReasonUser    CancelReason = "user"
	ReasonOverdue CancelReason = "overdue"
	ReasonBatch   CancelReason = "batch"
)

// Lifecycle 订单生命周期
type Lifecycle struct {
	tx        txn.Transactor
	orders    order.Repository
	books     book.Repository
	users     user.Repository
	inventory *inventory.Ledger
	events    event.Publisher
	metrics   *metrics.Metrics

	orderNoRetries int
	now            func() time.Time
	newOrderNo     func(time.Time) string
}

// NewLifecycle 创建订单生命周期
func NewLifecycle(
	tx txn.Transactor,
	orders order.Repository,
	books book.Repository,
	users user.Repository,
	inv *inventory.Ledger,
	events event.Publisher,
	m *metrics.Metrics,
	cfg config.OrderConfig,
) *Lifecycle {
	retries := cfg.OrderNoRetries
	if retries < 1 {
		retries = 1
	}
	return &Lifecycle{
		tx:             tx,
		orders:         orders,
		books:          books,
		users:          users,
		inventory:      inv,
		events:         events,
		metrics:        m,
		orderNoRetries: retries,
		now:            time.Now,
		newOrderNo:     order.GenerateOrderNo,
	}
}

// SetClock 替换时钟
func (l *Lifecycle) SetClock(now func() time.Time) {
	l.now = now
}

// Create 创建订单
//
// 流程(同一事务内):
//  1. 校验用户存在
//  2. 按book_id升序逐本加行锁、预留库存, 并发下单不会因加锁顺序不同而死锁
//  3. 用锁定时的价格快照计算总额
//  4. 写入订单, 订单号冲突时重新生成
//
// 任何一步失败整个事务回滚, 之前预留的库存一并恢复.
func (l *Lifecycle) Create(ctx context.Context, userID uint, lines []Line) (created *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, "order.Create",
		attribute.Int64("user_id", int64(userID)),
		attribute.Int("lines", len(lines)))
	defer func() { tracing.End(span, err) }()

	start := time.Now()
	defer func() {
		l.metrics.OrderCreationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			l.metrics.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		}
	}()

	if len(lines) == 0 {
		return nil, order.ErrInvalidOrderItems
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
	}

	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := l.users.FindByID(ctx, userID); err != nil {
			return err
		}

		items := make([]order.OrderItem, len(lines))
		for _, idx := range lockOrder(lines) {
			line := lines[idx]
			b, err := l.books.LockByID(ctx, line.BookID)
			if err != nil {
				return err
			}
			if _, err := l.inventory.Reserve(ctx, b.ID, line.Quantity); err != nil {
				return err
			}
			items[idx] = order.OrderItem{
				BookID:   b.ID,
				Quantity: line.Quantity,
				Price:    b.Price,
			}
		}

		o, err := l.insert(ctx, userID, items)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("create order failed")
		return nil, err
	}

	l.metrics.OrdersCreatedTotal.Inc()
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id": created.ID,
		"order_no": created.OrderNo,
		"user_id":  userID,
		"total":    created.Total.StringFixed(2),
	}).Info("order created")
	event.Emit(ctx, l.events, event.OrderCreated, payloadOf(created, ""))
	return created, nil
}

// CreateFromSingleBook 单本书下单
func (l *Lifecycle) CreateFromSingleBook(ctx context.Context, userID, bookID uint, quantity int) (*order.Order, error) {
	return l.Create(ctx, userID, []Line{{BookID: bookID, Quantity: quantity}})
}

// insert 写入订单, 订单号唯一索引冲突时换号重试
func (l *Lifecycle) insert(ctx context.Context, userID uint, items []order.OrderItem) (*order.Order, error) {
	now := l.now()
	for attempt := 1; attempt <= l.orderNoRetries; attempt++ {
		lineCopy := make([]order.OrderItem, len(items))
		copy(lineCopy, items)

		o := order.NewOrder(l.newOrderNo(now), userID, lineCopy, now)
		err := l.orders.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, order.ErrDuplicateOrderNo) {
			return nil, err
		}
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"order_no": o.OrderNo,
			"attempt":  attempt,
		}).Warn("order number collision, regenerating")
	}
	return nil, order.ErrOrderNoExhausted
}

// MarkCompleted Pending → Completed
// 只改状态, 扣款由调用方在同一事务里完成
func (l *Lifecycle) MarkCompleted(ctx context.Context, orderID uint) error {
	return l.transition(ctx, orderID, order.StatusCompleted)
}

// MarkRefunded Completed → Refunded
func (l *Lifecycle) MarkRefunded(ctx context.Context, orderID uint) error {
	return l.transition(ctx, orderID, order.StatusRefunded)
}

func (l *Lifecycle) transition(ctx context.Context, orderID uint, to order.Status) error {
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := l.orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.TransitionTo(to, l.now()); err != nil {
			return err
		}
		// 行锁之外再加一层CAS, 状态被并发修改时更新不会命中
		return l.orders.UpdateStatus(ctx, o.ID, from, to, o.UpdatedAt)
	})
	if err != nil {
		return err
	}
	l.metrics.OrderTransitionsTotal.WithLabelValues(to.String()).Inc()
	return nil
}

// Lock 行锁读取订单, 只能在事务内调用
func (l *Lifecycle) Lock(ctx context.Context, orderID uint) (*order.Order, error) {
	return l.orders.LockByID(ctx, orderID)
}

// Cancel 取消待支付订单: 归还每条明细的库存后删除订单
// 非Pending返回 InvalidTransition. 自己开事务, 提交后发布order.cancelled.
func (l *Lifecycle) Cancel(ctx context.Context, orderID uint, reason CancelReason) (err error) {
	ctx, span := tracing.StartSpan(ctx, "order.Cancel",
		attribute.Int64("order_id", int64(orderID)),
		attribute.String("reason", string(reason)))
	defer func() { tracing.End(span, err) }()

	var cancelled *order.Order
	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := l.orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransitionTo(order.StatusCancelled) {
			return order.InvalidTransition(o.ID, o.Status, order.StatusCancelled)
		}

		items := make([]order.OrderItem, len(o.Items))
		copy(items, o.Items)
		sort.SliceStable(items, func(i, j int) bool { return items[i].BookID < items[j].BookID })
		for _, item := range items {
			if _, err := l.inventory.Release(ctx, item.BookID, item.Quantity); err != nil {
				return err
			}
		}

		if err := l.orders.Delete(ctx, o.ID); err != nil {
			return err
		}
		o.Status = order.StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return err
	}

	l.metrics.OrderTransitionsTotal.WithLabelValues(order.StatusCancelled.String()).Inc()
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id": cancelled.ID,
		"order_no": cancelled.OrderNo,
		"reason":   reason,
	}).Info("order cancelled")
	event.Emit(ctx, l.events, event.OrderCancelled, payloadOf(cancelled, string(reason)))
	return nil
}

// Delete 管理员硬删除, 不管状态, 不归还库存
func (l *Lifecycle) Delete(ctx context.Context, orderID uint) error {
	var deleted *order.Order
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := l.orders.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := l.orders.Delete(ctx, o.ID); err != nil {
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_id": deleted.ID,
		"status":   deleted.Status.String(),
	}).Info("order deleted")
	event.Emit(ctx, l.events, event.OrderDeleted, payloadOf(deleted, "admin"))
	return nil
}

// Get 查询订单(含明细)
func (l *Lifecycle) Get(ctx context.Context, orderID uint) (*order.Order, error) {
	return l.orders.FindByID(ctx, orderID)
}

// ListByUser 用户订单分页
func (l *Lifecycle) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return l.orders.ListByUserID(ctx, userID, page, pageSize)
}

// ListPaged 全部订单分页
func (l *Lifecycle) ListPaged(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return l.orders.List(ctx, page, pageSize)
}

// ListOverdue 创建时间早于cutoff的待支付订单
func (l *Lifecycle) ListOverdue(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	return l.orders.ListPendingBefore(ctx, cutoff)
}

// lockOrder 按book_id升序返回明细下标, 相同book_id保持原顺序
func lockOrder(lines []Line) []int {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return lines[idx[a]].BookID < lines[idx[b]].BookID
	})
	return idx
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func payloadOf(o *order.Order, reason string) event.OrderPayload {
	return event.OrderPayload{
		OrderID: o.ID,
		OrderNo: o.OrderNo,
		UserID:  o.UserID,
		Total:   o.Total.StringFixed(2),
		Status:  o.Status.String(),
		Reason:  reason,
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, book.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, book.ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, user.ErrUserNotFound):
		return "user_not_found"
	case apperrors.IsBusiness(err):
		return "invalid_request"
	default:
		return "internal"
	}
}
