// Package sweeper 超时订单清理
//
// 扫描创建时间早于 now-threshold 的待支付订单, 逐个取消(归还库存并删除).
// 单个订单失败只记日志, 不影响其他订单; 重复执行是安全的, 已取消的订单不会再被扫到.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/tracing"
)

// DefaultThreshold 默认超时时间
const DefaultThreshold = 5 * time.Minute

// Orders 清理需要的订单能力
type Orders interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*order.Order, error)
	Cancel(ctx context.Context, orderID uint, reason apporder.CancelReason) error
}

// Result 一次清理的结果
type Result struct {
	Scanned   int    `json:"scanned"`
	Cancelled int    `json:"cancelled"`
	Skipped   int    `json:"skipped"`
	Failed    []uint `json:"failed,omitempty"`
}

// Sweeper 超时订单清理器
type Sweeper struct {
	orders    Orders
	metrics   *metrics.Metrics
	threshold time.Duration
	now       func() time.Time
}

// New 创建清理器
func New(orders Orders, m *metrics.Metrics, cfg config.OrderConfig) *Sweeper {
	threshold := cfg.OverdueThreshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Sweeper{orders: orders, metrics: m, threshold: threshold, now: time.Now}
}

// SetClock 替换时钟
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep 执行一次清理, threshold<=0时使用配置的默认值
func (s *Sweeper) Sweep(ctx context.Context, threshold time.Duration) (res *Result, err error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	ctx, span := tracing.StartSpan(ctx, "sweeper.Sweep", attribute.String("threshold", threshold.String()))
	defer func() { tracing.End(span, err) }()

	now := s.now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.SweeperRunsTotal.WithLabelValues(result).Inc()
		s.metrics.SweeperLastRun.Set(float64(now.Unix()))
	}()

	overdue, err := s.orders.ListOverdue(ctx, now.Add(-threshold))
	if err != nil {
		return nil, err
	}

	res = &Result{Scanned: len(overdue)}
	for _, o := range overdue {
		// 只在订单之间检查取消, 不打断进行中的事务
		if ctx.Err() != nil {
			break
		}

		err := s.orders.Cancel(ctx, o.ID, apporder.ReasonOverdue)
		switch {
		case err == nil:
			res.Cancelled++
		case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, order.ErrInvalidTransition):
			// 扫描之后被支付或取消了
			res.Skipped++
		default:
			res.Failed = append(res.Failed, o.ID)
			logger.WithContext(ctx).WithFields(logrus.Fields{
				"order_id": o.ID,
				"order_no": o.OrderNo,
				"error":    err.Error(),
			}).Error("cancel overdue order failed")
		}
	}

	s.metrics.SweeperOrdersReleased.Add(float64(res.Cancelled))
	s.metrics.SweeperOrderFailures.Add(float64(len(res.Failed)))
	if res.Scanned > 0 {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"scanned":   res.Scanned,
			"cancelled": res.Cancelled,
			"skipped":   res.Skipped,
			"failed":    len(res.Failed),
		}).Info("overdue sweep finished")
	}
	return res, nil
}

// Run 按interval定时清理, ctx取消后返回
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.L().WithFields(logrus.Fields{
		"interval":  interval.String(),
		"threshold": s.threshold.String(),
	}).Info("overdue sweeper started")

	for {
		select {
		case <-ctx.Done():
			logger.L().Info("overdue sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, 0); err != nil {
				logger.L().WithError(err).Error("overdue sweep failed")
			}
		}
	}
}
