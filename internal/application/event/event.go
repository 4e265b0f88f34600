// Package event 领域事件
//
// 事件在事务提交之后发布, 发布失败只记日志, 不影响已提交的业务结果.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// 事件类型, 同时作为消息的routing key
const (
	OrderCreated    = "order.created"
	OrderPaid       = "order.paid"
	OrderRefunded   = "order.refunded"
	OrderCancelled  = "order.cancelled"
	OrderDeleted    = "order.deleted"
	WalletDeposited = "wallet.deposited"
	WalletWithdrawn = "wallet.withdrawn"
)

// Event 领域事件
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// New 创建事件, ID用于消费端去重
func New(eventType string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
}

// OrderPayload 订单事件内容
type OrderPayload struct {
	OrderID uint   `json:"order_id"`
	OrderNo string `json:"order_no"`
	UserID  uint   `json:"user_id"`
	Total   string `json:"total"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// WalletPayload 钱包事件内容
type WalletPayload struct {
	UserID        uint   `json:"user_id"`
	WalletID      uint   `json:"wallet_id"`
	TransactionID uint   `json:"transaction_id"`
	RefNo         string `json:"ref_no"`
	Amount        string `json:"amount"`
	Balance       string `json:"balance"`
	OrderID       *uint  `json:"order_id,omitempty"`
}

// Publisher 事件发布端口
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop 丢弃所有事件, 未启用消息队列时使用
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit 发布事件, 失败记Warn日志
func Emit(ctx context.Context, p Publisher, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	e := New(eventType, payload)
	if err := p.Publish(ctx, e); err != nil {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"event_id":   e.ID,
			"event_type": e.Type,
			"error":      err.Error(),
		}).Warn("publish event failed")
	}
}
