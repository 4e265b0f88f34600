// Package messaging 把领域事件发布到RabbitMQ
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/application/event"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/pkg/circuitbreaker"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/mq"
)

const breakerName = "rabbitmq"

// Sender 发送原始消息, *mq.Publisher实现了它
type Sender interface {
	Publish(ctx context.Context, routingKey, messageID string, payload interface{}) error
}

// EventPublisher 带熔断的事件发布器
// 代理不可用时熔断器打开, 之后的事件直接失败, 不拖慢业务请求
type EventPublisher struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(sender Sender, m *metrics.Metrics, cfg config.MQConfig) *EventPublisher {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	breaker := circuitbreaker.New(breakerName, circuitbreaker.Config{
		Timeout: cfg.BreakerTimeout,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logger.L().WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(circuitbreaker.StateClosed))

	return &EventPublisher{sender: sender, breaker: breaker, metrics: m, timeout: timeout}
}

// Publish 发布事件
// 请求结束不应取消已提交业务的事件, 所以脱离调用方的取消信号, 只保留超时
func (p *EventPublisher) Publish(ctx context.Context, e event.Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.sender.Publish(ctx, e.Type, e.ID, e)
	})

	result := "success"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	p.metrics.CircuitBreakerRequests.WithLabelValues(breakerName, result).Inc()
	p.metrics.MessagesPublishedTotal.WithLabelValues(e.Type, result).Inc()
	return err
}

// Connect 按配置创建事件发布器
// 未启用时返回 event.Nop; 返回的close函数总是非nil
func Connect(cfg *config.Config, m *metrics.Metrics) (event.Publisher, func(), error) {
	if !cfg.MQ.Enabled {
		logger.L().Info("message queue disabled, events are dropped")
		return event.Nop{}, func() {}, nil
	}

	pub, err := mq.Dial(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := pub.Close(); err != nil {
			logger.L().WithError(err).Warn("close rabbitmq publisher")
		}
	}
	return NewEventPublisher(pub, m, cfg.MQ), closeFn, nil
}
