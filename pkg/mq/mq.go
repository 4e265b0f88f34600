// Package mq RabbitMQ消息发布
//
// 只负责"连上、声明exchange、发JSON", 断线重连和熔断由调用方(infrastructure/messaging)处理.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// Channel Publisher依赖的amqp.Channel子集, 测试时可替换
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher 向topic exchange发布JSON消息
type Publisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	now      func() time.Time
}

// Dial 连接RabbitMQ并声明持久化exchange
func Dial(url, exchange, exchangeType string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// durable=true, autoDelete=false, internal=false, noWait=false
	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	logger.L().WithFields(logrus.Fields{
		"exchange": exchange,
		"type":     exchangeType,
	}).Info("rabbitmq publisher ready")

	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// NewPublisher 用已有channel构造Publisher
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, now: time.Now}
}

// Publish 序列化为JSON并以持久化消息发布
// messageID用于消费端去重
func (p *Publisher) Publish(ctx context.Context, routingKey, messageID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"routing_key": routingKey,
		"message_id":  messageID,
	}).Debug("message published")
	return nil
}

// Close 关闭channel和连接
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
