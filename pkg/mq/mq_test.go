package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type orderPaid struct {
	OrderID uint   `json:"order_id"`
	Amount  string `json:"amount"`
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "bookstore.events")
	p.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	err := p.Publish(context.Background(), "order.paid", "msg-1", orderPaid{OrderID: 42, Amount: "60.00"})
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, "bookstore.events", got.exchange)
	assert.Equal(t, "order.paid", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "msg-1", got.msg.MessageId)

	var body orderPaid
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, uint(42), body.OrderID)
	assert.Equal(t, "60.00", body.Amount)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := NewPublisher(ch, "bookstore.events")

	err := p.Publish(context.Background(), "order.created", "msg-2", orderPaid{OrderID: 1})
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestPublisher_MarshalError(t *testing.T) {
	p := NewPublisher(&fakeChannel{}, "bookstore.events")

	err := p.Publish(context.Background(), "order.created", "msg-3", make(chan int))
	assert.Error(t, err)
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "bookstore.events")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
