package events

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	notify     chan *amqp091.Error
	published  []string
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(string, string, bool, bool, bool, bool, amqp091.Table) error {
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp091.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, key)
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp091.Error) chan *amqp091.Error {
	c.notify = ch
	return ch
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

// brokerDrop simulates the broker closing the channel.
func (c *fakeChannel) brokerDrop() {
	c.notify <- &amqp091.Error{Code: amqp091.ChannelError, Reason: "server restart"}
}

type fakeConn struct {
	channels []*fakeChannel
	closed   bool
}

func (c *fakeConn) Channel() (amqpChannel, error) {
	if c.closed {
		return nil, amqp091.ErrClosed
	}
	ch := &fakeChannel{}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *fakeConn) IsClosed() bool { return c.closed }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeBroker struct {
	conns   []*fakeConn
	dialErr error
}

func (b *fakeBroker) dial() (amqpConn, error) {
	if b.dialErr != nil {
		return nil, b.dialErr
	}
	conn := &fakeConn{}
	b.conns = append(b.conns, conn)
	return conn, nil
}

func (b *fakeBroker) lastChannel() *fakeChannel {
	conn := b.conns[len(b.conns)-1]
	return conn.channels[len(conn.channels)-1]
}

func TestAMQPPublisher_ReopensClosedChannel(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "pocketledger.test")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Event{Type: ExpenseCreated}))
	first := broker.lastChannel()
	assert.Equal(t, []string{"expense.created"}, first.published)

	first.brokerDrop()
	require.NoError(t, p.Publish(ctx, Event{Type: ExpenseDeleted}))

	require.Len(t, broker.conns, 1)
	require.Len(t, broker.conns[0].channels, 2)
	assert.Equal(t, []string{"expense.deleted"}, broker.lastChannel().published)
}

func TestAMQPPublisher_RedialsClosedConnection(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "pocketledger.test")
	require.NoError(t, err)
	ctx := context.Background()

	broker.conns[0].closed = true
	broker.lastChannel().brokerDrop()

	require.NoError(t, p.Publish(ctx, Event{Type: IncomeCreated}))
	require.Len(t, broker.conns, 2)
	assert.Equal(t, []string{"income.created"}, broker.lastChannel().published)
}

func TestAMQPPublisher_RetriesOnceOnErrClosed(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "pocketledger.test")
	require.NoError(t, err)

	broker.lastChannel().publishErr = amqp091.ErrClosed
	require.NoError(t, p.Publish(context.Background(), Event{Type: CategoryCreated}))
	assert.Len(t, broker.conns[0].channels, 2)
}

func TestAMQPPublisher_DialFailure(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "pocketledger.test")
	require.NoError(t, err)

	broker.conns[0].closed = true
	broker.lastChannel().brokerDrop()
	broker.dialErr = errors.New("connection refused")

	err = p.Publish(context.Background(), Event{Type: ExpenseCreated})
	assert.ErrorContains(t, err, "connection refused")

	broker.dialErr = nil
	assert.NoError(t, p.Publish(context.Background(), Event{Type: ExpenseCreated}))
}

func TestAMQPPublisher_Close(t *testing.T) {
	broker := &fakeBroker{}
	p, err := newAMQPPublisher(broker.dial, "pocketledger.test")
	require.NoError(t, err)
	ch := broker.lastChannel()

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, broker.conns[0].closed)
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Type: ExpenseCreated}), errPublisherClosed)
}
