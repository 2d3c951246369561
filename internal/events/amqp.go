package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

var errPublisherClosed = errors.New("publisher closed")

// amqpChannel is the part of *amqp091.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	NotifyClose(c chan *amqp091.Error) chan *amqp091.Error
	Close() error
}

type amqpConn interface {
	Channel() (amqpChannel, error)
	IsClosed() bool
	Close() error
}

type dialedConn struct {
	*amqp091.Connection
}

func (c dialedConn) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// AMQPPublisher publishes events to a durable topic exchange, using the
// event type as routing key. A channel or connection closed by the broker
// is reopened on the next publish.
type AMQPPublisher struct {
	mu       sync.Mutex
	dial     func() (amqpConn, error)
	conn     amqpConn
	channel  amqpChannel
	closed   chan *amqp091.Error
	exchange string
	shut     bool
}

// NewAMQPPublisher dials url and declares exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	return newAMQPPublisher(func() (amqpConn, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			return nil, err
		}
		return dialedConn{conn}, nil
	}, exchange)
}

func newAMQPPublisher(dial func() (amqpConn, error), exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{dial: dial, exchange: exchange}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.ensureChannel(); err != nil {
		p.closeLocked()
		return nil, err
	}
	return p, nil
}

// ensureChannel returns an open channel, redialing and redeclaring the
// exchange when the previous one was closed. p.mu must be held.
func (p *AMQPPublisher) ensureChannel() (amqpChannel, error) {
	if p.shut {
		return nil, errPublisherClosed
	}
	if p.channel != nil {
		select {
		case <-p.closed:
			p.channel = nil
		default:
			return p.channel, nil
		}
	}

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial()
		if err != nil {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		p.conn = conn
	}

	channel, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p.closed = channel.NotifyClose(make(chan *amqp091.Error, 1))
	p.channel = channel
	return channel, nil
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; ; attempt++ {
		channel, err := p.ensureChannel()
		if err != nil {
			return fmt.Errorf("publish %s: %w", event.Type, err)
		}
		err = channel.PublishWithContext(
			ctx,
			p.exchange,         // exchange
			string(event.Type), // routing key
			false,              // mandatory
			false,              // immediate
			msg,
		)
		if err == nil {
			return nil
		}
		if !errors.Is(err, amqp091.ErrClosed) || attempt > 0 {
			return fmt.Errorf("publish %s: %w", event.Type, err)
		}
		// Closed under us before the notification arrived; reopen once.
		p.channel = nil
	}
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPPublisher) closeLocked() error {
	p.shut = true
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
