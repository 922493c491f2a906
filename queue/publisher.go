// Package queue publishes domain events to RabbitMQ. Failures are logged and
// never surface to the request that produced the event.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const (
	DefaultQueue  = "session.events"
	DefaultBuffer = 256
	sendTimeout   = 5 * time.Second
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel to the broker.
type Dialer func(url string) (Channel, func() error, error)

func amqpDialer(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

type Publisher struct {
	url   string
	queue string
	dial  Dialer

	mu        sync.Mutex
	ch        Channel
	closeConn func() error

	events    chan kds.Event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewPublisher(url, queue string) *Publisher {
	return NewPublisherWithDialer(url, queue, amqpDialer)
}

// NewPublisherWithDialer starts the background sender; Close stops it.
func NewPublisherWithDialer(url, queue string, dial Dialer) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &Publisher{
		url:     url,
		queue:   queue,
		dial:    dial,
		events:  make(chan kds.Event, DefaultBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Publisher) loop() {
	defer close(p.stopped)
	for {
		select {
		case event := <-p.events:
			p.deliver(event)
		case <-p.done:
			// kirim sisa event yang sudah antre sebelum berhenti
			for {
				select {
				case event := <-p.events:
					p.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(event kds.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := p.Send(ctx, event); err != nil {
		p.logDrop(event, err, "rabbitmq publish failed")
	}
}

func (p *Publisher) logDrop(event kds.Event, err error, msg string) {
	entry := utils.ErrorLogger.WithFields(logrus.Fields{
		"event":    event.Type,
		"event_id": event.ID,
		"queue":    p.queue,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(msg)
}

// channel lazily connects and declares the durable queue.
func (p *Publisher) channel() (Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return nil, err
	}
	p.ch, p.closeConn = ch, closeConn
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

// Send publishes one event as a persistent JSON message.
func (p *Publisher) Send(ctx context.Context, event kds.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.reset()
		return err
	}
	return nil
}

// Publish implements kds.Notifier. It only enqueues; a full buffer or a
// closed publisher drops the event with a warning.
func (p *Publisher) Publish(_ context.Context, event kds.Event) {
	select {
	case <-p.done:
		p.logDrop(event, nil, "rabbitmq publisher closed, event dropped")
		return
	default:
	}
	select {
	case p.events <- event:
	default:
		p.logDrop(event, nil, "rabbitmq buffer full, event dropped")
	}
}

// Close flushes queued events, then drops the connection.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
