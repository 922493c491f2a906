package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suman7063/Restaurant-Managment-sub002/kds"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherSendsPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	dials := 0
	p := NewPublisherWithDialer("amqp://test", "", func(string) (Channel, func() error, error) {
		dials++
		return ch, nil, nil
	})

	event := kds.NewEvent(kds.EventSessionClosed, 1, map[string]string{"total": "250.00"}).WithSession(3)
	require.NoError(t, p.Send(context.Background(), event))
	require.NoError(t, p.Send(context.Background(), event))

	assert.Equal(t, 1, dials, "connection is reused")
	assert.Equal(t, []string{DefaultQueue}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, event.ID, ch.published[0].MessageId)

	var got kds.Event
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, uint(3), got.SessionID)
}

func TestPublisherReconnectsAfterFailure(t *testing.T) {
	broken := &fakeChannel{publishErr: errors.New("channel closed")}
	healthy := &fakeChannel{}
	channels := []*fakeChannel{broken, healthy}
	p := NewPublisherWithDialer("amqp://test", "events", func(string) (Channel, func() error, error) {
		next := channels[0]
		channels = channels[1:]
		return next, nil, nil
	})

	event := kds.NewEvent(kds.EventOrderPlaced, 1, nil)
	p.Publish(context.Background(), event) // logged, not returned
	p.Close()
	assert.True(t, broken.closed)

	require.NoError(t, p.Send(context.Background(), event))
	assert.Equal(t, []string{"events"}, healthy.keys)
}

func TestPublisherDialFailure(t *testing.T) {
	p := NewPublisherWithDialer("amqp://down", "", func(string) (Channel, func() error, error) {
		return nil, nil, errors.New("connection refused")
	})
	assert.Error(t, p.Send(context.Background(), kds.NewEvent(kds.EventOrderPlaced, 1, nil)))
}

// blockingChannel holds every publish until release is closed.
type blockingChannel struct {
	fakeChannel
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func (b *blockingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fakeChannel.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	ch := &blockingChannel{entered: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewPublisherWithDialer("amqp://slow", "", func(string) (Channel, func() error, error) {
		return ch, nil, nil
	})

	returned := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			p.Publish(context.Background(), kds.NewEvent(kds.EventOrderPlaced, 1, nil))
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a stalled broker")
	}
	<-ch.entered

	close(ch.release)
	p.Close()
	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Len(t, ch.published, 3, "queued events are flushed on close")
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisherWithDialer("amqp://test", "", func(string) (Channel, func() error, error) {
		return ch, nil, nil
	})
	p.Close()
	p.Publish(context.Background(), kds.NewEvent(kds.EventOrderPlaced, 1, nil))
	p.Close()
	assert.Empty(t, ch.published)
}
