package kds

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestHubScopesEventsToRestaurant(t *testing.T) {
	hub := NewHub()
	own, other := &fakeConn{}, &fakeConn{}
	hub.Register(own, 1, "waiter", 0)
	hub.Register(other, 2, "waiter", 0)

	hub.Publish(context.Background(), NewEvent(EventSessionOpened, 1, nil).WithSession(5))

	require.Len(t, own.messages, 1)
	assert.Empty(t, other.messages)

	var got Event
	require.NoError(t, json.Unmarshal(own.messages[0], &got))
	assert.Equal(t, EventSessionOpened, got.Type)
	assert.Equal(t, uint(5), got.SessionID)
	assert.NotEmpty(t, got.ID)
}

func TestHubSessionScopedClient(t *testing.T) {
	hub := NewHub()
	customer := &fakeConn{}
	hub.Register(customer, 1, "customer", 7)

	hub.Publish(context.Background(), NewEvent(EventOrderPlaced, 1, nil).WithSession(8))
	hub.Publish(context.Background(), NewEvent(EventOrderPlaced, 1, nil).WithSession(7))

	assert.Len(t, customer.messages, 1)
}

func TestHubDropsBrokenClients(t *testing.T) {
	hub := NewHub()
	broken := &fakeConn{fail: true}
	hub.Register(broken, 1, "admin", 0)

	hub.Publish(context.Background(), NewEvent(EventTableUpdate, 1, nil))

	assert.True(t, broken.closed)
	assert.Zero(t, hub.Count())
}

func TestFanoutAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Fanout{a, Nop{}, nil, b}.Publish(context.Background(), NewEvent(EventSessionClosed, 1, nil))

	assert.Equal(t, []string{EventSessionClosed}, a.Types())
	assert.Equal(t, []string{EventSessionClosed}, b.Types())
}
