package kds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventSessionOpened      = "session_opened"
	EventOTPRegenerated     = "otp_regenerated"
	EventSessionClosed      = "session_closed"
	EventSessionCleared     = "session_cleared"
	EventCustomerJoined     = "customer_joined"
	EventOrderPlaced        = "order_placed"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderAttributed    = "order_attributed"
	EventOrderDetached      = "order_detached"
	EventTableUpdate        = "table_update"
	EventRecordDeleted      = "record_deleted"
	EventRecordRestored     = "record_restored"
	EventRecordPurged       = "record_purged"
)

// Event is what every sink receives. SessionID and OrderID are zero when not
// applicable.
type Event struct {
	ID           string      `json:"id"`
	Type         string      `json:"event"`
	RestaurantID uint        `json:"restaurant_id"`
	SessionID    uint        `json:"session_id,omitempty"`
	OrderID      uint        `json:"order_id,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

func NewEvent(eventType string, restaurantID uint, data interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		RestaurantID: restaurantID,
		Data:         data,
		OccurredAt:   time.Now().UTC(),
	}
}

func (e Event) WithSession(id uint) Event { e.SessionID = id; return e }
func (e Event) WithOrder(id uint) Event   { e.OrderID = id; return e }

// Notifier is fire-and-forget: a failed delivery is logged by the sink and
// never fails the operation that emitted the event.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, event Event) {
	for _, n := range f {
		if n != nil {
			n.Publish(ctx, event)
		}
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
