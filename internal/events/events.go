package events

import (
	"context"
	"sync"
	"time"
)

const (
	TopicUsers         = "user_events"
	TopicClients       = "client_events"
	TopicPrescriptions = "prescription_events"
	TopicWorkOrders    = "work_order_events"
)

const (
	UserLoggedIn            = "user_logged_in"
	UserRegistered          = "user_registered"
	UserUpdated             = "user_updated"
	ClientCreated           = "client_created"
	ClientUpdated           = "client_updated"
	ClientDeleted           = "client_deleted"
	PrescriptionCreated     = "prescription_created"
	PrescriptionReconfirmed = "prescription_reconfirmed"
	PrescriptionUpdated     = "prescription_updated"
	PrescriptionDeleted     = "prescription_deleted"
	WorkOrderCreated        = "work_order_created"
	WorkOrderUpdated        = "work_order_updated"
	WorkOrderDeleted        = "work_order_deleted"
)

type Event struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	NationalID string    `json:"national_id,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
	Data       any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, Event) error { return nil }
func (Nop) Close() error                                         { return nil }

type Published struct {
	Topic string
	Key   string
	Event Event
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, topic, key string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Published, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []string {
	var out []string
	for _, p := range r.Events() {
		out = append(out, p.Event.Type)
	}
	return out
}
