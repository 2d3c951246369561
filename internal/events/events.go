// Package events publishes ledger changes after they commit. Publishing is
// best effort: a failed publish is logged by the caller and never undoes
// the write that produced it.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type is the routing key of an event.
type Type string

const (
	CategoryCreated Type = "category.created"
	CategoryDeleted Type = "category.deleted"
	ExpenseCreated  Type = "expense.created"
	ExpenseUpdated  Type = "expense.updated"
	ExpenseDeleted  Type = "expense.deleted"
	IncomeCreated   Type = "income.created"
	IncomeUpdated   Type = "income.updated"
	IncomeDeleted   Type = "income.deleted"
)

// Event describes one committed ledger write.
type Event struct {
	Type        Type      `json:"type"`
	UserID      string    `json:"user_id"`
	ResourceID  string    `json:"resource_id"`
	CategoryID  string    `json:"category_id,omitempty"`
	Amount      int64     `json:"amount,omitempty"`
	PaymentType string    `json:"payment_type,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ToJSON encodes e as a message body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to whoever listens.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the types of the published events in order.
func (r *Recorder) Types() []Type {
	var out []Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
