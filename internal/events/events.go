// Package events announces committed ledger writes to other parts of the
// system: the dashboard cache and, when configured, a RabbitMQ exchange.
package events

import (
	"context"
	"errors"
	"time"
)

// Event names. They double as AMQP routing keys.
const (
	OrderCreated        = "order.created"
	PaymentRecorded     = "payment.recorded"
	ExpenseRecorded     = "expense.recorded"
	SupplierTransaction = "supplier.transaction"
	CustomerCreated     = "customer.created"
)

// Event describes one committed write.
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New stamps an event with the current time.
func New(name string, payload any) Event {
	return Event{Name: name, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher receives events after the write they describe has committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi delivers an event to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
