// Package notify delivers verification outcome events to users. Delivery
// itself (email, SMS, push) is an external collaborator; this package only
// publishes the event.
package notify

import (
	"context"
	"sync"
	"time"
)

// Event describes a verification outcome a user should hear about.
type Event struct {
	UserID     string    `json:"user_id"`
	Channel    string    `json:"channel"`
	Outcome    string    `json:"outcome"`
	TrustScore int       `json:"trust_score"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes a single event. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// InMemory collects events for tests and dev mode.
type InMemory struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (n *InMemory) Notify(_ context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (n *InMemory) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.events))
	copy(out, n.events)
	return out
}
