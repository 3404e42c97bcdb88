// Package messaging defines the engine's outbound event boundary.
package messaging

import (
	"context"
	"sync"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks

// Publisher delivers committed events to external subscribers. Publishing
// happens after the commit point; failures are logged and never roll the
// operation back.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// MemoryPublisher collects events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the event.
func (p *MemoryPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far, in publish order.
func (p *MemoryPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close is a no-op.
func (p *MemoryPublisher) Close() error {
	return nil
}
