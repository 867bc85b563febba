package events

import (
	"context"
	"slices"
	"sync"

	"github.com/campflow/matching-engine/internal/domain"
)

// MemoryPublisher collects events in memory. Used in tests to assert on
// the transition sequence a service produced.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
}

// NewMemoryPublisher creates an empty MemoryPublisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the event
func (p *MemoryPublisher) Publish(_ context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the recorded events in publish order
func (p *MemoryPublisher) Events() []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// Reset discards all recorded events
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Ensure MemoryPublisher implements Publisher
var _ Publisher = (*MemoryPublisher)(nil)
