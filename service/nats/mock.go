package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ShortfallEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*ShortfallEvent, 0),
	}
}

// PublishShortfall records the event and returns any configured error.
func (m *MockPublisher) PublishShortfall(ctx context.Context, event *ShortfallEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of all published events.
func (m *MockPublisher) GetPublishedEvents() []*ShortfallEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ShortfallEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForNetwork returns events published for one network.
func (m *MockPublisher) GetPublishedEventsForNetwork(name string) []*ShortfallEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ShortfallEvent, 0)
	for _, event := range m.publishedEvents {
		if event.Network == name {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on PublishShortfall.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// Reset clears all published events and errors.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = make([]*ShortfallEvent, 0)
	m.publishError = nil
	m.closed = false
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
