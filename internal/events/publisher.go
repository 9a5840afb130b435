package events

import (
	"sync"
)

// GlobalWorkflowID is the special workflow ID for subscribing to all events.
const GlobalWorkflowID = "*"

// Publisher defines the interface for event publishing.
type Publisher interface {
	// Publish sends an event to all subscribers of the workflow.
	Publish(event Event)
	// Subscribe returns a channel that receives events for the given workflow.
	// Use GlobalWorkflowID ("*") to receive events for all workflows.
	Subscribe(workflowID string) <-chan Event
	// Unsubscribe removes a subscription channel.
	Unsubscribe(workflowID string, ch <-chan Event)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan Event),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends an event to the workflow's subscribers and to global
// subscribers. Subscribers with full buffers are skipped.
func (p *MemoryPublisher) Publish(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	send(p.subscribers[event.WorkflowID], event)
	if event.WorkflowID != GlobalWorkflowID {
		send(p.subscribers[GlobalWorkflowID], event)
	}
}

func send(subs []chan Event, event Event) {
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel that receives events for the given workflow.
func (p *MemoryPublisher) Subscribe(workflowID string) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, p.bufferSize)
	p.subscribers[workflowID] = append(p.subscribers[workflowID], ch)
	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (p *MemoryPublisher) Unsubscribe(workflowID string, ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[workflowID]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[workflowID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}

	if len(p.subscribers[workflowID]) == 0 {
		delete(p.subscribers, workflowID)
	}
}

// Close shuts down the publisher and closes all subscription channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	for id, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.subscribers, id)
	}
}

// SubscriberCount returns the number of subscribers for a workflow.
func (p *MemoryPublisher) SubscriberCount(workflowID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers[workflowID])
}

// NopPublisher is a no-op publisher for the CLI and tests.
type NopPublisher struct{}

// Publish does nothing.
func (p *NopPublisher) Publish(event Event) {}

// Subscribe returns a closed channel.
func (p *NopPublisher) Subscribe(workflowID string) <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

// Unsubscribe does nothing.
func (p *NopPublisher) Unsubscribe(workflowID string, ch <-chan Event) {}

// Close does nothing.
func (p *NopPublisher) Close() {}

// NewNopPublisher creates a no-op publisher.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}
