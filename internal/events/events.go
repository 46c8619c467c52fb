package events

import (
	"context"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventTransactionsIngested is emitted when a transaction batch is stored
	EventTransactionsIngested EventType = "transactions.ingested"
	// EventActivationsIngested is emitted when an activation batch is stored
	EventActivationsIngested EventType = "activations.ingested"
	// EventContactsIngested is emitted when a contact batch is stored
	EventContactsIngested EventType = "contacts.ingested"
	// EventAnalysisCompleted is emitted when an analysis run finishes
	EventAnalysisCompleted EventType = "analysis.completed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// IngestedData contains data for ingestion events.
type IngestedData struct {
	Count int
}

// AnalysisCompletedData contains data for analysis completed events.
type AnalysisCompletedData struct {
	RunID       string
	AsOf        time.Time
	WeeklyCount int
	DailyCount  int
	Duration    time.Duration
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Handlers run asynchronously so ingestion and analysis are never blocked
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishIngested publishes an ingestion event for the given batch type.
func (m *Manager) PublishIngested(ctx context.Context, eventType EventType, count int) {
	m.Publish(ctx, eventType, IngestedData{Count: count})
}

// PublishAnalysisCompleted publishes an analysis completed event.
func (m *Manager) PublishAnalysisCompleted(ctx context.Context, data AnalysisCompletedData) {
	m.Publish(ctx, EventAnalysisCompleted, data)
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
