// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
)

// EventBus fans session events out to subscribers. Services publish into it
// and the WebSocket layer drains it toward connected clients.
type EventBus struct {
	subscribers map[model.EventType][]chan model.SessionEvent
	all         []chan model.SessionEvent
	events      chan model.SessionEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.SessionEvent),
		events:      make(chan model.SessionEvent, 1000),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start starts the event bus
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish publishes an event. Never blocks; a full bus drops the event.
func (eb *EventBus) Publish(event model.SessionEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
			zap.String("session_id", event.SessionID.String()),
		)
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.SessionEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.SessionEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// SubscribeAll subscribes to every event regardless of type
func (eb *EventBus) SubscribeAll() <-chan model.SessionEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.SessionEvent, 100)
	eb.all = append(eb.all, subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.SessionEvent) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.EventType]
	all := eb.all
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
	for _, subscriber := range all {
		select {
		case subscriber <- event:
		default:
		}
	}
}
