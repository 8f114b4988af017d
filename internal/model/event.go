// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventSessionOpened EventType = "SESSION_OPENED"
	EventSessionClosed EventType = "SESSION_CLOSED"
	EventSessionError  EventType = "SESSION_ERROR"
	EventTranscript    EventType = "TRANSCRIPT_ENTRY"
)

// SessionEvent is published on the event bus and fanned out to WebSocket
// subscribers watching the live transcript
type SessionEvent struct {
	ID        uuid.UUID        `json:"id"`
	EventType EventType        `json:"event_type"`
	SessionID uuid.UUID        `json:"session_id"`
	Entry     *TranscriptEntry `json:"entry,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Severity  string           `json:"severity"` // INFO, WARNING, ERROR
}

// NewLifecycleEvent builds a session lifecycle event
func NewLifecycleEvent(eventType EventType, sessionID uuid.UUID, message, severity string) SessionEvent {
	return SessionEvent{
		ID:        uuid.New(),
		EventType: eventType,
		SessionID: sessionID,
		Message:   message,
		Timestamp: time.Now(),
		Severity:  severity,
	}
}

// NewTranscriptEvent builds the event broadcast for a fresh transcript entry
func NewTranscriptEvent(entry *TranscriptEntry) SessionEvent {
	return SessionEvent{
		ID:        uuid.New(),
		EventType: EventTranscript,
		SessionID: entry.SessionID,
		Entry:     entry,
		Timestamp: time.Now(),
		Severity:  "INFO",
	}
}
