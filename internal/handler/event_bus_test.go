// internal/handler/event_bus_test.go
package handler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
)

func receiveEvent(t *testing.T, ch <-chan model.SessionEvent) model.SessionEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return model.SessionEvent{}
	}
}

func TestEventBus_PublishToTypedSubscriber(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()

	sub := bus.Subscribe(model.EventTranscript)
	other := bus.Subscribe(model.EventSessionClosed)

	sessionID := uuid.New()
	entry := &model.TranscriptEntry{SessionID: sessionID, Direction: model.DirectionTx, Text: "status", Outcome: model.OutcomeOK}
	bus.Publish(model.NewTranscriptEvent(entry))

	event := receiveEvent(t, sub)
	assert.Equal(t, model.EventTranscript, event.EventType)
	assert.Equal(t, sessionID, event.SessionID)
	require.NotNil(t, event.Entry)
	assert.Equal(t, "status", event.Entry.Text)

	select {
	case <-other:
		t.Fatal("subscriber of another type must not receive the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	go bus.Start()

	all := bus.SubscribeAll()

	sessionID := uuid.New()
	bus.Publish(model.NewLifecycleEvent(model.EventSessionOpened, sessionID, "Session opened on /tmp/ttyV0", "INFO"))
	bus.Publish(model.NewLifecycleEvent(model.EventSessionClosed, sessionID, "Session closed", "INFO"))

	first := receiveEvent(t, all)
	second := receiveEvent(t, all)
	assert.Equal(t, model.EventSessionOpened, first.EventType)
	assert.Equal(t, model.EventSessionClosed, second.EventType)
}

func TestEventBus_PublishNeverBlocks(t *testing.T) {
	bus := NewEventBus(zap.NewNop())
	// No Start: the internal channel fills up and further publishes drop

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1100; i++ {
			bus.Publish(model.NewLifecycleEvent(model.EventSessionError, uuid.New(), "overflow", "ERROR"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full bus")
	}
}
