// internal/service/session_service_test.go
package service

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/protocol"
	"github.com/acascioli/serial-chiller/internal/repository"
	"github.com/acascioli/serial-chiller/internal/simulator"
)

// capturingBus records published events for assertions
type capturingBus struct {
	mu     sync.Mutex
	events []model.SessionEvent
}

func (b *capturingBus) Publish(event model.SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *capturingBus) byType(eventType model.EventType) []model.SessionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.SessionEvent
	for _, event := range b.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

type serviceFixture struct {
	config    *config.Config
	bus       *capturingBus
	sessions  *SessionService
	exchanges *ExchangeService

	mu        sync.Mutex
	endpoints map[string]io.ReadWriteCloser
}

func newServiceFixture(t *testing.T, readTimeout time.Duration) *serviceFixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Serial = config.SerialConfig{
		Port:        "/tmp/ttyV0",
		BaudRate:    4800,
		DataBits:    7,
		StopBits:    "2",
		Parity:      "none",
		ReadTimeout: readTimeout,
		Terminator:  "cr",
	}
	cfg.Store = config.StoreConfig{
		Path:            filepath.Join(t.TempDir(), "transcript.db"),
		RetentionDays:   30,
		CleanupInterval: time.Hour,
	}

	db, err := database.NewConnection(&cfg.Store, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Up())

	bus := &capturingBus{}
	sessionRepo := repository.NewSessionRepository(db, zap.NewNop())
	transcriptRepo := repository.NewTranscriptRepository(db, zap.NewNop())

	fixture := &serviceFixture{
		config:    cfg,
		bus:       bus,
		endpoints: make(map[string]io.ReadWriteCloser),
	}

	fixture.sessions = NewSessionService(cfg, sessionRepo, bus, zap.NewNop())
	fixture.sessions.SetPortFactory(func(params model.SerialParams) protocol.Port {
		port, endpoint := protocol.NewLoopbackPair(params)
		fixture.mu.Lock()
		fixture.endpoints[params.Port] = endpoint
		fixture.mu.Unlock()
		return port
	})
	fixture.exchanges = NewExchangeService(fixture.sessions, transcriptRepo, bus, zap.NewNop())

	return fixture
}

// startSimulator runs a responder on the device side of an open session
func (f *serviceFixture) startSimulator(t *testing.T, port string) {
	t.Helper()

	f.mu.Lock()
	endpoint, ok := f.endpoints[port]
	f.mu.Unlock()
	require.True(t, ok, "no endpoint for port %s", port)

	responder := simulator.NewResponder(simulator.NewCommandTable(nil, ""), 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go responder.Run(ctx, endpoint)
}

func TestSessionService_OpenAndClose(t *testing.T) {
	fixture := newServiceFixture(t, time.Second)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusOpen, session.Status)
	assert.Equal(t, "loop0", session.Params.Port)
	assert.Equal(t, 4800, session.Params.BaudRate, "defaults fill unrequested parameters")

	assert.Len(t, fixture.sessions.ListActive(), 1)
	assert.Len(t, fixture.bus.byType(model.EventSessionOpened), 1)

	// Same port cannot be opened twice
	_, err = fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")

	require.NoError(t, fixture.sessions.Close(ctx, session.ID))
	assert.Empty(t, fixture.sessions.ListActive())
	assert.Len(t, fixture.bus.byType(model.EventSessionClosed), 1)

	// The record survives in the store
	stored, err := fixture.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, stored.Status)

	// The freed port can be opened again
	_, err = fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
}

func TestSessionService_ParameterOverrides(t *testing.T) {
	fixture := newServiceFixture(t, time.Second)

	session, err := fixture.sessions.Open(context.Background(), &model.OpenSessionRequest{
		Port:           "loop1",
		BaudRate:       9600,
		DataBits:       8,
		StopBits:       model.StopBitsOne,
		Terminator:     model.TerminatorCRLF,
		CommandDelayMs: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 9600, session.Params.BaudRate)
	assert.Equal(t, 8, session.Params.DataBits)
	assert.Equal(t, model.StopBitsOne, session.Params.StopBits)
	assert.Equal(t, model.TerminatorCRLF, session.Params.Terminator)
	assert.Equal(t, 10*time.Millisecond, session.Params.CommandDelay)
	assert.Equal(t, model.ParityNone, session.Params.Parity, "unset fields keep defaults")
}

func TestExchangeService_RecordsTranscript(t *testing.T) {
	fixture := newServiceFixture(t, 2*time.Second)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
	fixture.startSimulator(t, "loop0")

	exchange, err := fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "in_sp_00"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, exchange.Outcome)
	assert.Equal(t, "2.00", exchange.Response)

	entries, total, err := fixture.exchanges.Transcript(ctx, session.ID, repository.DefaultTranscriptFilter())
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, model.DirectionTx, entries[0].Direction)
	assert.Equal(t, "in_sp_00", entries[0].Text)
	assert.Equal(t, model.DirectionRx, entries[1].Direction)
	assert.Equal(t, "2.00", entries[1].Text)

	assert.Len(t, fixture.bus.byType(model.EventTranscript), 2)

	current, err := fixture.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.Exchanges)
	assert.Equal(t, int64(9), current.BytesTx, "command plus CR terminator")
	assert.Equal(t, int64(6), current.BytesRx, "response plus CRLF")
}

func TestExchangeService_TimeoutKeepsSessionUsable(t *testing.T) {
	fixture := newServiceFixture(t, 100*time.Millisecond)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
	// No simulator on the other end: every read times out

	exchange, err := fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "status"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeTimeout, exchange.Outcome)

	current, err := fixture.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusOpen, current.Status, "a timeout must not kill the session")

	entries, total, err := fixture.exchanges.Transcript(ctx, session.ID, repository.DefaultTranscriptFilter())
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, model.OutcomeTimeout, entries[1].Outcome)
	assert.Equal(t, "<no response>", entries[1].Text)

	// The session accepts further commands
	_, err = fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "VERSION"})
	require.NoError(t, err)
}

func TestExchangeService_ValidationRejectsBeforeWire(t *testing.T) {
	fixture := newServiceFixture(t, time.Second)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)

	_, err = fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "out_sp_00", Param: "warm"})
	require.Error(t, err)

	_, total, err := fixture.exchanges.Transcript(ctx, session.ID, repository.DefaultTranscriptFilter())
	require.NoError(t, err)
	assert.Zero(t, total, "rejected commands never reach the transcript")
}

func TestSessionService_ListAndGetSafeDuringExchanges(t *testing.T) {
	fixture := newServiceFixture(t, 2*time.Second)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
	fixture.startSimulator(t, "loop0")

	const rounds = 25

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			if _, err := fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "status"}); err != nil {
				t.Errorf("exchange %d failed: %v", i, err)
				return
			}
		}
	}()

	// Readers marshal session records while the exchanges mutate the
	// counters; the copies handed out must never share memory with the
	// live record
	for {
		select {
		case <-done:
		default:
			active := fixture.sessions.ListActive()
			if assert.Len(t, active, 1) {
				_, err := json.Marshal(active[0])
				require.NoError(t, err)
			}

			current, err := fixture.sessions.Get(ctx, session.ID)
			require.NoError(t, err)
			_, err = json.Marshal(current)
			require.NoError(t, err)
			continue
		}
		break
	}

	current, err := fixture.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(rounds), current.Exchanges)
}

func TestExchangeService_ClosedSessionRejected(t *testing.T) {
	fixture := newServiceFixture(t, time.Second)
	ctx := context.Background()

	session, err := fixture.sessions.Open(ctx, &model.OpenSessionRequest{Port: "loop0"})
	require.NoError(t, err)
	require.NoError(t, fixture.sessions.Close(ctx, session.ID))

	_, err = fixture.exchanges.Execute(ctx, session.ID, &model.CommandRequest{Name: "status"})
	assert.Error(t, err)
}
