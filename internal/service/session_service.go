// internal/service/session_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/protocol"
	"github.com/acascioli/serial-chiller/internal/repository"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// EventPublisher broadcasts session events to live subscribers
type EventPublisher interface {
	Publish(event model.SessionEvent)
}

// PortFactory builds a transport for a session. Swapped out in tests.
type PortFactory func(params model.SerialParams) protocol.Port

// activeSession pairs an open port with its session record. The exchange
// mutex serializes commands so only one is in flight per session; the state
// mutex guards the record itself, which list and get calls read while an
// exchange is updating it.
type activeSession struct {
	mu      sync.Mutex
	stateMu sync.RWMutex
	session *model.Session
	port    protocol.Port
}

// snapshot copies the session record so callers can read and marshal it
// without holding any lock
func (a *activeSession) snapshot() *model.Session {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()

	clone := *a.session
	if a.session.LastError != nil {
		msg := *a.session.LastError
		clone.LastError = &msg
	}
	if a.session.ClosedAt != nil {
		at := *a.session.ClosedAt
		clone.ClosedAt = &at
	}
	return &clone
}

// update applies fn to the session record under the state lock
func (a *activeSession) update(fn func(*model.Session)) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	fn(a.session)
}

// SessionService manages the lifecycle of serial sessions
type SessionService struct {
	config      *config.Config
	logger      *zap.Logger
	sessionRepo repository.SessionRepository
	events      EventPublisher
	portFactory PortFactory

	mu       sync.RWMutex
	sessions map[uuid.UUID]*activeSession
}

// NewSessionService creates a new session service
func NewSessionService(
	cfg *config.Config,
	sessionRepo repository.SessionRepository,
	events EventPublisher,
	logger *zap.Logger,
) *SessionService {
	svc := &SessionService{
		config:      cfg,
		logger:      logger.With(zap.String("service", "session")),
		sessionRepo: sessionRepo,
		events:      events,
		sessions:    make(map[uuid.UUID]*activeSession),
	}
	svc.portFactory = func(params model.SerialParams) protocol.Port {
		return protocol.NewSerialPort(params, logger)
	}
	return svc
}

// SetPortFactory overrides how session transports are built
func (s *SessionService) SetPortFactory(factory PortFactory) {
	s.portFactory = factory
}

// Open opens a serial port and registers a new session for it.
// Opening the same port twice is rejected while the first session is live.
func (s *SessionService) Open(ctx context.Context, req *model.OpenSessionRequest) (*model.Session, error) {
	params := s.buildParams(req)

	s.mu.Lock()
	for _, active := range s.sessions {
		if snap := active.snapshot(); snap.IsOpen() && snap.Params.Port == params.Port {
			s.mu.Unlock()
			return nil, fmt.Errorf("port %s is already in use by session %s", params.Port, snap.ID)
		}
	}

	session := &model.Session{
		ID:       uuid.New(),
		Params:   params,
		Status:   model.SessionStatusOpening,
		OpenedAt: time.Now(),
	}
	active := &activeSession{session: session, port: s.portFactory(params)}
	s.sessions[session.ID] = active
	s.mu.Unlock()

	sessionLog := utils.NewSessionLogger(s.logger, session.ID.String(), params.Port)

	if err := active.port.Open(ctx); err != nil {
		sessionLog.LogConnection("open", false, err)
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to open port %s: %w", params.Port, err)
	}
	sessionLog.LogConnection("open", true, nil)

	active.update(func(sess *model.Session) {
		sess.Status = model.SessionStatusOpen
	})
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		active.port.Close()
		s.mu.Lock()
		delete(s.sessions, session.ID)
		s.mu.Unlock()
		return nil, err
	}

	s.logger.Info("Session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("port", params.Port),
		zap.Int("baud_rate", params.BaudRate))

	s.events.Publish(model.NewLifecycleEvent(model.EventSessionOpened, session.ID,
		fmt.Sprintf("Session opened on %s", params.Port), "INFO"))

	return active.snapshot(), nil
}

// Close closes a session's port and marks the session closed
func (s *SessionService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	active, exists := s.sessions[id]
	if exists {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("session %s not found", id)
	}

	// wait for any in-flight exchange before tearing the port down
	active.mu.Lock()
	defer active.mu.Unlock()

	sessionLog := utils.NewSessionLogger(s.logger, id.String(), active.session.Params.Port)
	if err := active.port.Close(); err != nil {
		sessionLog.LogConnection("close", false, err)
	} else {
		sessionLog.LogConnection("close", true, nil)
	}

	now := time.Now()
	active.update(func(sess *model.Session) {
		sess.Status = model.SessionStatusClosed
		sess.ClosedAt = &now
	})

	if err := s.sessionRepo.MarkClosed(ctx, id, now); err != nil {
		return err
	}

	s.logger.Info("Session closed", zap.String("session_id", id.String()))
	s.events.Publish(model.NewLifecycleEvent(model.EventSessionClosed, id, "Session closed", "INFO"))

	return nil
}

// CloseAll closes every live session, used during shutdown
func (s *SessionService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Close(ctx, id); err != nil {
			s.logger.Warn("Error closing session during shutdown",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
	}
}

// Get returns a live session by ID, falling back to the store for closed ones
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s.mu.RLock()
	active, exists := s.sessions[id]
	s.mu.RUnlock()

	if exists {
		return active.snapshot(), nil
	}
	return s.sessionRepo.GetByID(ctx, id)
}

// ListActive returns copies of all live sessions, most recent first
func (s *SessionService) ListActive() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(s.sessions))
	for _, active := range s.sessions {
		sessions = append(sessions, active.snapshot())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].OpenedAt.After(sessions[j].OpenedAt)
	})
	return sessions
}

// ListRecent returns recent sessions from the store, live or not
func (s *SessionService) ListRecent(ctx context.Context, limit int) ([]*model.Session, error) {
	return s.sessionRepo.ListRecent(ctx, limit)
}

// acquire locks a live session for an exchange. The caller must call the
// returned release function when the exchange finishes.
func (s *SessionService) acquire(id uuid.UUID) (*activeSession, func(), error) {
	s.mu.RLock()
	active, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, nil, fmt.Errorf("session %s not found", id)
	}

	active.mu.Lock()
	if !active.snapshot().IsOpen() {
		active.mu.Unlock()
		return nil, nil, fmt.Errorf("session %s is not open", id)
	}
	return active, active.mu.Unlock, nil
}

// markError flags a session after a connection failure
func (s *SessionService) markError(ctx context.Context, active *activeSession, cause error) {
	msg := cause.Error()
	active.update(func(sess *model.Session) {
		sess.Status = model.SessionStatusError
		sess.LastError = &msg
	})

	if err := s.sessionRepo.UpdateStatus(ctx, active.session.ID, model.SessionStatusError, &msg); err != nil {
		s.logger.Warn("Failed to persist session error",
			zap.String("session_id", active.session.ID.String()),
			zap.Error(err))
	}

	s.events.Publish(model.NewLifecycleEvent(model.EventSessionError, active.session.ID, msg, "ERROR"))
}

// buildParams merges the request with the configured serial defaults
func (s *SessionService) buildParams(req *model.OpenSessionRequest) model.SerialParams {
	serial := s.config.Serial

	params := model.SerialParams{
		Port:         req.Port,
		BaudRate:     serial.BaudRate,
		DataBits:     serial.DataBits,
		Parity:       model.Parity(serial.Parity),
		StopBits:     model.StopBits(serial.StopBits),
		ReadTimeout:  serial.ReadTimeout,
		ByteDelay:    serial.ByteDelay,
		CommandDelay: serial.CommandDelay,
		Terminator:   model.Terminator(serial.Terminator),
	}
	if params.Port == "" {
		params.Port = serial.Port
	}

	if req.BaudRate > 0 {
		params.BaudRate = req.BaudRate
	}
	if req.DataBits > 0 {
		params.DataBits = req.DataBits
	}
	if req.Parity != "" {
		params.Parity = req.Parity
	}
	if req.StopBits != "" {
		params.StopBits = req.StopBits
	}
	if req.ReadTimeoutMs > 0 {
		params.ReadTimeout = time.Duration(req.ReadTimeoutMs) * time.Millisecond
	}
	if req.ByteDelayMs > 0 {
		params.ByteDelay = time.Duration(req.ByteDelayMs) * time.Millisecond
	}
	if req.CommandDelayMs > 0 {
		params.CommandDelay = time.Duration(req.CommandDelayMs) * time.Millisecond
	}
	if req.Terminator != "" {
		params.Terminator = req.Terminator
	}

	return params
}
