// internal/service/exchange_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/chiller"
	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/repository"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// ExchangeService runs commands against live sessions and records the
// transcript of everything sent and received
type ExchangeService struct {
	logger         *zap.Logger
	dispatcher     *chiller.Dispatcher
	sessions       *SessionService
	transcriptRepo repository.TranscriptRepository
	events         EventPublisher
}

// NewExchangeService creates a new exchange service
func NewExchangeService(
	sessions *SessionService,
	transcriptRepo repository.TranscriptRepository,
	events EventPublisher,
	logger *zap.Logger,
) *ExchangeService {
	return &ExchangeService{
		logger:         logger.With(zap.String("service", "exchange")),
		dispatcher:     chiller.NewDispatcher(logger),
		sessions:       sessions,
		transcriptRepo: transcriptRepo,
		events:         events,
	}
}

// Catalog returns the known command set
func (s *ExchangeService) Catalog() []model.CommandSpec {
	return chiller.Catalog
}

// Execute validates a command request, runs the round trip on the session's
// port, and appends both directions to the transcript. One exchange runs at
// a time per session; concurrent callers queue.
func (s *ExchangeService) Execute(ctx context.Context, sessionID uuid.UUID, req *model.CommandRequest) (*model.Exchange, error) {
	command, err := chiller.BuildCommand(req)
	if err != nil {
		return nil, err
	}

	active, release, err := s.sessions.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session := active.session
	sessionLog := utils.NewSessionLogger(s.logger, session.ID.String(), session.Params.Port)

	exchange, execErr := s.dispatcher.Exchange(ctx, active.port, session, command)
	if exchange == nil {
		// cancelled before anything hit the wire
		return nil, execErr
	}

	active.update(func(sess *model.Session) {
		sess.Exchanges++
		sess.BytesTx += int64(len(command) + len(sess.Params.Terminator.Bytes()))
		sess.BytesRx += int64(len(exchange.RawRx))
	})

	s.record(ctx, &model.TranscriptEntry{
		SessionID: sessionID,
		Direction: model.DirectionTx,
		Text:      command,
		Outcome:   model.OutcomeOK,
		CreatedAt: exchange.StartedAt,
	})
	s.record(ctx, &model.TranscriptEntry{
		SessionID: sessionID,
		Direction: model.DirectionRx,
		Text:      rxText(exchange),
		Outcome:   exchange.Outcome,
		CreatedAt: exchange.FinishedAt,
	})

	sessionLog.LogExchange(command, exchange.Response, exchange.Outcome, exchange.Duration)

	if execErr != nil {
		s.sessions.markError(ctx, active, execErr)
		return exchange, execErr
	}

	return exchange, nil
}

// record persists a transcript entry and broadcasts it to live subscribers.
// A store failure is logged but never fails the exchange itself.
func (s *ExchangeService) record(ctx context.Context, entry *model.TranscriptEntry) {
	if err := s.transcriptRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to persist transcript entry",
			zap.String("session_id", entry.SessionID.String()),
			zap.Error(err))
	}
	s.events.Publish(model.NewTranscriptEvent(entry))
}

// Transcript returns a page of a session's transcript
func (s *ExchangeService) Transcript(ctx context.Context, sessionID uuid.UUID, filter repository.TranscriptFilter) ([]*model.TranscriptEntry, int, error) {
	return s.transcriptRepo.ListBySession(ctx, sessionID, filter)
}

// rxText renders the received side of an exchange for the transcript
func rxText(exchange *model.Exchange) string {
	switch {
	case exchange.TimedOut():
		return "<no response>"
	case exchange.Outcome == model.OutcomeConnErr:
		return fmt.Sprintf("<connection error after %d bytes>", len(exchange.RawRx))
	default:
		return exchange.Response
	}
}
