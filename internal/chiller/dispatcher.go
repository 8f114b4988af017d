// internal/chiller/dispatcher.go
package chiller

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/protocol"
)

// responseDelim ends every response line coming back from the hardware.
// Commands are framed per the session's terminator setting; replies always
// arrive as "...\r\n".
const responseDelim = '\n'

// Dispatcher performs one command/response round trip per call: frame the
// command, honor the configured delays, write, then read until the response
// terminator or the timeout.
type Dispatcher struct {
	logger *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With(zap.String("component", "dispatcher")),
	}
}

// Exchange sends one command over the session's port and collects the
// response. Timeouts and undecodable responses are outcomes, not errors:
// the session stays usable and the operator decides whether to retry. Only
// a dead port returns an error.
func (d *Dispatcher) Exchange(ctx context.Context, port protocol.Port, session *model.Session, command string) (*model.Exchange, error) {
	exchange := &model.Exchange{
		SessionID: session.ID,
		Command:   command,
		StartedAt: time.Now(),
	}

	frame := append([]byte(command), session.Params.Terminator.Bytes()...)

	// Pre-send delay: the hardware needs a breather between commands
	if session.Params.CommandDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(session.Params.CommandDelay):
		}
	}

	d.logger.Debug("Sending command",
		zap.String("session_id", session.ID.String()),
		zap.String("command", command),
		zap.Int("frame_bytes", len(frame)),
	)

	if err := port.Write(ctx, frame); err != nil {
		exchange.Outcome = model.OutcomeConnErr
		exchange.FinishedAt = time.Now()
		exchange.Duration = exchange.FinishedAt.Sub(exchange.StartedAt)
		return exchange, fmt.Errorf("write failed: %w", err)
	}

	raw, err := port.ReadUntil(ctx, responseDelim)
	exchange.RawRx = raw
	exchange.FinishedAt = time.Now()
	exchange.Duration = exchange.FinishedAt.Sub(exchange.StartedAt)

	if err != nil {
		if errors.Is(err, protocol.ErrPortClosed) {
			exchange.Outcome = model.OutcomeConnErr
			return exchange, fmt.Errorf("read failed: %w", err)
		}
		// Context cancellation while waiting counts as a timeout from the
		// operator's point of view
		exchange.Outcome = model.OutcomeTimeout
		return exchange, nil
	}

	if len(raw) == 0 {
		exchange.Outcome = model.OutcomeTimeout
		d.logger.Warn("No response before timeout",
			zap.String("session_id", session.ID.String()),
			zap.String("command", command),
			zap.Duration("waited", session.Params.ReadTimeout),
		)
		return exchange, nil
	}

	text, ok := decodeASCII(raw)
	if !ok {
		exchange.Outcome = model.OutcomeDecodeErr
		exchange.Response = fmt.Sprintf("<undecodable: %s>", hex.EncodeToString(raw))
		d.logger.Warn("Response contained non-ASCII bytes",
			zap.String("session_id", session.ID.String()),
			zap.String("raw_hex", hex.EncodeToString(raw)),
		)
		return exchange, nil
	}

	exchange.Outcome = model.OutcomeOK
	exchange.Response = strings.TrimRight(text, "\r\n")

	d.logger.Debug("Received response",
		zap.String("session_id", session.ID.String()),
		zap.String("response", exchange.Response),
		zap.Duration("duration", exchange.Duration),
	)

	return exchange, nil
}

// decodeASCII validates that the payload is printable ASCII plus line
// endings. The chiller never sends anything else; other bytes indicate
// noise on the link or a wrong baud rate.
func decodeASCII(raw []byte) (string, bool) {
	for _, b := range raw {
		if b == '\r' || b == '\n' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7E {
			return "", false
		}
	}
	return string(raw), true
}
