// internal/simulator/responder.go
package simulator

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
)

// commandDelim terminates incoming command frames. The hardware convention
// is CR-terminated commands; a trailing LF (CRLF clients) is tolerated and
// stripped with the rest of the framing.
const commandDelim = '\r'

// idlePoll is how long the loop rests when a read returns no data
const idlePoll = 50 * time.Millisecond

// Responder emulates the chiller on one end of a virtual serial pair. It
// alternates between two states: idle (reading a command) and responding
// (writing back the resolved reply), until the context is cancelled or the
// port goes away.
type Responder struct {
	table      *CommandTable
	replyDelay time.Duration
	logger     *zap.Logger
}

// NewResponder creates a responder over the given command table
func NewResponder(table *CommandTable, replyDelay time.Duration, logger *zap.Logger) *Responder {
	return &Responder{
		table:      table,
		replyDelay: replyDelay,
		logger:     logger.With(zap.String("component", "responder")),
	}
}

// Run serves commands on the transport until ctx is cancelled or the
// transport closes. Malformed input never stops the loop: the responder
// logs, drops the frame, and goes back to reading.
func (r *Responder) Run(ctx context.Context, transport io.ReadWriteCloser) error {
	r.logger.Info("Simulated chiller is running, waiting for commands",
		zap.Int("mapped_commands", r.table.Len()),
	)

	for {
		line, err := r.readCommand(ctx, transport)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Info("Responder stopping", zap.String("reason", "context cancelled"))
				return nil
			}
			if errors.Is(err, io.EOF) {
				r.logger.Info("Responder stopping", zap.String("reason", "port closed"))
				return nil
			}
			// a shutdown closes the port under a pending read; the driver
			// reports that as its own error rather than EOF
			if ctx.Err() != nil {
				r.logger.Info("Responder stopping", zap.String("reason", "context cancelled"))
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		if line == "" {
			continue
		}

		r.logger.Info("Received command", zap.String("command", line))

		response := r.table.Resolve(line)

		// The real unit needs a moment before it answers
		if r.replyDelay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.replyDelay):
			}
		}

		if _, err := transport.Write([]byte(response + "\r\n")); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write response: %w", err)
		}

		r.logger.Info("Sent response", zap.String("response", response))
	}
}

// readCommand collects bytes until the command delimiter. Reads that return
// no data (driver-level timeouts) just idle the loop so ctx cancellation
// stays responsive. Undecodable frames yield an empty line after logging.
func (r *Responder) readCommand(ctx context.Context, transport io.Reader) (string, error) {
	collected := make([]byte, 0, 32)
	buf := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := transport.Read(buf)
		if err != nil {
			return "", err
		}

		if n == 0 {
			if len(collected) == 0 {
				time.Sleep(idlePoll)
			}
			continue
		}

		if buf[0] == commandDelim {
			return r.decodeLine(collected), nil
		}
		collected = append(collected, buf[0])
	}
}

// decodeLine trims framing characters and rejects non-ASCII garbage
func (r *Responder) decodeLine(raw []byte) string {
	for _, b := range raw {
		if b == '\n' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7E {
			r.logger.Warn("Dropping undecodable command frame",
				zap.String("raw_hex", hex.EncodeToString(raw)),
			)
			return ""
		}
	}
	return strings.TrimSpace(string(raw))
}

// OpenPort opens the simulator's end of the virtual pair with the
// configured line parameters
func OpenPort(cfg *config.SimulatorConfig) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	switch cfg.StopBits {
	case "1.5":
		mode.StopBits = serial.OnePointFiveStopBits
	case "2":
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open simulator port %s: %w", cfg.Port, err)
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}
