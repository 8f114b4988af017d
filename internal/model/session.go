// internal/model/session.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the current status of a serial session
type SessionStatus string

const (
	SessionStatusOpen    SessionStatus = "OPEN"
	SessionStatusClosed  SessionStatus = "CLOSED"
	SessionStatusError   SessionStatus = "ERROR"
	SessionStatusOpening SessionStatus = "OPENING"
)

// Parity represents the serial parity setting
type Parity string

const (
	ParityNone Parity = "none"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// StopBits represents the serial stop bit setting
type StopBits string

const (
	StopBitsOne          StopBits = "1"
	StopBitsOnePointFive StopBits = "1.5"
	StopBitsTwo          StopBits = "2"
)

// Terminator represents the command framing convention. The real hardware
// expects CR-terminated commands; some firmware revisions want CRLF, so the
// convention is a session parameter rather than a constant.
type Terminator string

const (
	TerminatorCR   Terminator = "cr"
	TerminatorLF   Terminator = "lf"
	TerminatorCRLF Terminator = "crlf"
)

// Bytes returns the terminator as raw bytes appended to outgoing commands.
func (t Terminator) Bytes() []byte {
	switch t {
	case TerminatorLF:
		return []byte{'\n'}
	case TerminatorCRLF:
		return []byte{'\r', '\n'}
	default:
		return []byte{'\r'}
	}
}

// SerialParams holds the parameters applied when opening a serial port
type SerialParams struct {
	Port         string        `json:"port"`
	BaudRate     int           `json:"baud_rate"`
	DataBits     int           `json:"data_bits"`
	Parity       Parity        `json:"parity"`
	StopBits     StopBits      `json:"stop_bits"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	ByteDelay    time.Duration `json:"byte_delay"`
	CommandDelay time.Duration `json:"command_delay"`
	Terminator   Terminator    `json:"terminator"`
}

// Session represents one open serial connection with its configured
// parameters and transcript. Sessions replace the original's module-level
// serial handle: every exchange goes through an explicitly owned session.
type Session struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Params     SerialParams  `json:"params" db:"-"`
	Status     SessionStatus `json:"status" db:"status"`
	LastError  *string       `json:"last_error,omitempty" db:"last_error"`
	OpenedAt   time.Time     `json:"opened_at" db:"opened_at"`
	ClosedAt   *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
	Exchanges  int64         `json:"exchanges"`
	BytesTx    int64         `json:"bytes_tx"`
	BytesRx    int64         `json:"bytes_rx"`
}

// IsOpen checks if the session is currently usable
func (s *Session) IsOpen() bool {
	return s.Status == SessionStatusOpen
}
