// internal/model/transcript.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Direction indicates which side of the serial link produced a transcript entry
type Direction string

const (
	DirectionTx Direction = "TX"
	DirectionRx Direction = "RX"
)

// Outcome classifies how an exchange ended. The taxonomy mirrors what the
// operator sees in the log pane: a mapped response, silence, garbage bytes,
// or a dead port.
type Outcome string

const (
	OutcomeOK         Outcome = "OK"
	OutcomeTimeout    Outcome = "TIMEOUT"
	OutcomeDecodeErr  Outcome = "DECODE_ERROR"
	OutcomeConnErr    Outcome = "CONNECTION_ERROR"
)

// TranscriptEntry is one line of the operator-visible transcript. Entries
// are the only state that outlives a session.
type TranscriptEntry struct {
	ID        int64     `json:"id" db:"id"`
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	Direction Direction `json:"direction" db:"direction"`
	Text      string    `json:"text" db:"text"`
	Outcome   Outcome   `json:"outcome" db:"outcome"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Exchange is the result of one command/response round trip
type Exchange struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Command    string        `json:"command"`
	Response   string        `json:"response"`
	Outcome    Outcome       `json:"outcome"`
	RawRx      []byte        `json:"-"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// TimedOut checks whether the exchange ended without any response bytes
func (e *Exchange) TimedOut() bool {
	return e.Outcome == OutcomeTimeout
}
