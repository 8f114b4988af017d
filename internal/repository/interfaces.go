// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/acascioli/serial-chiller/internal/model"
)

// SessionRepository defines session record data access operations. The live
// port handle never touches the store; only the operator-visible record of
// a session does.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus, lastError *string) error
	MarkClosed(ctx context.Context, id uuid.UUID, closedAt time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Session, error)
}

// TranscriptRepository defines transcript data access operations
type TranscriptRepository interface {
	Create(ctx context.Context, entry *model.TranscriptEntry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, filter TranscriptFilter) ([]*model.TranscriptEntry, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TranscriptFilter represents transcript listing filters. Empty direction
// and outcome mean no filtering.
type TranscriptFilter struct {
	Direction model.Direction `json:"direction,omitempty"`
	Outcome   model.Outcome   `json:"outcome,omitempty"`
	Page      int             `json:"page"`
	PerPage   int             `json:"per_page"`
}

// DefaultTranscriptFilter returns the filter applied when the operator
// specifies nothing
func DefaultTranscriptFilter() TranscriptFilter {
	return TranscriptFilter{
		Page:    1,
		PerPage: 100,
	}
}
