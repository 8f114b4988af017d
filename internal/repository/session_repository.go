// internal/repository/session_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/model"
)

// sessionRepository implements SessionRepository using sqlite
type sessionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB, logger *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:     db,
		logger: logger.With(zap.String("repository", "session")),
	}
}

// Create inserts a session record
func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (id, port, baud_rate, status, last_error, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID.String(),
		session.Params.Port,
		session.Params.BaudRate,
		string(session.Status),
		session.LastError,
		session.OpenedAt,
		session.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}

	return nil
}

// UpdateStatus updates a session's status and error text
func (r *sessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus, lastError *string) error {
	query := `UPDATE sessions SET status = ?, last_error = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), lastError, id.String())
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", id)
	}

	return nil
}

// MarkClosed records when a session ended
func (r *sessionRepository) MarkClosed(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	query := `UPDATE sessions SET status = ?, closed_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, string(model.SessionStatusClosed), closedAt, id.String()); err != nil {
		return fmt.Errorf("failed to mark session closed: %w", err)
	}

	return nil
}

// GetByID retrieves a session record
func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `
		SELECT id, port, baud_rate, status, last_error, opened_at, closed_at
		FROM sessions WHERE id = ?`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// ListRecent lists the most recently opened sessions
func (r *sessionRepository) ListRecent(ctx context.Context, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, port, baud_rate, status, last_error, opened_at, closed_at
		FROM sessions ORDER BY opened_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *sessionRepository) scanSession(row rowScanner) (*model.Session, error) {
	var session model.Session
	var idText string
	var status string

	err := row.Scan(
		&idText,
		&session.Params.Port,
		&session.Params.BaudRate,
		&status,
		&session.LastError,
		&session.OpenedAt,
		&session.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idText)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", idText, err)
	}

	session.ID = id
	session.Status = model.SessionStatus(status)
	return &session, nil
}
