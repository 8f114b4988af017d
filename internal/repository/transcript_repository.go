// internal/repository/transcript_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/model"
)

// transcriptRepository implements TranscriptRepository using sqlite
type transcriptRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewTranscriptRepository creates a new transcript repository
func NewTranscriptRepository(db *database.DB, logger *zap.Logger) TranscriptRepository {
	return &transcriptRepository{
		db:     db,
		logger: logger.With(zap.String("repository", "transcript")),
	}
}

// Create appends a transcript entry
func (r *transcriptRepository) Create(ctx context.Context, entry *model.TranscriptEntry) error {
	query := `
		INSERT INTO transcript_entries (session_id, direction, text, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		entry.SessionID.String(),
		string(entry.Direction),
		entry.Text,
		string(entry.Outcome),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transcript entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transcript entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListBySession returns a page of transcript entries for a session, oldest first
func (r *transcriptRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, filter TranscriptFilter) ([]*model.TranscriptEntry, int, error) {
	where := `WHERE session_id = ?`
	args := []interface{}{sessionID.String()}

	if filter.Direction != "" {
		where += ` AND direction = ?`
		args = append(args, string(filter.Direction))
	}
	if filter.Outcome != "" {
		where += ` AND outcome = ?`
		args = append(args, string(filter.Outcome))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM transcript_entries ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transcript entries: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 100
	}
	offset := (filter.Page - 1) * filter.PerPage

	query := `
		SELECT id, session_id, direction, text, outcome, created_at
		FROM transcript_entries ` + where + `
		ORDER BY id ASC LIMIT ? OFFSET ?`
	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transcript entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.TranscriptEntry
	for rows.Next() {
		var entry model.TranscriptEntry
		var sessionText string
		var direction string
		var outcome string

		err := rows.Scan(&entry.ID, &sessionText, &direction, &entry.Text, &outcome, &entry.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transcript entry: %w", err)
		}

		id, err := uuid.Parse(sessionText)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid session id %q: %w", sessionText, err)
		}

		entry.SessionID = id
		entry.Direction = model.Direction(direction)
		entry.Outcome = model.Outcome(outcome)
		entries = append(entries, &entry)
	}

	return entries, total, rows.Err()
}

// DeleteOlderThan removes transcript entries created before the cutoff
func (r *transcriptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transcript_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old transcript entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("Pruned old transcript entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}

	return deleted, nil
}
