// internal/repository/transcript_repository_test.go
package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/model"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	cfg := &config.StoreConfig{
		Path:            filepath.Join(t.TempDir(), "transcript.db"),
		RetentionDays:   30,
		CleanupInterval: time.Hour,
	}

	db, err := database.NewConnection(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Up())
	return db
}

func testSessionRecord(t *testing.T, db *database.DB) *model.Session {
	t.Helper()

	session := &model.Session{
		ID: uuid.New(),
		Params: model.SerialParams{
			Port:     "/tmp/ttyV0",
			BaudRate: 4800,
		},
		Status:   model.SessionStatusOpen,
		OpenedAt: time.Now(),
	}

	repo := NewSessionRepository(db, zap.NewNop())
	require.NoError(t, repo.Create(context.Background(), session))
	return session
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db, zap.NewNop())
	ctx := context.Background()

	session := testSessionRecord(t, db)

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "/tmp/ttyV0", got.Params.Port)
	assert.Equal(t, model.SessionStatusOpen, got.Status)
	assert.Nil(t, got.ClosedAt)

	errMsg := "port vanished"
	require.NoError(t, repo.UpdateStatus(ctx, session.ID, model.SessionStatusError, &errMsg))
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusError, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "port vanished", *got.LastError)

	require.NoError(t, repo.MarkClosed(ctx, session.ID, time.Now()))
	got, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
}

func TestSessionRepository_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db, zap.NewNop())

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.Error(t, err)

	err = repo.UpdateStatus(context.Background(), uuid.New(), model.SessionStatusError, nil)
	assert.Error(t, err)
}

func TestSessionRepository_ListRecent(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		testSessionRecord(t, db)
	}

	sessions, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 3, "non-positive limit falls back to the default")
}

func TestTranscriptRepository_CreateAndList(t *testing.T) {
	db := testDB(t)
	repo := NewTranscriptRepository(db, zap.NewNop())
	ctx := context.Background()

	session := testSessionRecord(t, db)

	entries := []*model.TranscriptEntry{
		{SessionID: session.ID, Direction: model.DirectionTx, Text: "in_sp_00", Outcome: model.OutcomeOK, CreatedAt: time.Now()},
		{SessionID: session.ID, Direction: model.DirectionRx, Text: "2.00", Outcome: model.OutcomeOK, CreatedAt: time.Now()},
		{SessionID: session.ID, Direction: model.DirectionTx, Text: "in_pv_00", Outcome: model.OutcomeOK, CreatedAt: time.Now()},
		{SessionID: session.ID, Direction: model.DirectionRx, Text: "<no response>", Outcome: model.OutcomeTimeout, CreatedAt: time.Now()},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Create(ctx, entry))
		assert.NotZero(t, entry.ID, "insert must backfill the row id")
	}

	got, total, err := repo.ListBySession(ctx, session.ID, DefaultTranscriptFilter())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, got, 4)
	assert.Equal(t, "in_sp_00", got[0].Text, "entries come back oldest first")
	assert.Equal(t, model.DirectionRx, got[3].Direction)
	assert.Equal(t, model.OutcomeTimeout, got[3].Outcome)
}

func TestTranscriptRepository_Filters(t *testing.T) {
	db := testDB(t)
	repo := NewTranscriptRepository(db, zap.NewNop())
	ctx := context.Background()

	session := testSessionRecord(t, db)
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &model.TranscriptEntry{
			SessionID: session.ID, Direction: model.DirectionTx, Text: "status", Outcome: model.OutcomeOK, CreatedAt: time.Now(),
		}))
		require.NoError(t, repo.Create(ctx, &model.TranscriptEntry{
			SessionID: session.ID, Direction: model.DirectionRx, Text: "", Outcome: model.OutcomeTimeout, CreatedAt: time.Now(),
		}))
	}

	filter := DefaultTranscriptFilter()
	filter.Direction = model.DirectionRx
	got, total, err := repo.ListBySession(ctx, session.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, entry := range got {
		assert.Equal(t, model.DirectionRx, entry.Direction)
	}

	filter = DefaultTranscriptFilter()
	filter.Outcome = model.OutcomeTimeout
	_, total, err = repo.ListBySession(ctx, session.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Pagination
	filter = DefaultTranscriptFilter()
	filter.PerPage = 3
	got, total, err = repo.ListBySession(ctx, session.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, got, 3)

	filter.Page = 2
	got, _, err = repo.ListBySession(ctx, session.ID, filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTranscriptRepository_DeleteOlderThan(t *testing.T) {
	db := testDB(t)
	repo := NewTranscriptRepository(db, zap.NewNop())
	ctx := context.Background()

	session := testSessionRecord(t, db)

	old := time.Now().AddDate(0, 0, -40)
	require.NoError(t, repo.Create(ctx, &model.TranscriptEntry{
		SessionID: session.ID, Direction: model.DirectionTx, Text: "VERSION", Outcome: model.OutcomeOK, CreatedAt: old,
	}))
	require.NoError(t, repo.Create(ctx, &model.TranscriptEntry{
		SessionID: session.ID, Direction: model.DirectionTx, Text: "status", Outcome: model.OutcomeOK, CreatedAt: time.Now(),
	}))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.ListBySession(ctx, session.ID, DefaultTranscriptFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
