package interrupt

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// newTestDB spins up a disposable Postgres container and applies just the
// interrupt_records table, mirroring test/database.NewTestClient's
// testcontainers setup but without depending on the full ent schema.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `
		CREATE TABLE interrupt_records (
			task_id    TEXT PRIMARY KEY,
			reason     TEXT NOT NULL,
			message    TEXT,
			halted_at  TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func TestStore_HaltAndGetState(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.Halt(ctx, "task-1", types.InterruptUser, "stop requested"))

	state, err := s.GetState(ctx, "task-1")
	require.NoError(t, err)
	require.True(t, state.IsHalted)
	require.NotNil(t, state.Record)
	assert.Equal(t, types.InterruptUser, state.Record.Reason)
	assert.Equal(t, "stop requested", state.Record.Message)
}

func TestStore_Resume(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.Halt(ctx, "task-2", types.InterruptBudget, ""))
	require.NoError(t, s.Resume(ctx, "task-2"))

	halted, err := s.IsHalted(ctx, "task-2")
	require.NoError(t, err)
	assert.False(t, halted)
}

func TestStore_HaltReplacesExistingRecord(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.Halt(ctx, "task-3", types.InterruptUser, "first"))
	require.NoError(t, s.Halt(ctx, "task-3", types.InterruptPolicy, "second"))

	state, err := s.GetState(ctx, "task-3")
	require.NoError(t, err)
	require.True(t, state.IsHalted)
	assert.Equal(t, types.InterruptPolicy, state.Record.Reason)
	assert.Equal(t, "second", state.Record.Message)
}

func TestStore_ExpiredRecordSelfHealsOnRead(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	_, err := db.ExecContext(ctx, `
		INSERT INTO interrupt_records (task_id, reason, message, halted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, "task-4", string(types.InterruptConfidence), "", past.Add(-time.Hour), past)
	require.NoError(t, err)

	state, err := s.GetState(ctx, "task-4")
	require.NoError(t, err)
	assert.False(t, state.IsHalted)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM interrupt_records WHERE task_id = $1`, "task-4").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestStore_GuardOrThrow(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.GuardOrThrow(ctx, "task-5"))

	require.NoError(t, s.Halt(ctx, "task-5", types.InterruptCircuitBreaker, "hard trip"))
	err := s.GuardOrThrow(ctx, "task-5")
	require.Error(t, err)

	var interrupted *apperrors.InterruptedError
	require.ErrorAs(t, err, &interrupted)
	assert.Equal(t, "task-5", interrupted.TaskID)
}

func TestStore_ListHalted(t *testing.T) {
	db := newTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.Halt(ctx, "task-6", types.InterruptUser, ""))
	require.NoError(t, s.Halt(ctx, "task-7", types.InterruptUser, ""))

	ids, err := s.ListHalted(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"task-6", "task-7"}, ids)
}
