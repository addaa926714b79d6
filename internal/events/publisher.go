package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// Every event kind except stream is durably persisted before the NOTIFY
// fires; stream chunks are high-frequency and transient, matching
// pkg/events' distinction between timeline events and stream.chunk.
func isPersistent(kind types.EventKind) bool {
	switch kind {
	case types.EventStream:
		return false
	default:
		return true
	}
}

// Publisher persists and broadcasts Events for the Orchestrator's per-task
// stream. The db handle is the same *sql.DB the ent client is built over
// (pkg/database.Client.DB()).
type Publisher struct {
	db *sql.DB
}

// NewPublisher constructs a Publisher over db.
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{db: db}
}

// Publish routes ev to persistAndNotify or notifyOnly depending on its kind.
func (p *Publisher) Publish(ctx context.Context, ev types.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := TaskChannel(ev.TaskID)

	if isPersistent(ev.Kind) {
		return p.persistAndNotify(ctx, ev.TaskID, channel, payload)
	}
	return p.notifyOnly(ctx, channel, payload)
}

// persistAndNotify appends the event row then issues pg_notify within the
// same transaction, so the NOTIFY only becomes visible to listeners once the
// INSERT commits — pg_notify is itself transactional (held until COMMIT),
// exactly as pkg/events.persistAndNotify relies on.
func (p *Publisher) persistAndNotify(ctx context.Context, taskID, channel string, payload []byte) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO task_events (task_id, channel, payload, created_at) VALUES ($1, $2, $3, $4)`,
		taskID, channel, payload, time.Now(),
	); err != nil {
		return fmt.Errorf("persist event: %w", err)
	}

	notifyPayload, err := truncateIfNeeded(payload)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event transaction: %w", err)
	}
	return nil
}

// notifyOnly broadcasts without a durable row, for high-frequency stream chunks.
func (p *Publisher) notifyOnly(ctx context.Context, channel string, payload []byte) error {
	notifyPayload, err := truncateIfNeeded(payload)
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// truncateIfNeeded returns payload unchanged if it fits Postgres's NOTIFY
// size limit, else a minimal envelope carrying only routing fields.
func truncateIfNeeded(payload []byte) (string, error) {
	if len(payload) <= pgNotifyByteLimit {
		return string(payload), nil
	}
	var routing struct {
		Kind   types.EventKind `json:"Kind"`
		TaskID string          `json:"TaskID"`
	}
	if err := json.Unmarshal(payload, &routing); err != nil {
		return "", fmt.Errorf("extract routing fields for truncation: %w", err)
	}
	truncated, err := json.Marshal(map[string]any{
		"Kind":      routing.Kind,
		"TaskID":    routing.TaskID,
		"truncated": true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal truncated payload: %w", err)
	}
	return string(truncated), nil
}
