// Package interrupt implements the shared halt-and-resume signal the
// Orchestrator consults at pipeline start and before every LLM call
// (spec §4.7). It is backed by Postgres rather than a separate cache
// dependency, grounded on tarsy's habit of using Postgres as the single
// source of cross-pod coordination state (AlertSession's pod_id /
// last_interaction_at columns serve the same role there).
package interrupt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/apperrors"
	"github.com/tarsy-labs/agentruntime/internal/types"
)

// DefaultTTL bounds how long a halt record survives without a resume.
const DefaultTTL = time.Hour

// State is the result of a halt lookup.
type State struct {
	IsHalted bool
	Record   *types.InterruptRecord
}

// Store is the Interrupt Store contract from spec §4.7.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// New builds a Store over db with the default 1-hour TTL.
func New(db *sql.DB) *Store {
	return &Store{db: db, ttl: DefaultTTL}
}

// Halt writes a halt record for taskID, replacing any existing one.
func (s *Store) Halt(ctx context.Context, taskID string, reason types.InterruptReason, message string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interrupt_records (task_id, reason, message, halted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (task_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			message = EXCLUDED.message,
			halted_at = EXCLUDED.halted_at,
			expires_at = EXCLUDED.expires_at
	`, taskID, string(reason), message, now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("halt task %s: %w", taskID, err)
	}
	return nil
}

// Resume clears taskID's halt record, if any.
func (s *Store) Resume(ctx context.Context, taskID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM interrupt_records WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("resume task %s: %w", taskID, err)
	}
	return nil
}

// GetState reports whether taskID is currently halted. A record past its
// expires_at is treated as not-halted and deleted on read (self-healing),
// matching spec §4.7's "corrupted records self-heal on read" semantics.
func (s *Store) GetState(ctx context.Context, taskID string) (State, error) {
	var (
		reason    string
		message   sql.NullString
		haltedAt  time.Time
		expiresAt time.Time
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT reason, message, halted_at, expires_at FROM interrupt_records WHERE task_id = $1`, taskID)
	err := row.Scan(&reason, &message, &haltedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{IsHalted: false}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get interrupt state for task %s: %w", taskID, err)
	}

	if time.Now().After(expiresAt) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM interrupt_records WHERE task_id = $1`, taskID)
		return State{IsHalted: false}, nil
	}

	return State{
		IsHalted: true,
		Record: &types.InterruptRecord{
			Reason:   types.InterruptReason(reason),
			HaltedAt: haltedAt,
			Message:  message.String,
		},
	}, nil
}

// IsHalted is a convenience wrapper around GetState.
func (s *Store) IsHalted(ctx context.Context, taskID string) (bool, error) {
	state, err := s.GetState(ctx, taskID)
	if err != nil {
		return false, err
	}
	return state.IsHalted, nil
}

// GuardOrThrow returns an *apperrors.InterruptedError if taskID is halted.
// The Orchestrator calls this at the two points spec §4.7 names: pipeline
// start and immediately before the LLM call.
func (s *Store) GuardOrThrow(ctx context.Context, taskID string) error {
	state, err := s.GetState(ctx, taskID)
	if err != nil {
		return err
	}
	if !state.IsHalted {
		return nil
	}
	reason := ""
	if state.Record != nil {
		reason = string(state.Record.Reason)
		if state.Record.Message != "" {
			reason = reason + ": " + state.Record.Message
		}
	}
	return &apperrors.InterruptedError{TaskID: taskID, Reason: reason}
}

// ListHalted returns the task ids with a live (non-expired) halt record.
func (s *Store) ListHalted(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id FROM interrupt_records WHERE expires_at > $1`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list halted tasks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan halted task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
