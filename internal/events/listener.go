package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// subscription is one Subscribe call's delivery channel.
type subscription struct {
	ch     chan types.Event
	taskID string
}

// Listener maintains a dedicated LISTEN connection and fans decoded Events
// out to per-task subscribers. Simplified from pkg/events.NotifyListener: a
// single in-flight LISTEN/UNLISTEN per channel is sufficient here because
// Subscribe/Unsubscribe are driven by the Orchestrator's own task lifecycle
// (one subscriber per running task), not by arbitrary concurrent WebSocket
// churn, so the generation-counter race pkg/events guards against does not
// arise.
type Listener struct {
	connString string

	connMu sync.Mutex
	conn   *pgx.Conn

	subsMu sync.Mutex
	subs   map[string]map[chan types.Event]struct{} // channel -> set of subscriber chans

	cmdCh   chan listenCmd
	running atomic.Bool

	cancelLoop context.CancelFunc
	loopDone   chan struct{}

	log *slog.Logger
}

type listenCmd struct {
	sql    string
	result chan error
}

// NewListener builds a Listener over the given Postgres connection string.
func NewListener(connString string, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		connString: connString,
		subs:       make(map[string]map[chan types.Event]struct{}),
		cmdCh:      make(chan listenCmd, 16),
		log:        log,
	}
}

// Start connects the dedicated LISTEN connection and begins the receive loop.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("connect for LISTEN: %w", err)
	}
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()
	l.running.Store(true)

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancelLoop = cancel
	l.loopDone = make(chan struct{})
	go func() {
		defer close(l.loopDone)
		l.receiveLoop(loopCtx)
	}()
	return nil
}

// Stop halts the receive loop and closes the LISTEN connection.
func (l *Listener) Stop(ctx context.Context) {
	l.running.Store(false)
	if l.cancelLoop != nil {
		l.cancelLoop()
	}
	if l.loopDone != nil {
		<-l.loopDone
	}
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
}

// Subscribe returns a channel of decoded Events for taskID, and an unsubscribe
// func that must be called when the caller stops reading.
func (l *Listener) Subscribe(ctx context.Context, taskID string) (<-chan types.Event, func(), error) {
	channel := TaskChannel(taskID)
	deliver := make(chan types.Event, 32)

	l.subsMu.Lock()
	isFirst := len(l.subs[channel]) == 0
	if l.subs[channel] == nil {
		l.subs[channel] = make(map[chan types.Event]struct{})
	}
	l.subs[channel][deliver] = struct{}{}
	l.subsMu.Unlock()

	if isFirst {
		if err := l.execListen(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
			l.subsMu.Lock()
			delete(l.subs[channel], deliver)
			l.subsMu.Unlock()
			return nil, nil, err
		}
	}

	unsubscribe := func() {
		l.subsMu.Lock()
		delete(l.subs[channel], deliver)
		remaining := len(l.subs[channel])
		if remaining == 0 {
			delete(l.subs, channel)
		}
		l.subsMu.Unlock()
		close(deliver)
		if remaining == 0 {
			_ = l.execListen(context.Background(), "UNLISTEN "+pgx.Identifier{channel}.Sanitize())
		}
	}

	return deliver, unsubscribe, nil
}

func (l *Listener) execListen(ctx context.Context, sql string) error {
	if !l.running.Load() {
		return fmt.Errorf("listener not running")
	}
	cmd := listenCmd{sql: sql, result: make(chan error, 1)}
	select {
	case l.cmdCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) receiveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.drainCmds(ctx)

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()
		if conn == nil {
			l.reconnect(ctx)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		notification, err := conn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if waitCtx.Err() != nil {
				continue
			}
			l.log.Error("notify receive error", "error", err)
			l.reconnect(ctx)
			continue
		}

		var ev types.Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			l.log.Error("decode event payload", "channel", notification.Channel, "error", err)
			continue
		}

		l.subsMu.Lock()
		for sub := range l.subs[notification.Channel] {
			select {
			case sub <- ev:
			default:
				l.log.Warn("subscriber channel full, dropping event", "channel", notification.Channel)
			}
		}
		l.subsMu.Unlock()
	}
}

func (l *Listener) drainCmds(ctx context.Context) {
	for {
		select {
		case cmd := <-l.cmdCh:
			l.connMu.Lock()
			conn := l.conn
			l.connMu.Unlock()
			if conn == nil {
				cmd.result <- fmt.Errorf("LISTEN connection not established")
				continue
			}
			_, err := conn.Exec(ctx, cmd.sql)
			cmd.result <- err
		default:
			return
		}
	}
}

func (l *Listener) reconnect(ctx context.Context) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}

	wait := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		conn, err := pgx.Connect(ctx, l.connString)
		if err != nil {
			l.log.Error("LISTEN reconnect failed", "error", err, "backoff", wait)
			wait = min(wait*2, 30*time.Second)
			continue
		}
		l.conn = conn

		l.subsMu.Lock()
		for channel := range l.subs {
			if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
				l.log.Error("re-LISTEN failed", "channel", channel, "error", err)
			}
		}
		l.subsMu.Unlock()
		l.log.Info("listener reconnected")
		return
	}
}
