package interrupt

import (
	"context"
	"time"
)

// DefaultPollInterval is how often WithHaltWatch re-checks the store.
const DefaultPollInterval = 2 * time.Second

// WithHaltWatch returns a derived context that is cancelled as soon as
// taskID is observed halted, polling the store at interval. The returned
// cancel func must be called once the caller's long-running operation (a
// provider HTTP call, typically) completes, to stop the background poller.
//
// Grounded on SubAgentRunner's split between a long-lived parentCtx and a
// per-iteration context: here the "iteration" context is the caller's ctx,
// and the watch goroutine layers a halt-triggered cancellation on top of it
// without the caller needing to poll the store itself.
func (s *Store) WithHaltWatch(ctx context.Context, taskID string) (context.Context, context.CancelFunc) {
	watchCtx, cancel := context.WithCancel(ctx)

	ticker := time.NewTicker(DefaultPollInterval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				halted, err := s.IsHalted(watchCtx, taskID)
				if err == nil && halted {
					cancel()
					return
				}
			}
		}
	}()

	stop := func() {
		close(done)
		cancel()
	}
	return watchCtx, stop
}
