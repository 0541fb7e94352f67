package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher fans lifecycle events out to the notifier and broadcaster
// asynchronously. Every delivery is best-effort: errors and panics are
// logged, never returned to the caller.
type Dispatcher struct {
	notifier    Notifier
	broadcaster Broadcaster
	logger      *slog.Logger
	timeout     time.Duration

	wg sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. Either sink may be nil, in which
// case that side is skipped.
func NewDispatcher(notifier Notifier, broadcaster Broadcaster, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier:    notifier,
		broadcaster: broadcaster,
		logger:      logger,
		timeout:     10 * time.Second,
	}
}

// StateChanged dispatches a state-change notification and broadcast.
// Returns immediately; delivery happens in the background.
func (d *Dispatcher) StateChanged(ev StateChange) {
	d.run("state_change", func(ctx context.Context) {
		if d.notifier != nil {
			if err := d.notifier.NotifyStateChange(ctx, ev); err != nil {
				d.logger.Error("state change notification failed",
					"audit_id", ev.AuditID, "new_state", ev.NewState, "error", err)
			}
		}
		if d.broadcaster != nil {
			if err := d.broadcaster.Broadcast(ctx, ChannelStateChanges, ev); err != nil {
				d.logger.Error("state change broadcast failed",
					"audit_id", ev.AuditID, "error", err)
			}
		}
	})
}

// DeadlineReached dispatches a deadline notification and broadcast.
func (d *Dispatcher) DeadlineReached(ev DeadlinePassed) {
	d.run("deadline", func(ctx context.Context) {
		if d.notifier != nil {
			if err := d.notifier.NotifyDeadline(ctx, ev); err != nil {
				d.logger.Error("deadline notification failed",
					"audit_id", ev.AuditID, "error", err)
			}
		}
		if d.broadcaster != nil {
			if err := d.broadcaster.Broadcast(ctx, ChannelDeadlines, ev); err != nil {
				d.logger.Error("deadline broadcast failed",
					"audit_id", ev.AuditID, "error", err)
			}
		}
	})
}

func (d *Dispatcher) run(kind string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("event dispatch panicked", "kind", kind, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Flush blocks until all in-flight deliveries finish. Used on shutdown
// and in tests.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}
