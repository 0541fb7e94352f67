package event

import (
	"context"
	"log/slog"
)

// LogNotifier is the default Notifier: it records each event as a
// structured log line. Real delivery channels live outside this core and
// can replace it at wiring time.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyStateChange(ctx context.Context, ev StateChange) error {
	n.logger.InfoContext(ctx, "audit state changed",
		"audit_id", ev.AuditID,
		"old_state", ev.OldState,
		"new_state", ev.NewState,
		"reason", ev.Reason,
		"timestamp", ev.Timestamp,
	)
	return nil
}

func (n *LogNotifier) NotifyDeadline(ctx context.Context, ev DeadlinePassed) error {
	n.logger.InfoContext(ctx, "audit deadline passed",
		"audit_id", ev.AuditID,
		"state", ev.State,
		"deadline", ev.Deadline,
		"document_count", ev.DocumentCount,
		"transitioned", ev.Transitioned,
	)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
