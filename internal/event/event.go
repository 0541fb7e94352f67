// Package event carries the fire-and-forget side effects of the audit
// core: state-change notifications and live-update broadcasts. Sinks are
// injected at construction time; their failures are logged and never
// surface as failures of the primary operation.
package event

import (
	"context"
	"time"

	"auditflow/internal/model"
)

// StateChange is emitted after every successful audit state transition.
type StateChange struct {
	AuditID   int64            `json:"audit_id"`
	OldState  model.AuditState `json:"old_state"`
	NewState  model.AuditState `json:"new_state"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}

// DeadlinePassed is emitted by the scheduled sweep for audits past their
// upload deadline. Transitioned is false when the audit had no documents
// and policy chose to notify without moving it.
type DeadlinePassed struct {
	AuditID       int64            `json:"audit_id"`
	State         model.AuditState `json:"state"`
	Deadline      time.Time        `json:"deadline"`
	DocumentCount int              `json:"document_count"`
	Transitioned  bool             `json:"transitioned"`
}

// Notifier receives lifecycle events for delivery to users. Delivery
// itself (mail, chat, whatever) is an external collaborator concern.
type Notifier interface {
	NotifyStateChange(ctx context.Context, ev StateChange) error
	NotifyDeadline(ctx context.Context, ev DeadlinePassed) error
}

// Broadcaster pushes live-update payloads to connected dashboards.
type Broadcaster interface {
	Broadcast(ctx context.Context, channel string, payload any) error
}

// Channel names used for live-update broadcasts.
const (
	ChannelStateChanges = "audits.state"
	ChannelDeadlines    = "audits.deadline"
)
