package model

import "time"

// Trail actions recorded by the core. The audit trail is an append-only
// external sink; the core writes entries and never reads them back.
const (
	TrailActionStateChange    = "state_change"
	TrailActionDocumentSaved  = "document_saved"
	TrailActionDocumentUpdate = "document_version_bump"
	TrailActionDocumentRemove = "document_removed"
)

// TrailEntry is one append-only audit-trail record.
type TrailEntry struct {
	ID        int64     `json:"id"`
	AuditID   int64     `json:"audit_id"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
