// Package repository contains data access abstractions for the audit
// core. Implementations live in subpackages (postgres); business rules
// stay out of this layer.
package repository

// DedupScope controls how far a content hash reaches when ingestion
// looks for an existing document.
type DedupScope string

const (
	// DedupGlobal matches a hash anywhere in the store. Two audits
	// uploading identical bytes share one document row.
	DedupGlobal DedupScope = "global"
	// DedupPerAudit matches a hash only within the same audit.
	DedupPerAudit DedupScope = "audit"
)

// ParseDedupScope maps a config string to a DedupScope, defaulting to
// DedupGlobal for anything unrecognized.
func ParseDedupScope(s string) DedupScope {
	if DedupScope(s) == DedupPerAudit {
		return DedupPerAudit
	}
	return DedupGlobal
}
