package model

import "time"

// Document represents one piece of uploaded evidence.
// ContentHash uniquely identifies content across the store; repeat uploads
// of the same bytes bump Version on the existing row instead of creating
// a new one.
type Document struct {
	ID               int64     `json:"id"`
	AuditID          int64     `json:"audit_id"`
	SectionID        int64     `json:"section_id"`
	StoredFilename   string    `json:"stored_filename"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	SizeBytes        int64     `json:"size_bytes"`
	StoragePath      string    `json:"storage_path"`
	ContentHash      string    `json:"content_hash"`
	Version          int       `json:"version"`
	Notes            string    `json:"notes"`
	UploadedBy       *int64    `json:"uploaded_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TechnicalSection is a named category of required evidence.
// Mandatory sections gate the loading -> pending_evaluation transition.
type TechnicalSection struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Active    bool   `json:"active"`
}
