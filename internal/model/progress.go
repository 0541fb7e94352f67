package model

import "time"

// ProgressSnapshot is a computed, never persisted summary of section
// coverage for one audit.
type ProgressSnapshot struct {
	TotalSections      int  `json:"total_sections"`
	CoveredSections    int  `json:"covered_sections"`
	MandatoryTotal     int  `json:"mandatory_total"`
	MandatoryCovered   int  `json:"mandatory_covered"`
	PercentAll         int  `json:"percent_all"`
	PercentMandatory   int  `json:"percent_mandatory"`
	Complete           bool `json:"complete"`
}

// AuditProgress pairs the coarse state-based percentage with the
// fine-grained section snapshot. Dashboards consume each independently.
type AuditProgress struct {
	AuditID      int64            `json:"audit_id"`
	State        AuditState       `json:"state"`
	StatePercent int              `json:"state_percent"`
	Sections     ProgressSnapshot `json:"sections"`
}

// StateMetrics reports per-state audit counts, all-time and for the
// current calendar month.
type StateMetrics struct {
	AllTime      map[AuditState]int `json:"all_time"`
	CurrentMonth map[AuditState]int `json:"current_month"`
}

// SweepResult summarizes one deadline sweep run. A non-zero Failures
// count signals operator attention.
type SweepResult struct {
	TransitionsCount int       `json:"transitions_count"`
	Failures         int       `json:"failures"`
	Timestamp        time.Time `json:"timestamp"`
}
