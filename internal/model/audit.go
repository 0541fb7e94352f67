package model

import (
	"fmt"
	"time"
)

// AuditState is the lifecycle state of a compliance audit.
type AuditState string

const (
	StateProgrammed        AuditState = "programmed"
	StateLoading           AuditState = "loading"
	StatePendingEvaluation AuditState = "pending_evaluation"
	StateEvaluated         AuditState = "evaluated"
	StateClosed            AuditState = "closed"
)

// AllStates lists every lifecycle state in progression order.
var AllStates = []AuditState{
	StateProgrammed,
	StateLoading,
	StatePendingEvaluation,
	StateEvaluated,
	StateClosed,
}

// Transitions is the fixed directed graph of allowed state changes.
// StateClosed is terminal and maps to an empty slice.
var Transitions = map[AuditState][]AuditState{
	StateProgrammed:        {StateLoading},
	StateLoading:           {StatePendingEvaluation, StateProgrammed},
	StatePendingEvaluation: {StateEvaluated, StateLoading},
	StateEvaluated:         {StateClosed, StatePendingEvaluation},
	StateClosed:            {},
}

// StatePercent maps each state to the coarse completion percentage
// consumed by external dashboards.
var StatePercent = map[AuditState]int{
	StateProgrammed:        0,
	StateLoading:           25,
	StatePendingEvaluation: 50,
	StateEvaluated:         75,
	StateClosed:            100,
}

// IsValidTransition reports whether the state change from -> to is allowed.
func IsValidTransition(from, to AuditState) bool {
	for _, next := range Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseState converts a raw string into an AuditState.
func ParseState(s string) (AuditState, error) {
	st := AuditState(s)
	if _, ok := Transitions[st]; !ok {
		return "", fmt.Errorf("unknown audit state: %q", s)
	}
	return st, nil
}

// Audit is a compliance-review unit tied to one site and one period.
// Rows are created by an external process; the state field only changes
// through the state machine's controlled operation.
type Audit struct {
	ID             int64      `json:"id"`
	SiteID         int64      `json:"site_id"`
	PeriodCode     string     `json:"period_code"`
	State          AuditState `json:"state"`
	UploadDeadline time.Time  `json:"upload_deadline"`
	ScheduledVisit time.Time  `json:"scheduled_visit"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
