package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	allowed := []struct{ from, to AuditState }{
		{StateProgrammed, StateLoading},
		{StateLoading, StatePendingEvaluation},
		{StateLoading, StateProgrammed},
		{StatePendingEvaluation, StateEvaluated},
		{StatePendingEvaluation, StateLoading},
		{StateEvaluated, StateClosed},
		{StateEvaluated, StatePendingEvaluation},
	}
	isAllowed := func(from, to AuditState) bool {
		for _, p := range allowed {
			if p.from == from && p.to == to {
				return true
			}
		}
		return false
	}

	for _, from := range AllStates {
		for _, to := range AllStates {
			assert.Equal(t, isAllowed(from, to), IsValidTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestTransitions_ClosedIsTerminal(t *testing.T) {
	assert.Empty(t, Transitions[StateClosed])
}

func TestParseState(t *testing.T) {
	for _, st := range AllStates {
		parsed, err := ParseState(string(st))
		assert.NoError(t, err)
		assert.Equal(t, st, parsed)
	}

	_, err := ParseState("galloping")
	assert.Error(t, err)

	_, err = ParseState("")
	assert.Error(t, err)
}

func TestStatePercent_CoversAllStates(t *testing.T) {
	assert.Len(t, StatePercent, len(AllStates))
	assert.Equal(t, 0, StatePercent[StateProgrammed])
	assert.Equal(t, 100, StatePercent[StateClosed])
}
