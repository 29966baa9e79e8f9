package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusRequested, StatusUnderReview, true},
		{StatusRequested, StatusCancelled, true},
		{StatusRequested, StatusApproved, false},
		{StatusRequested, StatusRejected, false},
		{StatusRequested, StatusCompleted, false},
		{StatusUnderReview, StatusApproved, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusCancelled, true},
		{StatusUnderReview, StatusCompleted, false},
		{StatusUnderReview, StatusRequested, false},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusCancelled, false},
		{StatusRejected, StatusUnderReview, false},
		{StatusCompleted, StatusApproved, false},
		{StatusCancelled, StatusRequested, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusRequested.IsTerminal())
	assert.False(t, StatusUnderReview.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	assert.ElementsMatch(t,
		[]Status{StatusRejected, StatusCompleted, StatusCancelled},
		TerminalStatuses())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{
		StatusRequested, StatusUnderReview, StatusApproved,
		StatusRejected, StatusCompleted, StatusCancelled,
	} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, Status("PENDING").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestDecisionOutcomeIsValid(t *testing.T) {
	assert.True(t, OutcomeApprove.IsValid())
	assert.True(t, OutcomeReject.IsValid())
	assert.False(t, DecisionOutcome("MAYBE").IsValid())
}
