package requests

type Status string

const (
	StatusRequested   Status = "REQUESTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
)

// allowedTransitions is the request lifecycle. REJECTED, COMPLETED and
// CANCELLED are terminal. The owner can cancel before a decision lands; an
// approved request is cancelled only by an admin pulling its refund.
var allowedTransitions = map[Status][]Status{
	StatusRequested:   {StatusUnderReview, StatusCancelled},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:    {StatusCompleted, StatusCancelled},
	StatusRejected:    {},
	StatusCompleted:   {},
	StatusCancelled:   {},
}

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	targets, ok := allowedTransitions[s]
	return ok && len(targets) == 0
}

// CanTransitionTo checks whether the move to target is allowed
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TerminalStatuses returns the terminal states; the partial unique index on
// cancellation_requests excludes exactly these.
func TerminalStatuses() []Status {
	return []Status{StatusRejected, StatusCompleted, StatusCancelled}
}

// DecisionOutcome is the admin's verdict on a request under review
type DecisionOutcome string

const (
	OutcomeApprove DecisionOutcome = "APPROVE"
	OutcomeReject  DecisionOutcome = "REJECT"
)

// IsValid checks if the outcome is a known value
func (o DecisionOutcome) IsValid() bool {
	return o == OutcomeApprove || o == OutcomeReject
}
