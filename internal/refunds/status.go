package refunds

type Status string

const (
	StatusNotApplicable Status = "NOT_APPLICABLE"
	StatusPending       Status = "PENDING"
	StatusProcessing    Status = "PROCESSING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusCancelled     Status = "CANCELLED"
)

// allowedTransitions is the settlement lifecycle. FAILED is retryable back
// to PROCESSING until attempts run out, and may still complete when the
// gateway confirms late. An operator can cancel anything the gateway has
// not settled, claimed or not. COMPLETED and CANCELLED are final.
// NOT_APPLICABLE never moves, it records that no money changes hands.
var allowedTransitions = map[Status][]Status{
	StatusNotApplicable: {},
	StatusPending:       {StatusProcessing, StatusCancelled},
	StatusProcessing:    {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:        {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusCompleted:     {},
	StatusCancelled:     {},
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
