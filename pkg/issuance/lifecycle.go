package issuance

import (
	"fmt"
	"net/http"
)

// Status represents the issuance workflow status.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusPublished   Status = "PUBLISHED"
)

// AllStatuses lists every workflow status in display order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusPublished,
}

// Valid reports whether s is a defined workflow status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusMachine validates issuance status transitions. The table is
// all-pairs-except-self: every status may move to every other status,
// never to itself.
type StatusMachine struct {
	transitions map[Status][]Status
}

// NewStatusMachine creates a machine with the default transition table.
func NewStatusMachine() *StatusMachine {
	transitions := make(map[Status][]Status, len(AllStatuses))
	for _, from := range AllStatuses {
		targets := make([]Status, 0, len(AllStatuses)-1)
		for _, to := range AllStatuses {
			if to != from {
				targets = append(targets, to)
			}
		}
		transitions[from] = targets
	}
	return &StatusMachine{transitions: transitions}
}

// IsValidTransition reports whether to appears in the table entry for from.
func (m *StatusMachine) IsValidTransition(from, to Status) bool {
	for _, target := range m.transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns nil if the transition is allowed, or a
// TransitionError naming both endpoint states.
func (m *StatusMachine) ValidateTransition(from, to Status) error {
	if m.IsValidTransition(from, to) {
		return nil
	}
	return &TransitionError{
		Code:    "INVALID_STATUS_TRANSITION",
		From:    from,
		To:      to,
		Message: fmt.Sprintf("cannot transition issuance from %s to %s", from, to),
	}
}

// ValidNextStatuses returns the transition table entry for from,
// verbatim, for client-side UI filtering.
func (m *StatusMachine) ValidNextStatuses(from Status) []Status {
	targets := m.transitions[from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// TransitionError is a structured error for invalid status transitions.
type TransitionError struct {
	Code    string `json:"code"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Message string `json:"message"`
}

func (e *TransitionError) Error() string { return e.Message }

// StatusCode marks invalid transitions as client errors.
func (e *TransitionError) StatusCode() int { return http.StatusBadRequest }
