package issuance

import "testing"

func TestStatusMachine_AllPairs(t *testing.T) {
	m := NewStatusMachine()

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			got := m.IsValidTransition(from, to)
			want := from != to
			if got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusMachine_ValidateTransition(t *testing.T) {
	m := NewStatusMachine()

	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"draft to pending", StatusDraft, StatusPending, false},
		{"pending to under review", StatusPending, StatusUnderReview, false},
		{"under review to approved", StatusUnderReview, StatusApproved, false},
		{"under review to rejected", StatusUnderReview, StatusRejected, false},
		{"approved to published", StatusApproved, StatusPublished, false},
		{"rejected back to draft", StatusRejected, StatusDraft, false},
		{"published back to under review", StatusPublished, StatusUnderReview, false},
		{"draft straight to published", StatusDraft, StatusPublished, false},

		{"draft to draft denied", StatusDraft, StatusDraft, true},
		{"published to published denied", StatusPublished, StatusPublished, true},
		{"unknown source denied", Status("BOGUS"), StatusDraft, true},
		{"unknown target denied", StatusDraft, Status("BOGUS"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			te, ok := err.(*TransitionError)
			if !ok {
				t.Fatalf("expected TransitionError, got %T", err)
			}
			if te.Code != "INVALID_STATUS_TRANSITION" {
				t.Errorf("expected code INVALID_STATUS_TRANSITION, got %s", te.Code)
			}
			if te.From != tt.from || te.To != tt.to {
				t.Errorf("error endpoints = (%s, %s), want (%s, %s)", te.From, te.To, tt.from, tt.to)
			}
			if te.StatusCode() != 400 {
				t.Errorf("expected status hint 400, got %d", te.StatusCode())
			}
		})
	}
}

func TestStatusMachine_ValidNextStatuses(t *testing.T) {
	m := NewStatusMachine()

	for _, from := range AllStatuses {
		next := m.ValidNextStatuses(from)
		if len(next) != len(AllStatuses)-1 {
			t.Errorf("ValidNextStatuses(%s) has %d entries, want %d", from, len(next), len(AllStatuses)-1)
		}
		for _, to := range next {
			if to == from {
				t.Errorf("ValidNextStatuses(%s) contains the source status", from)
			}
		}
	}

	// Mutating the returned slice must not corrupt the machine's table.
	next := m.ValidNextStatuses(StatusDraft)
	next[0] = StatusDraft
	if !m.IsValidTransition(StatusDraft, StatusPending) {
		t.Error("transition table was mutated through the returned slice")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{"", "draft", "ARCHIVED"} {
		if s.Valid() {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}
