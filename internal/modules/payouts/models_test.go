package payouts

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},

		// no self-transitions
		{StatusPending, StatusPending, false},
		{StatusProcessing, StatusProcessing, false},
		{StatusCompleted, StatusCompleted, false},

		// no backwards movement
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},

		// terminal states are final
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusCompleted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusFailed, StatusCancelled, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestBatchStatusDeletable(t *testing.T) {
	deletable := map[BatchStatus]bool{
		BatchDraft:      true,
		BatchUploaded:   true,
		BatchProcessing: false,
		BatchCompleted:  false,
		BatchFailed:     false,
		BatchPartial:    false,
	}
	for s, want := range deletable {
		if got := s.Deletable(); got != want {
			t.Errorf("%s.Deletable() = %v, want %v", s, got, want)
		}
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{MethodPayPal, MethodGiftCard, MethodBankTransfer} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Method("venmo").Valid() {
		t.Error("unknown method should be invalid")
	}
}
