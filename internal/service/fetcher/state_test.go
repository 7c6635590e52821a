package fetcher

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateAttempting, true},
		{StateAttempting, StateSucceeded, true},
		{StateAttempting, StateFailedRecoverable, true},
		{StateAttempting, StateFailedTerminal, true},
		{StateFailedRecoverable, StateAttempting, true},
		{StateFailedRecoverable, StateFailedTerminal, true},
		{StateIdle, StateSucceeded, false},
		{StateSucceeded, StateAttempting, false},
		{StateFailedTerminal, StateAttempting, false},
		{StateFailedRecoverable, StateSucceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateSucceeded, StateFailedTerminal} {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", s)
		}
	}
	for _, s := range []State{StateIdle, StateAttempting, StateFailedRecoverable} {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", s)
		}
	}
}
