package fetcher

// State is a position of the retry controller
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateSucceeded
	StateFailedRecoverable
	StateFailedTerminal
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateAttempting:        "attempting",
	StateSucceeded:         "succeeded",
	StateFailedRecoverable: "failed-recoverable",
	StateFailedTerminal:    "failed-terminal",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailedTerminal
}

// validTransitions lists the edges of the controller state machine
var validTransitions = map[State][]State{
	StateIdle:              {StateAttempting, StateFailedTerminal},
	StateAttempting:        {StateSucceeded, StateFailedRecoverable, StateFailedTerminal},
	StateFailedRecoverable: {StateAttempting, StateFailedTerminal},
}

// CanTransition reports whether from may move to to
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
