package checkout

import "fmt"

// State is the phase of one checkout attempt.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "IDLE",
	StateValidating: "VALIDATING",
	StateSubmitting: "SUBMITTING",
	StateSuccess:    "SUCCESS",
	StateFailed:     "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}

// InFlight reports whether a submission is being validated or sent.
func (s State) InFlight() bool {
	return s == StateValidating || s == StateSubmitting
}

// Terminal reports whether the attempt has finished.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateIdle, StateSubmitting, StateFailed},
	StateSubmitting: {StateSuccess, StateFailed},
	StateSuccess:    {StateIdle},
	StateFailed:     {StateIdle},
}

// CanTransition reports whether the machine may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
