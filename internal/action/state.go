package action

import "fmt"

// State is the lifecycle state of an execution.
type State int

// Execution states.
const (
	Pending State = iota
	Resolving
	Mutating
	Succeeded
	Failed
)

var stateNames = [...]string{"pending", "resolving", "mutating", "succeeded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s ends an execution.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

var transitions = map[State][]State{
	Pending:   {Resolving, Failed},
	Resolving: {Mutating, Succeeded, Failed},
	Mutating:  {Succeeded, Failed},
}

// CanTransition reports whether an execution may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition is reported to observers on every state change.
type Transition struct {
	InvocationID string
	Action       string
	From, To     State
}

// InvalidTransitionError is returned when an execution would leave a
// terminal state or move backwards.
type InvalidTransitionError struct {
	From, To State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid action state transition %s -> %s", e.From, e.To)
}
