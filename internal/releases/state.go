package releases

// State names a step of the release lifecycle.
type State string

// Release lifecycle states.
const (
	StateLocated         State = "located"
	StateClosing         State = "closing"
	StateWaitingClosed   State = "waiting-closed"
	StatePromoting       State = "promoting"
	StateWaitingPromoted State = "waiting-promoted"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

var stateDescriptions = map[State]string{
	StateLocated:         "locating the staging repository",
	StateClosing:         "closing the staging repository",
	StateWaitingClosed:   "waiting for the repository to close",
	StatePromoting:       "promoting the staging repository",
	StateWaitingPromoted: "waiting for promotion to complete",
	StateSucceeded:       "finished",
	StateFailed:          "failed",
}

// Description renders the state for operator messages.
func (state State) Description() string {
	if description, known := stateDescriptions[state]; known {
		return description
	}
	return string(state)
}

// IsTerminal reports whether no further transitions follow.
func (state State) IsTerminal() bool {
	return state == StateSucceeded || state == StateFailed
}
