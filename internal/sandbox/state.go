package sandbox

import "strings"

type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFrozen  State = "frozen"
	StateError   State = "error"
)

// ParseState maps the runtime's status vocabulary onto the sandbox state
// enum. Anything unrecognized is an error state, never healthy.
func ParseState(status string) State {
	switch strings.ToLower(status) {
	case "running":
		return StateRunning
	case "stopped":
		return StateStopped
	case "frozen":
		return StateFrozen
	default:
		return StateError
	}
}
