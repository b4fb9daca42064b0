package session

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusRecording
	// StatusEnded is terminal.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusRecording:
		return "RECORDING"
	case StatusEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Event drives a status transition.
type Event int

const (
	EventStart Event = iota
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	default:
		return fmt.Sprintf("event(%d)", e)
	}
}

var ErrSessionEnded = errors.New("session has ended")

// Transition returns the status after ev and whether it differs from from.
//
//	IDLE      --start--> RECORDING
//	RECORDING --start--> RECORDING (no-op)
//	RECORDING --stop---> ENDED
//	IDLE      --stop---> IDLE (no-op)
//	ENDED     --stop---> ENDED (no-op)
//	ENDED     --start--> error
func Transition(from Status, ev Event) (Status, bool, error) {
	switch {
	case from == StatusIdle && ev == EventStart:
		return StatusRecording, true, nil
	case from == StatusRecording && ev == EventStart:
		return StatusRecording, false, nil
	case from == StatusRecording && ev == EventStop:
		return StatusEnded, true, nil
	case from == StatusIdle && ev == EventStop:
		return StatusIdle, false, nil
	case from == StatusEnded && ev == EventStop:
		return StatusEnded, false, nil
	case from == StatusEnded && ev == EventStart:
		return StatusEnded, false, ErrSessionEnded
	default:
		return from, false, fmt.Errorf("invalid transition: %v on %v", ev, from)
	}
}
