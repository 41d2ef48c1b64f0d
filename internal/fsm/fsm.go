// Package fsm is the resolution session's state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StateError     State = "error"
)

const (
	EventSubmit   Event = "submit"
	EventResolved Event = "resolved"
	EventAbort    Event = "abort"
	EventFail     Event = "fail"
	EventReset    Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventSubmit:
			return StateResolving, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateResolving:
		switch event {
		case EventResolved, EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
