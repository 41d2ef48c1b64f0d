package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	next, err := Transition(StateIdle, EventSubmit)
	require.NoError(t, err)
	require.Equal(t, StateResolving, next)

	next, err = Transition(next, EventResolved)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionAbortReturnsToIdle(t *testing.T) {
	next, err := Transition(StateResolving, EventAbort)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	for _, state := range []State{StateIdle, StateResolving, StateError} {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle resolved invalid", state: StateIdle, event: EventResolved, want: StateIdle, wantErr: true},
		{name: "idle abort invalid", state: StateIdle, event: EventAbort, want: StateIdle, wantErr: true},
		{name: "resolving submit invalid", state: StateResolving, event: EventSubmit, want: StateResolving, wantErr: true},
		{name: "resolving reset invalid", state: StateResolving, event: EventReset, want: StateResolving, wantErr: true},
		{name: "error submit invalid", state: StateError, event: EventSubmit, want: StateError, wantErr: true},
		{name: "error reset valid", state: StateError, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventSubmit)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
