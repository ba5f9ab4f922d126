package phase

// State is the load phase a workspace is in.
type State int

const (
	// StateIdle means no load is in progress (initial state, and after teardown).
	StateIdle State = iota

	// StatePhase1Open means the primary load began and has not completed.
	StatePhase1Open

	// StatePhase1Done means the primary load completed. Valid terminal state
	// when the host has no secondary phase.
	StatePhase1Done

	// StatePhase2Pending means the secondary (background) load began.
	StatePhase2Pending

	// StatePhase2Done means the secondary load completed.
	StatePhase2Done
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePhase1Open:
		return "phase1_open"
	case StatePhase1Done:
		return "phase1_done"
	case StatePhase2Pending:
		return "phase2_pending"
	case StatePhase2Done:
		return "phase2_done"
	default:
		return "unknown"
	}
}

// Armed reports whether a sentinel is expected on disk in this state.
func (s State) Armed() bool {
	return s == StatePhase1Open || s == StatePhase2Pending
}

// Trigger is a lifecycle notification that drives a transition.
type Trigger string

const (
	TriggerBeginPrimary      Trigger = "begin_primary"
	TriggerCompletePrimary   Trigger = "complete_primary"
	TriggerBeginSecondary    Trigger = "begin_secondary"
	TriggerCompleteSecondary Trigger = "complete_secondary"
	TriggerTeardown          Trigger = "teardown"
)

// next returns the target state for trigger and whether trigger was expected
// from the current state. Every trigger has a single target regardless of
// the current state.
func next(from State, trigger Trigger) (State, bool) {
	switch trigger {
	case TriggerBeginPrimary:
		return StatePhase1Open, from == StateIdle || from == StatePhase1Done || from == StatePhase2Done
	case TriggerCompletePrimary:
		return StatePhase1Done, from == StatePhase1Open
	case TriggerBeginSecondary:
		return StatePhase2Pending, from == StatePhase1Done
	case TriggerCompleteSecondary:
		return StatePhase2Done, from == StatePhase2Pending
	case TriggerTeardown:
		return StateIdle, true
	default:
		return from, false
	}
}
