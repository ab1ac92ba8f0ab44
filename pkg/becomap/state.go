package becomap

// MsgNotInitialized is the exact message every operation other than init
// and cleanup fails with before the map is ready.
const MsgNotInitialized = "MapView not initialized"

// State is the bridge lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateError
	StateDestroyed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// transitionAllowed encodes the lifecycle graph: uninitialized ->
// initializing -> ready, ready or initializing may fail into error,
// and error -> initializing is the manual recovery edge. Destroyed is
// terminal; any live state may be destroyed.
func transitionAllowed(from, to State) bool {
	if to == StateDestroyed {
		return from != StateDestroyed
	}
	switch from {
	case StateUninitialized:
		return to == StateInitializing
	case StateInitializing:
		return to == StateReady || to == StateError
	case StateReady:
		return to == StateError
	case StateError:
		return to == StateInitializing
	default:
		return false
	}
}

// transition validates and performs a lifecycle move, returning the new
// state or the unchanged state with a coded error.
func transition(from, to State) (State, error) {
	if !transitionAllowed(from, to) {
		return from, New(CodeInvalidTransition, "illegal lifecycle transition").
			WithMetadata(map[string]string{
				"from": from.String(),
				"to":   to.String(),
			})
	}
	return to, nil
}
