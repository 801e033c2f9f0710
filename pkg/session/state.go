package session

// State is the assistant's position in the turn cycle.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateError      State = "error"
)

// edges lists every legal transition. Any state may fail into StateError.
// The extra edges into StateIdle from recording and speaking are resets.
var edges = map[State][]State{
	StateIdle:       {StateIdle, StateRecording},
	StateRecording:  {StateProcessing, StateIdle},
	StateProcessing: {StateIdle, StateSpeaking},
	StateSpeaking:   {StateIdle},
	StateError:      {StateIdle},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	if to == StateError {
		return from != StateError
	}
	for _, s := range edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Busy reports whether a turn is in flight.
func (s State) Busy() bool {
	return s == StateRecording || s == StateProcessing || s == StateSpeaking
}
