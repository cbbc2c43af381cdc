package domain

type State string

const (
	StateCreated            State = "Created"
	StateCalibrated         State = "Calibrated"
	StateCredentialVerified State = "CredentialVerified"
	StateItemsOpen          State = "ItemsOpen"
	StateFinalized          State = "Finalized"
)

type Event string

const (
	EventCalibrate        Event = "calibrate"
	EventVerifyCredential Event = "verify_credential"
	EventAddItem          Event = "add_item"
	EventFinalize         Event = "finalize"
)

// transitions lists, per state, the events it accepts and where they lead.
// Recalibration and re-verification keep the current state.
var transitions = map[State]map[Event]State{
	StateCreated: {
		EventCalibrate: StateCalibrated,
	},
	StateCalibrated: {
		EventCalibrate:        StateCalibrated,
		EventVerifyCredential: StateCredentialVerified,
	},
	StateCredentialVerified: {
		EventCalibrate:        StateCredentialVerified,
		EventVerifyCredential: StateCredentialVerified,
		EventAddItem:          StateItemsOpen,
	},
	StateItemsOpen: {
		EventCalibrate:        StateItemsOpen,
		EventVerifyCredential: StateItemsOpen,
		EventAddItem:          StateItemsOpen,
		EventFinalize:         StateFinalized,
	},
	StateFinalized: {},
}

// Apply returns the state reached by applying e, or a *TransitionError when
// the event is not allowed in s.
func (s State) Apply(e Event) (State, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, &TransitionError{From: s, Event: e}
	}
	return next, nil
}

func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}
