package function

// State is the stage an invocation reached. It is reported when a batch
// fails.
type State int

const (
	Received State = iota
	Validated
	Built
	Called
	Reconciled
	Encoded
)

var stateNames = [...]string{"Received", "Validated", "Built", "Called", "Reconciled", "Encoded"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}

	return stateNames[s]
}
