package engine

// State is a step of a job run.
type State int

const (
	NotStarted State = iota
	GateCheck
	Skipped
	RunningDependencies
	RunningIterations
	Failed
	Attempted
)

var stateNames = [...]string{
	NotStarted:          "NotStarted",
	GateCheck:           "GateCheck",
	Skipped:             "Skipped",
	RunningDependencies: "RunningDependencies",
	RunningIterations:   "RunningIterations",
	Failed:              "Failed",
	Attempted:           "Attempted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
