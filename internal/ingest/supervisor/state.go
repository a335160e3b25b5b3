package supervisor

// State is one node of the streaming supervisor's lifecycle.
type State string

const (
	Stopped        State = "stopped"
	StartingWS     State = "starting_ws"
	RunningWS      State = "running_ws"
	StartingREST   State = "starting_rest"
	RunningREST    State = "running_rest"
	FailedTerminal State = "failed_terminal"
)
