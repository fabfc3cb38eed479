package orchestrator

// State is the orchestrator's position in a scan.
type State int32

const (
	StateIdle State = iota
	StateRegionsResolved
	StateFannedOut
	StateAggregating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRegionsResolved:
		return "regions_resolved"
	case StateFannedOut:
		return "fanned_out"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
