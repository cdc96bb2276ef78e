package dispatch

// State is the stage a call has reached.
type State int

// The stages of a call, in order. A call ends in either Completed or Failed.
const (
	Received State = iota
	Validated
	NodeSelected
	Executing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Received:
		return "Received"
	case Validated:
		return "Validated"
	case NodeSelected:
		return "NodeSelected"
	case Executing:
		return "Executing"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "?"
	}
}
