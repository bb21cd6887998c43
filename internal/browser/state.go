package browser

// State is a step of a scripted booking-site session.
type State int

const (
	Launched State = iota + 1
	PageLoaded
	OriginEntered
	DestinationEntered
	DateEntered
	Submitted
	ResultsRendered
	Extracted
	Closed
)

func (s State) String() string {
	switch s {
	case Launched:
		return "launched"
	case PageLoaded:
		return "page_loaded"
	case OriginEntered:
		return "origin_entered"
	case DestinationEntered:
		return "destination_entered"
	case DateEntered:
		return "date_entered"
	case Submitted:
		return "submitted"
	case ResultsRendered:
		return "results_rendered"
	case Extracted:
		return "extracted"
	case Closed:
		return "closed"
	}
	return "unknown"
}
