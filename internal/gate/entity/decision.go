package entity

// Decision is the outcome of inspecting a request before routing.
type Decision int

const (
	// DecisionRejected stops the request with the challenge form.
	DecisionRejected Decision = iota
	// DecisionDeferred lets the route's own handler decide.
	DecisionDeferred
	// DecisionAuthenticated means the request carries a verified session.
	DecisionAuthenticated
)

func (d Decision) String() string {
	switch d {
	case DecisionAuthenticated:
		return "authenticated"
	case DecisionDeferred:
		return "deferred"
	default:
		return "rejected"
	}
}
