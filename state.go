package refract

// State represents the current state of a Subscription.
type State int32

const (
	// StatePending indicates the Subscription is registered but has not
	// yet completed a delivery cycle.
	StatePending State = iota

	// StateActive indicates the last delivery cycle succeeded and the
	// consumer holds the latest strongly consistent snapshot.
	StateActive

	// StateDegraded indicates the last cycle failed to evaluate or
	// convert. The error was delivered to the consumer and the previous
	// snapshot remains the last successful one; the Subscription keeps
	// waiting for the next invalidation.
	StateDegraded

	// StateStalled indicates no cycle has ever succeeded. The
	// Subscription continues watching for a recoverable state upstream.
	StateStalled

	// StateCanceled indicates the Subscription was canceled and released
	// its computation registration. Terminal.
	StateCanceled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateStalled:
		return "stalled"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
