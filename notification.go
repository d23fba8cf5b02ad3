package refract

import "context"

// Notification carries one delivered value, or a cycle error, through the
// delivery pipeline to the consumer. Exactly one of Value and Err is
// meaningful: a cycle that evaluates and converts successfully delivers one
// Notification per converted value with Err nil, while a failed cycle
// delivers a single Notification with Err set and Value at its zero value.
type Notification[U any] struct {
	// Revision is the subscription's delivery revision. It increases by
	// one per delivery cycle; revisions are not dense over upstream
	// changes because cycles coalesce rapid invalidations.
	Revision uint64

	// Value is the converted consumer-visible value.
	Value U

	// Err is the evaluation or conversion error for a failed cycle.
	Err error
}

// Consumer receives notifications from a Subscription. Delivered values are
// immutable snapshots; the consumer must not retain and mutate them. A
// non-nil return marks the cycle failed and the subscription degraded, but
// does not terminate the subscription.
type Consumer[U any] func(ctx context.Context, n Notification[U]) error
