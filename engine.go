package refract

import "context"

// Engine is the boundary to the incremental computation engine that owns all
// memoized build-graph state. refract never holds a lock on engine state
// itself; it only registers rooted computations and issues read requests
// through the Root handles the engine returns.
type Engine interface {
	// Register roots a computation in the engine's dependency graph and
	// returns a handle used for evaluation and invalidation tracking.
	// The computation must be a pure function of engine state: repeated
	// evaluation against an unchanged graph yields an equal value.
	Register(compute func(ctx context.Context) (any, error)) (Root, error)
}

// Root is a registered, rooted computation. All methods are safe for
// concurrent use, but a Subscription drives its Root from a single
// goroutine and never overlaps evaluation with invalidation waits.
type Root interface {
	// Evaluate returns the memoized value of the computation, recomputing
	// only if a dependency changed since the last evaluation.
	Evaluate(ctx context.Context) (any, error)

	// EvaluateConsistent returns a strongly consistent value: it does not
	// return while an invalidation is pending upstream of the computation,
	// so the result reflects every mutation applied before the call
	// completed.
	EvaluateConsistent(ctx context.Context) (any, error)

	// AwaitInvalidation blocks until a dependency of the computation
	// changes, the context is canceled, or the root is released. It
	// returns immediately if the computation was invalidated since its
	// last evaluation.
	AwaitInvalidation(ctx context.Context) error

	// Release removes the root from the engine's invalidation tracking.
	// After Release, AwaitInvalidation returns ErrRootReleased and the
	// computation no longer contributes to invalidation propagation.
	Release()
}

// DependencyRecorder is implemented by engines that track fine-grained,
// key-addressed dependencies. Computations call Depend while evaluating so
// that mutating the key later invalidates them. Engines without key-level
// tracking may invalidate more coarsely; Depend calls are then no-ops.
type DependencyRecorder interface {
	Depend(ctx context.Context, key string)
}

// Invalidator is implemented by engines that accept external, key-addressed
// invalidation signals, such as those produced by a filesystem watcher.
type Invalidator interface {
	InvalidateKey(key string)
}
