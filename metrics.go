package refract

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key subscription events.
type MetricsProvider interface {
	// OnStateChange is called when the subscription transitions between states.
	OnStateChange(from, to State)

	// OnInvalidation is called when the computation is invalidated and a
	// new delivery cycle is scheduled.
	OnInvalidation()

	// OnCycleSuccess is called when a delivery cycle completes.
	// Duration covers the strongly consistent evaluation, conversion,
	// and consumer delivery.
	OnCycleSuccess(duration time.Duration)

	// OnCycleFailure is called when a cycle fails at any stage.
	// Stage indicates where the failure occurred: "evaluate", "convert",
	// or "deliver".
	OnCycleFailure(stage string, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                 {}
func (NoOpMetricsProvider) OnInvalidation()                          {}
func (NoOpMetricsProvider) OnCycleSuccess(_ time.Duration)           {}
func (NoOpMetricsProvider) OnCycleFailure(_ string, _ time.Duration) {}
