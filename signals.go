package refract

import "github.com/zoobzio/capitan"

// Subscription lifecycle signals.
var (
	// SubscriptionStarted is emitted when a Subscription begins driving
	// its computation.
	SubscriptionStarted = capitan.NewSignal(
		"refract.subscription.started",
		"Subscription started",
	)

	// SubscriptionStopped is emitted when a Subscription stops, whether
	// by cancellation or because its root was released.
	SubscriptionStopped = capitan.NewSignal(
		"refract.subscription.stopped",
		"Subscription stopped",
	)

	// SubscriptionStateChanged is emitted when a Subscription transitions
	// between states.
	SubscriptionStateChanged = capitan.NewSignal(
		"refract.subscription.state.changed",
		"Subscription state transition",
	)
)

// Delivery cycle signals.
var (
	// SubscriptionInvalidated is emitted when the underlying computation
	// is invalidated and a new delivery cycle is scheduled.
	SubscriptionInvalidated = capitan.NewSignal(
		"refract.subscription.invalidated",
		"Computation invalidated",
	)

	// SubscriptionEvaluateFailed is emitted when the strongly consistent
	// evaluation fails.
	SubscriptionEvaluateFailed = capitan.NewSignal(
		"refract.subscription.evaluate.failed",
		"Evaluation failed",
	)

	// SubscriptionConvertFailed is emitted when converting the evaluated
	// snapshot to consumer values fails.
	SubscriptionConvertFailed = capitan.NewSignal(
		"refract.subscription.convert.failed",
		"Conversion failed",
	)

	// SubscriptionDeliveryFailed is emitted when the consumer pipeline
	// rejects a notification.
	SubscriptionDeliveryFailed = capitan.NewSignal(
		"refract.subscription.delivery.failed",
		"Delivery failed",
	)

	// SubscriptionDelivered is emitted when a delivery cycle completes
	// successfully.
	SubscriptionDelivered = capitan.NewSignal(
		"refract.subscription.delivered",
		"Snapshot delivered",
	)
)

// Project lifecycle signals.
var (
	// ProjectCreated is emitted when a Project is constructed.
	ProjectCreated = capitan.NewSignal(
		"refract.project.created",
		"Project created",
	)

	// ProjectClosed is emitted when a Project is closed and its
	// subscriptions are canceled.
	ProjectClosed = capitan.NewSignal(
		"refract.project.closed",
		"Project closed",
	)
)
