package refract

import "github.com/zoobzio/capitan"

// Field keys for subscription and project events.
var (
	// KeyState is the current state of the Subscription.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured invalidation debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyRevision is the delivery revision counter of a subscription.
	KeyRevision = capitan.NewIntKey("revision")

	// KeyDeliveries is the number of values delivered in one cycle.
	KeyDeliveries = capitan.NewIntKey("deliveries")

	// KeyRootPath is the root path of a project.
	KeyRootPath = capitan.NewStringKey("root_path")

	// KeyProjectPath is the project path of a project.
	KeyProjectPath = capitan.NewStringKey("project_path")

	// KeyWatch reports whether filesystem watching is enabled.
	KeyWatch = capitan.NewStringKey("watch")
)
