package refract

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the delivery pipeline of a Subscription. Pipeline
// options wrap the consumer with middleware for retry, timeout, circuit
// breaking, and other reliability patterns.
//
// Instance configuration (debounce, sync mode, clock, etc.) is handled via
// chainable methods on the Subscription before calling Start().
type Option[U any] func(pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline[U any](terminal pipz.Chainable[*Notification[U]], opts []Option[U]) pipz.Chainable[*Notification[U]] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Pipeline Options - Wrapping (With*)
// -----------------------------------------------------------------------------
// These options wrap the entire delivery pipeline, providing protection at
// the consumer boundary.

// WithRetry wraps the delivery pipeline with retry logic.
// Failed deliveries are retried immediately up to maxAttempts times.
// For exponential backoff between retries, use WithBackoff instead.
func WithRetry[U any](maxAttempts int) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		return pipz.NewRetry("retry", p, maxAttempts)
	}
}

// WithBackoff wraps the delivery pipeline with exponential backoff retry
// logic. Failed deliveries are retried with increasing delays: baseDelay,
// 2*baseDelay, 4*baseDelay, etc.
func WithBackoff[U any](maxAttempts int, baseDelay time.Duration) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		return pipz.NewBackoff("backoff", p, maxAttempts, baseDelay)
	}
}

// WithTimeout wraps the delivery pipeline with a deadline.
// If the consumer takes longer than the specified duration, the delivery
// fails with a timeout error.
func WithTimeout[U any](d time.Duration) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithCircuitBreaker wraps the delivery pipeline with circuit breaker
// protection. After 'failures' consecutive delivery failures, the circuit
// opens and rejects further deliveries until 'recovery' time has passed.
func WithCircuitBreaker[U any](failures int, recovery time.Duration) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		return pipz.NewCircuitBreaker("circuit-breaker", p, failures, recovery)
	}
}

// WithErrorHandler adds error observation to the delivery pipeline.
// Errors are passed to the handler for logging, metrics, or alerting,
// but the error still propagates. Use this for observability, not recovery.
func WithErrorHandler[U any](handler pipz.Chainable[*pipz.Error[*Notification[U]]]) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithMiddleware wraps the delivery pipeline with a sequence of processors.
// Processors execute in order, with the wrapped pipeline (consumer) last.
//
// Use the Use* functions to create processors for common patterns,
// or provide custom pipz.Chainable implementations directly.
func WithMiddleware[U any](processors ...pipz.Chainable[*Notification[U]]) Option[U] {
	return func(p pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
		all := make([]pipz.Chainable[*Notification[U]], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// -----------------------------------------------------------------------------
// Middleware Processors - Adapters (Use*)
// -----------------------------------------------------------------------------

// UseEffect creates a processor that performs a side effect. The
// notification passes through unchanged. Use for logging, metrics, or
// bookkeeping that should not affect delivery.
func UseEffect[U any](name string, fn func(context.Context, *Notification[U]) error) pipz.Chainable[*Notification[U]] {
	return pipz.Effect(pipz.Name(name), fn)
}

// UseApply creates a processor that can transform the notification and
// fail. Use for enrichment or reshaping before the consumer sees it.
func UseApply[U any](name string, fn func(context.Context, *Notification[U]) (*Notification[U], error)) pipz.Chainable[*Notification[U]] {
	return pipz.Apply(pipz.Name(name), fn)
}

// UseFilter wraps a processor with a condition. If the condition returns
// false, the notification passes through unchanged.
func UseFilter[U any](name string, condition func(context.Context, *Notification[U]) bool, processor pipz.Chainable[*Notification[U]]) pipz.Chainable[*Notification[U]] {
	return pipz.NewFilter(pipz.Name(name), condition, processor)
}

// UseRateLimit creates a rate limiting processor. Uses a token bucket with
// the specified rate (deliveries per second) and burst size. When tokens
// are exhausted, deliveries wait for availability.
func UseRateLimit[U any](rate float64, burst int) pipz.Chainable[*Notification[U]] {
	return pipz.NewRateLimiter[*Notification[U]]("rate-limiter", rate, burst)
}
