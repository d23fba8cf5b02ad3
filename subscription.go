package refract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// ErrSubscriptionStarted is returned when Start is called more than once.
var ErrSubscriptionStarted = errors.New("subscription already started")

// DefaultDebounce is the default debounce duration for invalidation
// processing. Invalidations arriving within this window are coalesced into
// a single delivery cycle, absorbing editor save storms and batched
// filesystem events.
const DefaultDebounce = 10 * time.Millisecond

// Subscription bridges one rooted computation to a long-lived consumer.
// Each delivery cycle evaluates the computation under strong consistency,
// converts the snapshot to consumer-visible values, and delivers them in
// order. The subscription then waits for the computation to be invalidated
// and repeats until canceled.
//
// Delivery is strictly sequential within one subscription and coalescing
// across upstream changes: only the latest strongly consistent value at the
// time of each cycle is guaranteed, intermediate states may be skipped.
// Independent subscriptions are fully independent.
type Subscription[T, U any] struct {
	engine   Engine
	compute  func(ctx context.Context) (T, error)
	convert  func(value T) ([]U, error)
	pipeline pipz.Chainable[*Notification[U]]
	debounce time.Duration
	syncMode bool
	clock    clockz.Clock
	metrics  MetricsProvider
	onStop   func(State)

	state        atomic.Int32
	revision     atomic.Uint64
	delivered    atomic.Bool
	lastError    atomic.Pointer[error]
	errorHistory *errorRing

	mu       sync.Mutex
	started  bool
	root     Root
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewSubscription creates a Subscription over the given engine.
//
// The compute function is registered with the engine as a rooted
// computation; each cycle reads it with EvaluateConsistent, so delivered
// snapshots are guaranteed up to date at the moment of the read, not merely
// memoized from a stale invocation. The convert function maps one snapshot
// to zero or more consumer values; a cycle may deliver several values, one
// Notification each, in order. Evaluation and conversion errors are
// delivered to the consumer as error notifications and the subscription
// keeps waiting for the next invalidation.
//
// Pipeline options (With*) configure the delivery pipeline. Instance
// configuration uses chainable methods before calling Start().
//
// Example:
//
//	sub := refract.NewSubscription(engine,
//	    project.entrypoints(opts),
//	    func(e *refract.Entrypoints) ([]refract.EntrypointsRecord, error) {
//	        rec, err := project.convertEntrypoints(e)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return []refract.EntrypointsRecord{rec}, nil
//	    },
//	    func(ctx context.Context, n refract.Notification[refract.EntrypointsRecord]) error {
//	        return handle(n)
//	    },
//	).Debounce(30 * time.Millisecond)
func NewSubscription[T, U any](
	engine Engine,
	compute func(ctx context.Context) (T, error),
	convert func(value T) ([]U, error),
	consumer Consumer[U],
	opts ...Option[U],
) *Subscription[T, U] {
	terminal := pipz.Effect("consumer", func(ctx context.Context, n *Notification[U]) error {
		return consumer(ctx, *n)
	})
	pipeline := buildPipeline(terminal, opts)

	s := &Subscription[T, U]{
		engine:   engine,
		compute:  compute,
		convert:  convert,
		pipeline: pipeline,
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
	}
	s.state.Store(int32(StatePending))
	return s
}

// Subscribe creates and starts a Subscription in one call, returning it
// after the first delivery cycle completes. The first cycle's error, if
// any, is reported alongside the running subscription.
func Subscribe[T, U any](
	ctx context.Context,
	engine Engine,
	compute func(ctx context.Context) (T, error),
	convert func(value T) ([]U, error),
	consumer Consumer[U],
	opts ...Option[U],
) (*Subscription[T, U], error) {
	s := NewSubscription(engine, compute, convert, consumer, opts...)
	err := s.Start(ctx)
	return s, err
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets the debounce duration for invalidation processing.
// Invalidations arriving within this duration are coalesced into a single
// delivery cycle. Default: 10ms. Must be called before Start().
func (s *Subscription[T, U]) Debounce(d time.Duration) *Subscription[T, U] {
	s.debounce = d
	return s
}

// SyncMode enables synchronous processing for testing. In sync mode, Start
// only performs the initial cycle; use Step() to run subsequent cycles
// deterministically. Must be called before Start().
func (s *Subscription[T, U]) SyncMode() *Subscription[T, U] {
	s.syncMode = true
	return s
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
// Must be called before Start().
func (s *Subscription[T, U]) Clock(clock clockz.Clock) *Subscription[T, U] {
	s.clock = clock
	return s
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (s *Subscription[T, U]) Metrics(provider MetricsProvider) *Subscription[T, U] {
	s.metrics = provider
	return s
}

// OnStop sets a callback invoked with the final state when the subscription
// stops delivering. Must be called before Start().
func (s *Subscription[T, U]) OnStop(fn func(State)) *Subscription[T, U] {
	s.onStop = fn
	return s
}

// ErrorHistorySize sets the number of recent cycle errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (s *Subscription[T, U]) ErrorHistorySize(n int) *Subscription[T, U] {
	s.errorHistory = newErrorRing(n)
	return s
}

// -----------------------------------------------------------------------------
// Observation
// -----------------------------------------------------------------------------

// State returns the current state of the Subscription.
func (s *Subscription[T, U]) State() State {
	return State(s.state.Load())
}

// Revision returns the revision of the most recent delivery cycle.
func (s *Subscription[T, U]) Revision() uint64 {
	return s.revision.Load()
}

// LastError returns the last cycle error, or nil if the most recent cycle
// succeeded.
func (s *Subscription[T, U]) LastError() error {
	ptr := s.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent cycle errors, oldest first.
// Returns nil unless ErrorHistorySize was set.
func (s *Subscription[T, U]) ErrorHistory() []CycleError {
	return s.errorHistory.all()
}

// Done returns a channel closed when the subscription has stopped and
// released its computation registration.
func (s *Subscription[T, U]) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start registers the computation and blocks until the first delivery cycle
// completes (success or failure), then continues delivering asynchronously.
//
// If the initial cycle fails, Start returns the error but the subscription
// continues waiting for the next invalidation; a later upstream fix (for
// example a corrected syntax error) resumes normal delivery.
//
// Start can only be called once. Subsequent calls return an error.
func (s *Subscription[T, U]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSubscriptionStarted
	}
	s.started = true

	root, err := s.engine.Register(func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("failed to register computation: %w", err)
	}
	s.root = root
	s.done = make(chan struct{})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	capitan.Emit(ctx, SubscriptionStarted,
		KeyDebounce.Field(s.debounce),
	)

	initialErr := s.cycle(ctx)

	if s.syncMode {
		return initialErr
	}

	go s.run(runCtx)

	return initialErr
}

// Cancel stops the subscription. Cancellation is cooperative: an in-flight
// delivery cycle finishes, no further cycles are scheduled, and the
// computation registration is released so it stops being tracked for
// invalidation. Wait on Done() to observe the release.
func (s *Subscription[T, U]) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	root := s.root
	syncMode := s.syncMode
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if syncMode && root != nil {
		s.stopOnce.Do(func() {
			root.Release()
			s.transitionState(context.Background(), s.State(), StateCanceled)
			s.mu.Lock()
			done := s.done
			s.mu.Unlock()
			if done != nil {
				close(done)
			}
		})
	}
}

// Step runs one delivery cycle immediately. This is only available in sync
// mode and is used for deterministic testing; it bypasses invalidation
// waiting and debouncing.
func (s *Subscription[T, U]) Step(ctx context.Context) error {
	if !s.syncMode {
		return fmt.Errorf("step is only available in sync mode")
	}
	return s.cycle(ctx)
}

// run is the delivery loop: wait for invalidation, debounce, cycle, repeat.
// Cancellation is observed at the suspension points, never mid-cycle.
func (s *Subscription[T, U]) run(ctx context.Context) {
	defer func() {
		s.root.Release()
		s.transitionState(ctx, s.State(), StateCanceled)
		finalState := s.State()
		capitan.Emit(ctx, SubscriptionStopped,
			KeyState.Field(finalState.String()),
		)
		if s.onStop != nil {
			s.onStop(finalState)
		}
		s.mu.Lock()
		done := s.done
		s.mu.Unlock()
		close(done)
	}()

	for {
		if err := s.root.AwaitInvalidation(ctx); err != nil {
			return
		}

		capitan.Emit(ctx, SubscriptionInvalidated)
		if s.metrics != nil {
			s.metrics.OnInvalidation()
		}

		if s.debounce > 0 {
			timer := s.clock.NewTimer(s.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C():
			}
		}
		if ctx.Err() != nil {
			return
		}

		_ = s.cycle(ctx) //nolint:errcheck // Errors stored via setError and delivered to the consumer
	}
}

// cycle performs one delivery: strongly consistent evaluation, conversion,
// and sequential delivery of each converted value.
func (s *Subscription[T, U]) cycle(ctx context.Context) error {
	start := s.clock.Now()
	oldState := s.State()
	revision := s.revision.Add(1)

	raw, err := s.root.EvaluateConsistent(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrRootReleased) {
			return err
		}
		s.failCycle(ctx, oldState, revision, "evaluate", err, start)
		return fmt.Errorf("evaluate failed: %w", err)
	}

	value, ok := raw.(T)
	if !ok && raw != nil {
		err := fmt.Errorf("unexpected snapshot type %T", raw)
		s.failCycle(ctx, oldState, revision, "evaluate", err, start)
		return err
	}

	values, err := s.convert(value)
	if err != nil {
		s.failCycle(ctx, oldState, revision, "convert", err, start)
		return fmt.Errorf("convert failed: %w", err)
	}

	for i := range values {
		n := &Notification[U]{Revision: revision, Value: values[i]}
		if _, err := s.pipeline.Process(ctx, n); err != nil {
			s.setError(revision, err)
			s.transitionState(ctx, oldState, s.failureState())
			capitan.Emit(ctx, SubscriptionDeliveryFailed,
				KeyRevision.Field(int(revision)),
				KeyError.Field(err.Error()),
			)
			if s.metrics != nil {
				s.metrics.OnCycleFailure("deliver", s.clock.Since(start))
			}
			return fmt.Errorf("delivery failed: %w", err)
		}
	}

	s.delivered.Store(true)
	s.lastError.Store(nil)
	s.errorHistory.clear()
	s.transitionState(ctx, oldState, StateActive)
	capitan.Emit(ctx, SubscriptionDelivered,
		KeyRevision.Field(int(revision)),
		KeyDeliveries.Field(len(values)),
	)
	if s.metrics != nil {
		s.metrics.OnCycleSuccess(s.clock.Since(start))
	}
	return nil
}

// failCycle records an evaluation or conversion error and delivers it to
// the consumer as an error notification. The subscription stays alive; the
// next invalidation re-attempts the cycle.
func (s *Subscription[T, U]) failCycle(ctx context.Context, oldState State, revision uint64, stage string, err error, start time.Time) {
	s.setError(revision, err)
	s.transitionState(ctx, oldState, s.failureState())

	signal := SubscriptionEvaluateFailed
	if stage == "convert" {
		signal = SubscriptionConvertFailed
	}
	capitan.Emit(ctx, signal,
		KeyRevision.Field(int(revision)),
		KeyError.Field(err.Error()),
	)
	if s.metrics != nil {
		s.metrics.OnCycleFailure(stage, s.clock.Since(start))
	}

	n := &Notification[U]{Revision: revision, Err: err}
	if _, derr := s.pipeline.Process(ctx, n); derr != nil {
		capitan.Emit(ctx, SubscriptionDeliveryFailed,
			KeyRevision.Field(int(revision)),
			KeyError.Field(derr.Error()),
		)
	}
}

// failureState returns the appropriate failure state based on whether a
// delivery cycle has ever succeeded.
func (s *Subscription[T, U]) failureState() State {
	if !s.delivered.Load() {
		return StateStalled
	}
	return StateDegraded
}

// transitionState updates the state and emits a state change event if changed.
func (s *Subscription[T, U]) transitionState(ctx context.Context, oldState, newState State) {
	if oldState == newState {
		return
	}
	s.state.Store(int32(newState))
	capitan.Emit(ctx, SubscriptionStateChanged,
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
	if s.metrics != nil {
		s.metrics.OnStateChange(oldState, newState)
	}
}

// setError stores an error atomically and adds it to the error history.
func (s *Subscription[T, U]) setError(revision uint64, err error) {
	e := err
	s.lastError.Store(&e)
	s.errorHistory.push(revision, err)
}
