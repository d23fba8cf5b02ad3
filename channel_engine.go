package refract

import (
	"context"
	"errors"
	"sync"
)

// ChannelEngine is a minimal Engine whose invalidation is driven by explicit
// Invalidate calls or by forwarding an existing signal channel. Every
// invalidation marks all registered computations stale. Useful for testing
// and for bridging sources that already signal changes on a channel.
type ChannelEngine struct {
	mu    sync.Mutex
	roots map[*channelRoot]struct{}
}

// NewChannelEngine creates an empty ChannelEngine.
func NewChannelEngine() *ChannelEngine {
	return &ChannelEngine{roots: make(map[*channelRoot]struct{})}
}

// Register roots a computation driven by this engine's invalidation signal.
func (e *ChannelEngine) Register(compute func(ctx context.Context) (any, error)) (Root, error) {
	if compute == nil {
		return nil, errors.New("nil computation")
	}
	root := &channelRoot{
		engine:  e,
		compute: compute,
		stale:   make(chan struct{}),
	}
	e.mu.Lock()
	e.roots[root] = struct{}{}
	e.mu.Unlock()
	return root, nil
}

// Invalidate marks every registered computation stale.
func (e *ChannelEngine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for root := range e.roots {
		if root.valid {
			root.valid = false
			close(root.stale)
		}
	}
}

// Forward invalidates all registered computations for each value received on
// ch, until ch closes or the context is canceled.
func (e *ChannelEngine) Forward(ctx context.Context, ch <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			e.Invalidate()
		}
	}
}

// channelRoot mirrors memoryRoot without key-level dependency tracking:
// valid, stale and released are guarded by engine.mu, evalMu serializes
// evaluations, and stale is closed exactly once per invalidation cycle.
type channelRoot struct {
	engine  *ChannelEngine
	compute func(ctx context.Context) (any, error)

	evalMu sync.Mutex
	value  any
	err    error

	valid    bool
	stale    chan struct{}
	released bool
}

func (r *channelRoot) Evaluate(ctx context.Context) (any, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.evaluate(ctx)
}

func (r *channelRoot) EvaluateConsistent(ctx context.Context) (any, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := r.evaluate(ctx)
		if errors.Is(err, ErrRootReleased) {
			return nil, err
		}
		r.engine.mu.Lock()
		settled := r.valid
		r.engine.mu.Unlock()
		if settled {
			return value, err
		}
	}
}

func (r *channelRoot) evaluate(ctx context.Context) (any, error) {
	e := r.engine
	e.mu.Lock()
	if r.released {
		e.mu.Unlock()
		return nil, ErrRootReleased
	}
	if r.valid {
		value, err := r.value, r.err
		e.mu.Unlock()
		return value, err
	}
	r.stale = make(chan struct{})
	r.valid = true
	e.mu.Unlock()

	value, err := r.compute(ctx)

	e.mu.Lock()
	r.value, r.err = value, err
	e.mu.Unlock()
	return value, err
}

func (r *channelRoot) AwaitInvalidation(ctx context.Context) error {
	e := r.engine
	e.mu.Lock()
	if r.released {
		e.mu.Unlock()
		return ErrRootReleased
	}
	if !r.valid {
		e.mu.Unlock()
		return nil
	}
	stale := r.stale
	e.mu.Unlock()

	select {
	case <-stale:
		e.mu.Lock()
		released := r.released
		e.mu.Unlock()
		if released {
			return ErrRootReleased
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *channelRoot) Release() {
	e := r.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	delete(e.roots, r)
	if r.valid {
		r.valid = false
		close(r.stale)
	}
}
