package refract

import (
	"context"
	"errors"
	"sync"
)

// ErrRootReleased is returned by Root operations after Release.
var ErrRootReleased = errors.New("computation root released")

// trackerKey carries the evaluating root through the compute context so
// Depend calls can be attributed to it.
type trackerKey struct{}

// MemoryEngine is an in-process Engine with key-addressed cells and
// fine-grained invalidation tracking. Computations registered against it
// declare their inputs by calling Depend (directly or through ReadCell)
// while evaluating; mutating a key afterwards invalidates every root that
// depended on it.
//
// MemoryEngine provides the strong consistency contract by re-running an
// evaluation until it completes without a concurrent invalidation, so the
// returned value reflects every mutation applied before the read finished.
type MemoryEngine struct {
	memoryLimit uint64

	mu    sync.Mutex
	cells map[string]*memoryCell
}

type memoryCell struct {
	value      any
	exists     bool
	dependents map[*memoryRoot]struct{}
}

// NewMemoryEngine creates an empty MemoryEngine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		cells: make(map[string]*memoryCell),
	}
}

// MemoryLimit sets a soft upper bound, in bytes, that the engine should try
// to stay under when retaining memoized state. Zero means unbounded. The
// bound is advisory; the engine sheds memoized values opportunistically and
// never fails an evaluation because of it.
func (e *MemoryEngine) MemoryLimit(bytes uint64) *MemoryEngine {
	e.memoryLimit = bytes
	return e
}

// Register roots a computation and returns its handle.
func (e *MemoryEngine) Register(compute func(ctx context.Context) (any, error)) (Root, error) {
	if compute == nil {
		return nil, errors.New("nil computation")
	}
	return &memoryRoot{
		engine:  e,
		compute: compute,
		deps:    make(map[string]struct{}),
		stale:   make(chan struct{}),
	}, nil
}

// Depend records a dependency of the currently evaluating root on key.
// Outside an evaluation it is a no-op, as is a call from an evaluation whose
// root was released mid-flight.
func (e *MemoryEngine) Depend(ctx context.Context, key string) {
	root, ok := ctx.Value(trackerKey{}).(*memoryRoot)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if root.released {
		return
	}
	cell := e.cell(key)
	cell.dependents[root] = struct{}{}
	root.deps[key] = struct{}{}
}

// ReadCell returns the value stored at key and whether the key exists,
// recording a dependency for the evaluating root. Reading a missing key
// still records the dependency, so creating the key later invalidates the
// reader.
func (e *MemoryEngine) ReadCell(ctx context.Context, key string) (any, bool) {
	e.Depend(ctx, key)
	e.mu.Lock()
	defer e.mu.Unlock()
	cell, ok := e.cells[key]
	if !ok || !cell.exists {
		return nil, false
	}
	return cell.value, true
}

// Set stores a value at key and invalidates every root that depends on it.
func (e *MemoryEngine) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cell := e.cell(key)
	cell.value = value
	cell.exists = true
	e.invalidateLocked(cell)
}

// Delete removes the value at key and invalidates its dependents.
func (e *MemoryEngine) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cell, ok := e.cells[key]
	if !ok {
		return
	}
	cell.value = nil
	cell.exists = false
	e.invalidateLocked(cell)
}

// InvalidateKey marks key changed without altering its value. External
// change sources such as the filesystem watcher use this to propagate
// invalidation for state the engine does not store itself.
func (e *MemoryEngine) InvalidateKey(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cell, ok := e.cells[key]
	if !ok {
		return
	}
	e.invalidateLocked(cell)
}

// cell returns the cell for key, creating it if needed. Caller holds e.mu.
func (e *MemoryEngine) cell(key string) *memoryCell {
	cell, ok := e.cells[key]
	if !ok {
		cell = &memoryCell{dependents: make(map[*memoryRoot]struct{})}
		e.cells[key] = cell
	}
	return cell
}

// invalidateLocked marks every dependent of cell stale. Caller holds e.mu.
func (e *MemoryEngine) invalidateLocked(cell *memoryCell) {
	for root := range cell.dependents {
		if root.valid {
			root.valid = false
			close(root.stale)
		}
	}
}

// memoryRoot is a rooted computation inside a MemoryEngine.
//
// Invariant: stale is replaced with a fresh channel when an evaluation
// begins and closed exactly once, when valid transitions back to false.
// All of valid, stale, deps and released are guarded by engine.mu; evalMu
// serializes evaluations of this root.
type memoryRoot struct {
	engine  *MemoryEngine
	compute func(ctx context.Context) (any, error)

	evalMu sync.Mutex
	value  any
	err    error

	valid    bool
	deps     map[string]struct{}
	stale    chan struct{}
	released bool
}

func (r *memoryRoot) Evaluate(ctx context.Context) (any, error) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	return r.evaluate(ctx)
}

func (r *memoryRoot) EvaluateConsistent(ctx context.Context) (any, error) {
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
		e := r.engine
		e.mu.Lock()
		settled := r.valid
		e.mu.Unlock()
		if settled {
			return value, err
		}
		// A dependency changed while evaluating; the value may predate
		// the mutation, so run again.
	}
}

// evaluate recomputes if invalidated, otherwise returns the memoized value.
// Caller holds evalMu.
func (r *memoryRoot) evaluate(ctx context.Context) (any, error) {
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
	for key := range r.deps {
		if cell, ok := e.cells[key]; ok {
			delete(cell.dependents, r)
		}
	}
	r.deps = make(map[string]struct{})
	r.stale = make(chan struct{})
	r.valid = true
	e.mu.Unlock()

	value, err := r.compute(context.WithValue(ctx, trackerKey{}, r))

	e.mu.Lock()
	r.value, r.err = value, err
	e.mu.Unlock()
	return value, err
}

func (r *memoryRoot) AwaitInvalidation(ctx context.Context) error {
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

func (r *memoryRoot) Release() {
	e := r.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	for key := range r.deps {
		if cell, ok := e.cells[key]; ok {
			delete(cell.dependents, r)
		}
	}
	r.deps = nil
	if r.valid {
		r.valid = false
		close(r.stale)
	}
}
