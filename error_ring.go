package refract

import "sync"

// CycleError is an error recorded during a subscription delivery cycle,
// stamped with the revision of the cycle that produced it.
type CycleError struct {
	// Revision is the delivery revision during which the error occurred.
	Revision uint64

	// Err is the evaluation, conversion, or delivery error.
	Err error
}

// Error implements the error interface.
func (e CycleError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e CycleError) Unwrap() error {
	return e.Err
}

// errorRing is a thread-safe ring buffer of recent cycle errors.
type errorRing struct {
	mu     sync.RWMutex
	errors []CycleError
	size   int
	head   int
	count  int
}

// newErrorRing creates a new error ring buffer with the given capacity.
// If size is 0, the ring buffer is disabled.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{
		errors: make([]CycleError, size),
		size:   size,
	}
}

// push records an error for the given revision.
func (r *errorRing) push(revision uint64, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors[r.head] = CycleError{Revision: revision, Err: err}
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// clear removes all recorded errors.
func (r *errorRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.errors {
		r.errors[i] = CycleError{}
	}
	r.head = 0
	r.count = 0
}

// all returns the recorded errors, oldest first.
func (r *errorRing) all() []CycleError {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([]CycleError, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		result[i] = r.errors[(start+i)%r.size]
	}
	return result
}
