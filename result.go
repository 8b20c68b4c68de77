package fireauth

import (
	"context"
	"sync"
)

// Result is the outcome of one session action. Exactly one of Token (on
// success) or Err (on failure) is meaningful; Token may legitimately be empty
// for a successful sign out.
type Result struct {
	Token string
	Err   *AuthError
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Future resolves once with the Result of an asynchronous session action.
type Future struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that has already completed with r.
func Resolved(r Result) *Future {
	f := newFuture()
	f.resolve(r)
	return f
}

func (f *Future) resolve(r Result) {
	f.once.Do(func() {
		f.result = r
		close(f.done)
	})
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result returns the outcome and whether it is available yet.
func (f *Future) Result() (Result, bool) {
	select {
	case <-f.done:
		return f.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the action completes or ctx is done. A cancelled wait
// does not cancel the action itself.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
