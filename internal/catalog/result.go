package catalog

import (
	"context"
	"sync"
)

// Result is a single-shot asynchronous outcome: exactly one value or one
// error, after which Done is closed and the outcome never changes.
type Result[T any] struct {
	once    sync.Once
	done    chan struct{}
	deliver func(func())

	mu        sync.Mutex
	callbacks []func()

	value T
	err   error
}

func newResult[T any](deliver func(func())) *Result[T] {
	if deliver == nil {
		deliver = func(fn func()) { fn() }
	}
	return &Result[T]{done: make(chan struct{}), deliver: deliver}
}

// Resolved returns an already completed result, mostly useful in tests and
// for callers that want to stub a Client.
func Resolved[T any](value T, err error) *Result[T] {
	r := newResult[T](nil)
	r.resolve(value, err)
	return r
}

func (r *Result[T]) resolve(value T, err error) {
	r.once.Do(func() {
		r.value, r.err = value, err

		r.mu.Lock()
		close(r.done)
		callbacks := r.callbacks
		r.callbacks = nil
		r.mu.Unlock()

		for _, cb := range callbacks {
			r.deliver(cb)
		}
	})
}

// Done is closed once the result has its terminal outcome
func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

// Await blocks until the outcome is known or ctx ends
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers terminal callbacks. Exactly one of onSuccess or onError is
// invoked, on the client's delivery executor, after the outcome is known.
// Either callback may be nil.
func (r *Result[T]) Then(onSuccess func(T), onError func(error)) {
	cb := func() {
		if r.err != nil {
			if onError != nil {
				onError(r.err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(r.value)
		}
	}

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		r.deliver(cb)
	default:
		r.callbacks = append(r.callbacks, cb)
		r.mu.Unlock()
	}
}
