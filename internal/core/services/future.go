package services

import "context"

// Future is the pending result of an asynchronous resolution.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs fn in its own goroutine and returns its future result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		v, err := fn(ctx)
		f.val, f.err = v, err
		close(f.done)
	}()
	return f
}

// Completed returns a future that is already done.
func Completed[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
