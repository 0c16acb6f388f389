package cloud

import (
	"context"
)

// Reply is the pending result of an asynchronous API call. It completes
// exactly once; Abort cancels the underlying request and may be called any
// number of times.
type Reply[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	err    error
}

// NewReply runs fn on its own goroutine and returns a Reply for its result.
func NewReply[T any](ctx context.Context, fn func(context.Context) (T, error)) *Reply[T] {
	ctx, cancel := context.WithCancel(ctx)

	reply := &Reply[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(reply.done)
		defer cancel()

		reply.value, reply.err = fn(ctx)
	}()

	return reply
}

// ResolvedReply returns a Reply that is already complete.
func ResolvedReply[T any](value T, err error) *Reply[T] {
	reply := &Reply[T]{
		done:   make(chan struct{}),
		cancel: func() {},
		value:  value,
		err:    err,
	}
	close(reply.done)

	return reply
}

// Done is closed once the result is available.
func (r *Reply[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the reply completes or ctx is done.
func (r *Reply[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking, or ErrReplyPending.
func (r *Reply[T]) Result() (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	default:
		var zero T
		return zero, ErrReplyPending
	}
}

// Abort cancels the request.
func (r *Reply[T]) Abort() {
	r.cancel()
}
