package player

import "context"

// Future is the pending result of a Play call
type Future struct {
	done chan struct{}
	err  error
}

// Resolved returns a future that has already completed with err
func Resolved(err error) *Future {
	f := &Future{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Go runs fn on its own goroutine and resolves the future with its result
func Go(fn func() error) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.err = fn()
	}()
	return f
}

// Done is closed once the future has resolved
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the resolved error, or nil while the future is still pending
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future resolves or ctx is done
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
