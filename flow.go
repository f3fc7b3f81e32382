package paymentrequest

import (
	"context"
	"errors"
	"sync"
)

var errAborted = newAbortError("payment request aborted")

// flow is the lifetime of a single Show call on a backend. Its context is
// the cancellation token: Abort cancels it with errAborted. The result is
// delivered exactly once.
type flow struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

func newFlow(parent context.Context) *flow {
	ctx, cancel := context.WithCancelCause(parent)
	return &flow{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// settle records the outcome. Only the first call has an effect; it
// reports whether this call won.
func (f *flow) settle(resp *Response, err error) bool {
	won := false
	f.once.Do(func() {
		f.resp, f.err = resp, err
		won = true
		close(f.done)
	})
	return won
}

// abort signals the token.
func (f *flow) abort() {
	f.cancel(errAborted)
}

// wait blocks until the flow settles or its token fires. onCancel runs when
// the token fired before any other settlement, so the backend can tear down
// the provider side.
func (f *flow) wait(onCancel func()) (*Response, error) {
	defer f.cancel(nil)
	select {
	case <-f.done:
	case <-f.ctx.Done():
		if f.settle(nil, cancellationError(f.ctx)) && onCancel != nil {
			onCancel()
		}
		<-f.done
	}
	return f.resp, f.err
}

// cancellationError maps the token's cause to an Abort error.
func cancellationError(ctx context.Context) error {
	cause := context.Cause(ctx)
	var e *Error
	if errors.As(cause, &e) && e.Kind == Abort {
		return e
	}
	return newAbortError("payment request cancelled", withCause(cause))
}

// activeFlow tracks the single flow a backend instance is running.
type activeFlow struct {
	mu sync.Mutex
	f  *flow
}

func (a *activeFlow) set(f *flow) {
	a.mu.Lock()
	a.f = f
	a.mu.Unlock()
}

func (a *activeFlow) clear(f *flow) {
	a.mu.Lock()
	if a.f == f {
		a.f = nil
	}
	a.mu.Unlock()
}

// signal aborts the active flow, if any, and reports whether one was live.
func (a *activeFlow) signal() bool {
	a.mu.Lock()
	f := a.f
	a.mu.Unlock()
	if f == nil {
		return false
	}
	f.abort()
	return true
}
