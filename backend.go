package paymentrequest

import "context"

// Backend runs the payment flow for one payment method identifier.
//
// A backend instance belongs to a single [Request]; Show is never called
// concurrently on it.
type Backend interface {
	// Show runs the flow until it settles.
	Show(ctx context.Context, req *Request) (*Response, error)
	// Abort signals the active flow. It is a no-op when no flow is active.
	Abort(ctx context.Context) error
	// CanMakePayment reports whether the flow could run.
	CanMakePayment(ctx context.Context, req *Request) (bool, error)
}

type registration struct {
	backend Backend
	// preferNative yields to the native backend when one is present.
	preferNative bool
}

// registry maps payment method identifiers to backends, falling back to the
// native backend for anything unregistered.
type registry struct {
	entries map[string]registration
	native  Backend
}

func newRegistry(native Backend) *registry {
	return &registry{
		entries: make(map[string]registration),
		native:  native,
	}
}

func (r *registry) register(method string, backend Backend, preferNative bool) {
	if backend == nil {
		return
	}
	r.entries[method] = registration{backend: backend, preferNative: preferNative}
}

// lookup returns the backend for method, or nil when none can handle it.
func (r *registry) lookup(method string) Backend {
	entry, ok := r.entries[method]
	switch {
	case ok && entry.preferNative && r.native != nil:
		return r.native
	case ok:
		return entry.backend
	default:
		return r.native
	}
}
